package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType is the direction of a ledger entry.
type MovementType string

const (
	TypeIngreso MovementType = "Ingreso"
	TypeEgreso  MovementType = "Egreso"
)

// Valid reports whether t is one of the two known movement types.
func (t MovementType) Valid() bool {
	return t == TypeIngreso || t == TypeEgreso
}

// Movement is a single ledger entry. NoMov is the organization-local
// 1-based sequence number; within one organization the set of NoMov
// values is always exactly {1..count}. NoMov is immutable except for
// the renumbering pass after a deletion.
type Movement struct {
	ID             int             `json:"id" db:"id"`
	NoMov          int             `json:"no_mov" db:"no_mov"`
	Title          string          `json:"title" db:"title"`
	Description    string          `json:"description" db:"description"`
	Type           MovementType    `json:"type" db:"type"`
	Date           time.Time       `json:"date" db:"date"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	OrganizationID int             `json:"organization_id" db:"organization_id"`
}
