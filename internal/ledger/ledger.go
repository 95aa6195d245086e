// Package ledger owns Movement records: creation, update, deletion,
// balance, and the dense NoMov sequence. After any completed mutation
// the NoMov values of an organization are exactly {1..count}.
package ledger

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"capitalapi/internal/apperr"
	"capitalapi/internal/authz"
	"capitalapi/internal/models"
	"capitalapi/internal/storage"
)

// Input carries the caller-editable movement fields.
type Input struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Type        models.MovementType `json:"type"`
	Amount      decimal.Decimal     `json:"amount"`
}

func (in Input) validate() error {
	if in.Title == "" {
		return apperr.Validation("title", "title is required")
	}
	if utf8.RuneCountInString(in.Title) > 80 {
		return apperr.Validation("title", "title must not exceed 80 characters")
	}
	if utf8.RuneCountInString(in.Description) > 250 {
		return apperr.Validation("description", "description must not exceed 250 characters")
	}
	if in.Type == "" {
		return apperr.Validation("type", "type is required")
	}
	if !in.Type.Valid() {
		return apperr.Validation("type", "type must be 'Ingreso' or 'Egreso'")
	}
	if in.Amount.IsNegative() {
		return apperr.Validation("amount", "amount cannot be negative")
	}
	return nil
}

type Engine struct {
	Store storage.Store
	Authz *authz.Engine
}

func New(store storage.Store, az *authz.Engine) *Engine {
	return &Engine{Store: store, Authz: az}
}

// List returns the organization's movements ordered by NoMov.
func (e *Engine) List(ctx context.Context, orgID, callerID int) ([]models.Movement, error) {
	if err := e.Authz.Authorize(ctx, callerID, orgID, authz.OpViewMovements); err != nil {
		return nil, err
	}
	return e.Store.Movements().ListByOrg(ctx, orgID)
}

// Create authorizes the caller, validates the input, assigns the next
// NoMov and persists the movement. Sequence assignment and insert share
// one transaction holding the organization lock, so concurrent writers
// cannot claim the same number.
func (e *Engine) Create(ctx context.Context, orgID, callerID int, in Input) (*models.Movement, error) {
	if err := e.Authz.Authorize(ctx, callerID, orgID, authz.OpWriteMovement); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var mov *models.Movement
	err := e.Store.Transact(ctx, func(s storage.Store) error {
		if err := s.Movements().LockOrg(ctx, orgID); err != nil {
			return err
		}
		count, err := s.Movements().CountByOrg(ctx, orgID)
		if err != nil {
			return err
		}
		mov = &models.Movement{
			NoMov:          count + 1,
			Title:          in.Title,
			Description:    in.Description,
			Type:           in.Type,
			Date:           time.Now().UTC(),
			Amount:         in.Amount.Round(2),
			OrganizationID: orgID,
		}
		return s.Movements().Insert(ctx, mov)
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// Update rewrites the editable fields of the movement at (orgID,
// noMov). NoMov and the creation timestamp never change here. Read and
// write run in one transaction under the organization lock so a
// renumbering pass cannot slip between them and have its NoMov shift
// overwritten with the stale value.
func (e *Engine) Update(ctx context.Context, orgID, noMov, callerID int, in Input) (*models.Movement, error) {
	if err := e.Authz.Authorize(ctx, callerID, orgID, authz.OpWriteMovement); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var mov *models.Movement
	err := e.Store.Transact(ctx, func(s storage.Store) error {
		if err := s.Movements().LockOrg(ctx, orgID); err != nil {
			return err
		}
		var err error
		mov, err = s.Movements().ByOrgNo(ctx, orgID, noMov)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("movement does not exist")
		}
		if err != nil {
			return err
		}
		mov.Title = in.Title
		mov.Description = in.Description
		mov.Type = in.Type
		mov.Amount = in.Amount.Round(2)
		return s.Movements().Update(ctx, mov)
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// DeleteOne removes the movement at (orgID, noMov) and renumbers the
// remaining movements 1..n in their current order. Delete and
// renumber run in one transaction; a failure leaves the sequence
// untouched instead of half-rewritten.
func (e *Engine) DeleteOne(ctx context.Context, orgID, noMov, callerID int) error {
	if err := e.Authz.Authorize(ctx, callerID, orgID, authz.OpDeleteMovement); err != nil {
		return err
	}

	return e.Store.Transact(ctx, func(s storage.Store) error {
		if err := s.Movements().LockOrg(ctx, orgID); err != nil {
			return err
		}
		mov, err := s.Movements().ByOrgNo(ctx, orgID, noMov)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("movement does not exist")
		}
		if err != nil {
			return err
		}
		if err := s.Movements().Delete(ctx, mov.ID); err != nil {
			return apperr.Integrity("deleting movement", err)
		}

		remaining, err := s.Movements().ListByOrg(ctx, orgID)
		if err != nil {
			return apperr.Integrity("reloading movements for renumbering", err)
		}
		for i := range remaining {
			if remaining[i].NoMov == i+1 {
				continue
			}
			remaining[i].NoMov = i + 1
			if err := s.Movements().Update(ctx, &remaining[i]); err != nil {
				return apperr.Integrity("renumbering movements", err)
			}
		}
		return nil
	})
}

// DeleteAll removes every movement in the organization. An empty set
// is a failure, not a no-op: the caller asked for a deletion and
// nothing happened.
func (e *Engine) DeleteAll(ctx context.Context, orgID, callerID int) error {
	if err := e.Authz.Authorize(ctx, callerID, orgID, authz.OpDeleteAllMovements); err != nil {
		return err
	}

	return e.Store.Transact(ctx, func(s storage.Store) error {
		if err := s.Movements().LockOrg(ctx, orgID); err != nil {
			return err
		}
		count, err := s.Movements().CountByOrg(ctx, orgID)
		if err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("no movements to delete in this organization")
		}
		if err := s.Movements().DeleteByOrg(ctx, orgID); err != nil {
			return apperr.Integrity("deleting movements", err)
		}
		return nil
	})
}

// Balance recomputes income minus expense from the live row set.
// Never cached, so it cannot drift.
func (e *Engine) Balance(ctx context.Context, orgID, callerID int) (decimal.Decimal, error) {
	if err := e.Authz.Authorize(ctx, callerID, orgID, authz.OpViewMovements); err != nil {
		return decimal.Zero, err
	}

	movs, err := e.Store.Movements().ListByOrg(ctx, orgID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, mov := range movs {
		switch mov.Type {
		case models.TypeIngreso:
			balance = balance.Add(mov.Amount)
		case models.TypeEgreso:
			balance = balance.Sub(mov.Amount)
		}
	}
	return balance, nil
}
