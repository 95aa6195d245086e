package models

// User is the identity anchor. Email is stored normalized
// (lowercased, trimmed) and unique.
type User struct {
	ID           int    `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
}
