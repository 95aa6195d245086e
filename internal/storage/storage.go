// Package storage defines the persistence ports the core services
// operate on. Two adapters exist: postgres (lib/pq) and memory
// (mutex-serialized, snapshot rollback) used by tests.
package storage

import (
	"context"
	"errors"

	"capitalapi/internal/models"
)

// ErrNotFound and ErrDuplicate are the only failure signals store
// methods report besides driver errors. Services translate them into
// the apperr taxonomy.
var (
	ErrNotFound  = errors.New("storage: not found")
	ErrDuplicate = errors.New("storage: duplicate")
)

type Users interface {
	Insert(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id int) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int, hash string) error
	Delete(ctx context.Context, id int) error
}

type Organizations interface {
	Insert(ctx context.Context, o *models.Organization) error
	ByID(ctx context.Context, id int) (*models.Organization, error)
	ByName(ctx context.Context, name string) (*models.Organization, error)
	ExistsName(ctx context.Context, name string) (bool, error)
	UpdateSecret(ctx context.Context, id int, hash string) error
	Delete(ctx context.Context, id int) error
	// ListForMember returns every organization the user belongs to,
	// with the role held in each.
	ListForMember(ctx context.Context, userID int) ([]models.MemberOrganization, error)
}

type Employees interface {
	Insert(ctx context.Context, e *models.Employee) error
	ByUserOrg(ctx context.Context, userID, orgID int) (*models.Employee, error)
	ByEmailOrg(ctx context.Context, orgID int, email string) (*models.Employee, error)
	ListByOrg(ctx context.Context, orgID int) ([]models.Employee, error)
	ListByUser(ctx context.Context, userID int) ([]models.Employee, error)
	UpdateRole(ctx context.Context, id int, role models.Role) error
	Delete(ctx context.Context, id int) error
	DeleteByOrg(ctx context.Context, orgID int) error
}

type Movements interface {
	// LockOrg serializes movement mutations for one organization for
	// the remainder of the enclosing transaction. Callers must take it
	// before any read that feeds a NoMov write; without it, concurrent
	// transactions renumber from snapshots that miss each other's
	// deletions. A no-op where the store already serializes writers.
	LockOrg(ctx context.Context, orgID int) error
	ListByOrg(ctx context.Context, orgID int) ([]models.Movement, error) // ordered by NoMov
	ByOrgNo(ctx context.Context, orgID, noMov int) (*models.Movement, error)
	CountByOrg(ctx context.Context, orgID int) (int, error)
	Insert(ctx context.Context, m *models.Movement) error
	Update(ctx context.Context, m *models.Movement) error
	Delete(ctx context.Context, id int) error
	DeleteByOrg(ctx context.Context, orgID int) error
}

// Store bundles the four entity stores behind one transaction boundary.
// Transact runs fn against a store view whose writes become visible
// all-or-nothing; returning an error discards every write made inside.
type Store interface {
	Users() Users
	Organizations() Organizations
	Employees() Employees
	Movements() Movements
	Transact(ctx context.Context, fn func(Store) error) error
}
