// Package postgres implements storage.Store on lib/pq. Transact maps
// the all-or-nothing boundary onto a database transaction; nested
// calls join the enclosing transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"capitalapi/internal/models"
	"capitalapi/internal/storage"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Store struct {
	db *sql.DB
	q  queryer
}

func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Users() storage.Users                 { return users{s.q} }
func (s *Store) Organizations() storage.Organizations { return orgs{s.q} }
func (s *Store) Employees() storage.Employees         { return employees{s.q} }
func (s *Store) Movements() storage.Movements         { return movements{s.q} }

func (s *Store) Transact(ctx context.Context, fn func(storage.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// mapErr translates driver errors into the storage sentinel errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return storage.ErrDuplicate
	}
	return err
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type users struct{ q queryer }

func (u users) Insert(ctx context.Context, user *models.User) error {
	err := u.q.QueryRowContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id",
		user.Email, user.PasswordHash).Scan(&user.ID)
	return mapErr(err)
}

func (u users) ByID(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	err := u.q.QueryRowContext(ctx,
		"SELECT id, email, password_hash FROM users WHERE id=$1", id,
	).Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (u users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := u.q.QueryRowContext(ctx,
		"SELECT id, email, password_hash FROM users WHERE email=$1", email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (u users) UpdatePassword(ctx context.Context, id int, hash string) error {
	res, err := u.q.ExecContext(ctx,
		"UPDATE users SET password_hash=$1 WHERE id=$2", hash, id)
	return affected(res, err)
}

func (u users) Delete(ctx context.Context, id int) error {
	res, err := u.q.ExecContext(ctx, "DELETE FROM users WHERE id=$1", id)
	return affected(res, err)
}

type orgs struct{ q queryer }

func (o orgs) Insert(ctx context.Context, org *models.Organization) error {
	err := o.q.QueryRowContext(ctx,
		"INSERT INTO organizations (name, secret_hash, creator_id) VALUES ($1, $2, $3) RETURNING id",
		org.Name, org.SecretHash, org.CreatorID).Scan(&org.ID)
	return mapErr(err)
}

func (o orgs) ByID(ctx context.Context, id int) (*models.Organization, error) {
	var org models.Organization
	err := o.q.QueryRowContext(ctx,
		"SELECT id, name, secret_hash, creator_id FROM organizations WHERE id=$1", id,
	).Scan(&org.ID, &org.Name, &org.SecretHash, &org.CreatorID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &org, nil
}

func (o orgs) ByName(ctx context.Context, name string) (*models.Organization, error) {
	var org models.Organization
	err := o.q.QueryRowContext(ctx,
		"SELECT id, name, secret_hash, creator_id FROM organizations WHERE LOWER(TRIM(name))=LOWER(TRIM($1))", name,
	).Scan(&org.ID, &org.Name, &org.SecretHash, &org.CreatorID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &org, nil
}

func (o orgs) ExistsName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := o.q.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM organizations WHERE LOWER(TRIM(name))=LOWER(TRIM($1)))", name,
	).Scan(&exists)
	return exists, err
}

func (o orgs) UpdateSecret(ctx context.Context, id int, hash string) error {
	res, err := o.q.ExecContext(ctx,
		"UPDATE organizations SET secret_hash=$1 WHERE id=$2", hash, id)
	return affected(res, err)
}

func (o orgs) Delete(ctx context.Context, id int) error {
	res, err := o.q.ExecContext(ctx, "DELETE FROM organizations WHERE id=$1", id)
	return affected(res, err)
}

func (o orgs) ListForMember(ctx context.Context, userID int) ([]models.MemberOrganization, error) {
	rows, err := o.q.QueryContext(ctx,
		`SELECT o.id, o.name, o.secret_hash, o.creator_id, e.role
		 FROM organizations o
		 INNER JOIN employees e ON e.organization_id = o.id
		 WHERE e.user_id = $1 ORDER BY o.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MemberOrganization
	for rows.Next() {
		var m models.MemberOrganization
		if err := rows.Scan(&m.ID, &m.Name, &m.SecretHash, &m.CreatorID, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type employees struct{ q queryer }

func (e employees) Insert(ctx context.Context, emp *models.Employee) error {
	err := e.q.QueryRowContext(ctx,
		"INSERT INTO employees (user_id, organization_id, role) VALUES ($1, $2, $3) RETURNING id",
		emp.UserID, emp.OrganizationID, emp.Role).Scan(&emp.ID)
	return mapErr(err)
}

func (e employees) ByUserOrg(ctx context.Context, userID, orgID int) (*models.Employee, error) {
	var emp models.Employee
	err := e.q.QueryRowContext(ctx,
		`SELECT e.id, e.user_id, e.organization_id, e.role, u.email
		 FROM employees e INNER JOIN users u ON u.id = e.user_id
		 WHERE e.user_id=$1 AND e.organization_id=$2`, userID, orgID,
	).Scan(&emp.ID, &emp.UserID, &emp.OrganizationID, &emp.Role, &emp.Email)
	if err != nil {
		return nil, mapErr(err)
	}
	return &emp, nil
}

func (e employees) ByEmailOrg(ctx context.Context, orgID int, email string) (*models.Employee, error) {
	var emp models.Employee
	err := e.q.QueryRowContext(ctx,
		`SELECT e.id, e.user_id, e.organization_id, e.role, u.email
		 FROM employees e INNER JOIN users u ON u.id = e.user_id
		 WHERE e.organization_id=$1 AND u.email=$2`, orgID, email,
	).Scan(&emp.ID, &emp.UserID, &emp.OrganizationID, &emp.Role, &emp.Email)
	if err != nil {
		return nil, mapErr(err)
	}
	return &emp, nil
}

func (e employees) ListByOrg(ctx context.Context, orgID int) ([]models.Employee, error) {
	rows, err := e.q.QueryContext(ctx,
		`SELECT e.id, e.user_id, e.organization_id, e.role, u.email
		 FROM employees e INNER JOIN users u ON u.id = e.user_id
		 WHERE e.organization_id=$1 ORDER BY e.id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		var emp models.Employee
		if err := rows.Scan(&emp.ID, &emp.UserID, &emp.OrganizationID, &emp.Role, &emp.Email); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (e employees) ListByUser(ctx context.Context, userID int) ([]models.Employee, error) {
	rows, err := e.q.QueryContext(ctx,
		"SELECT id, user_id, organization_id, role FROM employees WHERE user_id=$1 ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		var emp models.Employee
		if err := rows.Scan(&emp.ID, &emp.UserID, &emp.OrganizationID, &emp.Role); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (e employees) UpdateRole(ctx context.Context, id int, role models.Role) error {
	res, err := e.q.ExecContext(ctx,
		"UPDATE employees SET role=$1 WHERE id=$2", role, id)
	return affected(res, err)
}

func (e employees) Delete(ctx context.Context, id int) error {
	res, err := e.q.ExecContext(ctx, "DELETE FROM employees WHERE id=$1", id)
	return affected(res, err)
}

func (e employees) DeleteByOrg(ctx context.Context, orgID int) error {
	_, err := e.q.ExecContext(ctx, "DELETE FROM employees WHERE organization_id=$1", orgID)
	return err
}

type movements struct{ q queryer }

const movementCols = "id, no_mov, title, description, type, date, amount, organization_id"

// LockOrg takes a transaction-scoped advisory lock on the organization
// so only one transaction at a time reads and rewrites its NoMov
// sequence. Released automatically at commit or rollback.
func (m movements) LockOrg(ctx context.Context, orgID int) error {
	_, err := m.q.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", orgID)
	return err
}

func (m movements) ListByOrg(ctx context.Context, orgID int) ([]models.Movement, error) {
	rows, err := m.q.QueryContext(ctx,
		"SELECT "+movementCols+" FROM movements WHERE organization_id=$1 ORDER BY no_mov", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Movement
	for rows.Next() {
		var mov models.Movement
		if err := rows.Scan(&mov.ID, &mov.NoMov, &mov.Title, &mov.Description,
			&mov.Type, &mov.Date, &mov.Amount, &mov.OrganizationID); err != nil {
			return nil, err
		}
		out = append(out, mov)
	}
	return out, rows.Err()
}

func (m movements) ByOrgNo(ctx context.Context, orgID, noMov int) (*models.Movement, error) {
	var mov models.Movement
	err := m.q.QueryRowContext(ctx,
		"SELECT "+movementCols+" FROM movements WHERE organization_id=$1 AND no_mov=$2", orgID, noMov,
	).Scan(&mov.ID, &mov.NoMov, &mov.Title, &mov.Description,
		&mov.Type, &mov.Date, &mov.Amount, &mov.OrganizationID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &mov, nil
}

func (m movements) CountByOrg(ctx context.Context, orgID int) (int, error) {
	var count int
	err := m.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM movements WHERE organization_id=$1", orgID).Scan(&count)
	return count, err
}

func (m movements) Insert(ctx context.Context, mov *models.Movement) error {
	err := m.q.QueryRowContext(ctx,
		`INSERT INTO movements (no_mov, title, description, type, date, amount, organization_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		mov.NoMov, mov.Title, mov.Description, mov.Type, mov.Date, mov.Amount, mov.OrganizationID,
	).Scan(&mov.ID)
	return mapErr(err)
}

func (m movements) Update(ctx context.Context, mov *models.Movement) error {
	res, err := m.q.ExecContext(ctx,
		"UPDATE movements SET no_mov=$1, title=$2, description=$3, type=$4, amount=$5 WHERE id=$6",
		mov.NoMov, mov.Title, mov.Description, mov.Type, mov.Amount, mov.ID)
	return affected(res, err)
}

func (m movements) Delete(ctx context.Context, id int) error {
	res, err := m.q.ExecContext(ctx, "DELETE FROM movements WHERE id=$1", id)
	return affected(res, err)
}

func (m movements) DeleteByOrg(ctx context.Context, orgID int) error {
	_, err := m.q.ExecContext(ctx, "DELETE FROM movements WHERE organization_id=$1", orgID)
	return err
}
