// Package memory is an in-memory storage.Store. Writers are serialized
// by a store-wide mutex and Transact restores a snapshot when fn fails,
// so multi-step mutations are all-or-nothing just like the SQL adapter.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"capitalapi/internal/models"
	"capitalapi/internal/storage"
)

type data struct {
	users     map[int]models.User
	orgs      map[int]models.Organization
	employees map[int]models.Employee
	movements map[int]models.Movement

	nextUser, nextOrg, nextEmp, nextMov int
}

func newData() *data {
	return &data{
		users:     map[int]models.User{},
		orgs:      map[int]models.Organization{},
		employees: map[int]models.Employee{},
		movements: map[int]models.Movement{},
		nextUser:  1, nextOrg: 1, nextEmp: 1, nextMov: 1,
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.orgs {
		c.orgs[k] = v
	}
	for k, v := range d.employees {
		c.employees[k] = v
	}
	for k, v := range d.movements {
		c.movements[k] = v
	}
	c.nextUser, c.nextOrg, c.nextEmp, c.nextMov = d.nextUser, d.nextOrg, d.nextEmp, d.nextMov
	return c
}

// Store implements storage.Store over process memory.
type Store struct {
	mu sync.Mutex
	d  *data
}

func New() *Store {
	return &Store{d: newData()}
}

func (s *Store) Users() storage.Users                 { return users{s} }
func (s *Store) Organizations() storage.Organizations { return orgs{s} }
func (s *Store) Employees() storage.Employees         { return employees{s} }
func (s *Store) Movements() storage.Movements         { return movements{s} }

// Transact serializes the whole store and rolls back to a snapshot if
// fn returns an error. fn receives a view that reuses the held lock.
func (s *Store) Transact(ctx context.Context, fn func(storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.d.clone()
	if err := fn(&txStore{d: s.d}); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

func (s *Store) with(fn func(*data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.d)
}

// txStore is the in-transaction view: same operations, no locking,
// since Transact already holds the store mutex.
type txStore struct {
	d *data
}

func (t *txStore) Users() storage.Users                 { return users{t} }
func (t *txStore) Organizations() storage.Organizations { return orgs{t} }
func (t *txStore) Employees() storage.Employees         { return employees{t} }
func (t *txStore) Movements() storage.Movements         { return movements{t} }

func (t *txStore) Transact(ctx context.Context, fn func(storage.Store) error) error {
	// Nested transactions just join the enclosing one.
	return fn(t)
}

func (t *txStore) with(fn func(*data) error) error {
	return fn(t.d)
}

type accessor interface {
	with(fn func(*data) error) error
}

func normName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type users struct{ a accessor }

func (u users) Insert(ctx context.Context, user *models.User) error {
	return u.a.with(func(d *data) error {
		for _, existing := range d.users {
			if existing.Email == user.Email {
				return storage.ErrDuplicate
			}
		}
		user.ID = d.nextUser
		d.nextUser++
		d.users[user.ID] = *user
		return nil
	})
}

func (u users) ByID(ctx context.Context, id int) (*models.User, error) {
	var out *models.User
	err := u.a.with(func(d *data) error {
		user, ok := d.users[id]
		if !ok {
			return storage.ErrNotFound
		}
		out = &user
		return nil
	})
	return out, err
}

func (u users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := u.a.with(func(d *data) error {
		for _, user := range d.users {
			if user.Email == email {
				user := user
				out = &user
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (u users) UpdatePassword(ctx context.Context, id int, hash string) error {
	return u.a.with(func(d *data) error {
		user, ok := d.users[id]
		if !ok {
			return storage.ErrNotFound
		}
		user.PasswordHash = hash
		d.users[id] = user
		return nil
	})
}

func (u users) Delete(ctx context.Context, id int) error {
	return u.a.with(func(d *data) error {
		if _, ok := d.users[id]; !ok {
			return storage.ErrNotFound
		}
		delete(d.users, id)
		return nil
	})
}

type orgs struct{ a accessor }

func (o orgs) Insert(ctx context.Context, org *models.Organization) error {
	return o.a.with(func(d *data) error {
		for _, existing := range d.orgs {
			if normName(existing.Name) == normName(org.Name) {
				return storage.ErrDuplicate
			}
		}
		org.ID = d.nextOrg
		d.nextOrg++
		d.orgs[org.ID] = *org
		return nil
	})
}

func (o orgs) ByID(ctx context.Context, id int) (*models.Organization, error) {
	var out *models.Organization
	err := o.a.with(func(d *data) error {
		org, ok := d.orgs[id]
		if !ok {
			return storage.ErrNotFound
		}
		out = &org
		return nil
	})
	return out, err
}

func (o orgs) ByName(ctx context.Context, name string) (*models.Organization, error) {
	var out *models.Organization
	err := o.a.with(func(d *data) error {
		for _, org := range d.orgs {
			if normName(org.Name) == normName(name) {
				org := org
				out = &org
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (o orgs) ExistsName(ctx context.Context, name string) (bool, error) {
	exists := false
	err := o.a.with(func(d *data) error {
		for _, org := range d.orgs {
			if normName(org.Name) == normName(name) {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (o orgs) UpdateSecret(ctx context.Context, id int, hash string) error {
	return o.a.with(func(d *data) error {
		org, ok := d.orgs[id]
		if !ok {
			return storage.ErrNotFound
		}
		org.SecretHash = hash
		d.orgs[id] = org
		return nil
	})
}

func (o orgs) Delete(ctx context.Context, id int) error {
	return o.a.with(func(d *data) error {
		if _, ok := d.orgs[id]; !ok {
			return storage.ErrNotFound
		}
		delete(d.orgs, id)
		return nil
	})
}

func (o orgs) ListForMember(ctx context.Context, userID int) ([]models.MemberOrganization, error) {
	var out []models.MemberOrganization
	err := o.a.with(func(d *data) error {
		for _, emp := range d.employees {
			if emp.UserID != userID {
				continue
			}
			org, ok := d.orgs[emp.OrganizationID]
			if !ok {
				continue
			}
			out = append(out, models.MemberOrganization{Organization: org, Role: emp.Role})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

type employees struct{ a accessor }

func (e employees) Insert(ctx context.Context, emp *models.Employee) error {
	return e.a.with(func(d *data) error {
		for _, existing := range d.employees {
			if existing.UserID == emp.UserID && existing.OrganizationID == emp.OrganizationID {
				return storage.ErrDuplicate
			}
		}
		emp.ID = d.nextEmp
		d.nextEmp++
		if u, ok := d.users[emp.UserID]; ok {
			emp.Email = u.Email
		}
		stored := *emp
		stored.Email = ""
		d.employees[emp.ID] = stored
		return nil
	})
}

func (e employees) ByUserOrg(ctx context.Context, userID, orgID int) (*models.Employee, error) {
	var out *models.Employee
	err := e.a.with(func(d *data) error {
		for _, emp := range d.employees {
			if emp.UserID == userID && emp.OrganizationID == orgID {
				emp := emp
				if u, ok := d.users[emp.UserID]; ok {
					emp.Email = u.Email
				}
				out = &emp
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (e employees) ByEmailOrg(ctx context.Context, orgID int, email string) (*models.Employee, error) {
	var out *models.Employee
	err := e.a.with(func(d *data) error {
		for _, emp := range d.employees {
			if emp.OrganizationID != orgID {
				continue
			}
			u, ok := d.users[emp.UserID]
			if !ok || u.Email != email {
				continue
			}
			emp := emp
			emp.Email = u.Email
			out = &emp
			return nil
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (e employees) ListByOrg(ctx context.Context, orgID int) ([]models.Employee, error) {
	var out []models.Employee
	err := e.a.with(func(d *data) error {
		for _, emp := range d.employees {
			if emp.OrganizationID != orgID {
				continue
			}
			if u, ok := d.users[emp.UserID]; ok {
				emp.Email = u.Email
			}
			out = append(out, emp)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (e employees) ListByUser(ctx context.Context, userID int) ([]models.Employee, error) {
	var out []models.Employee
	err := e.a.with(func(d *data) error {
		for _, emp := range d.employees {
			if emp.UserID == userID {
				out = append(out, emp)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (e employees) UpdateRole(ctx context.Context, id int, role models.Role) error {
	return e.a.with(func(d *data) error {
		emp, ok := d.employees[id]
		if !ok {
			return storage.ErrNotFound
		}
		emp.Role = role
		d.employees[id] = emp
		return nil
	})
}

func (e employees) Delete(ctx context.Context, id int) error {
	return e.a.with(func(d *data) error {
		if _, ok := d.employees[id]; !ok {
			return storage.ErrNotFound
		}
		delete(d.employees, id)
		return nil
	})
}

func (e employees) DeleteByOrg(ctx context.Context, orgID int) error {
	return e.a.with(func(d *data) error {
		for id, emp := range d.employees {
			if emp.OrganizationID == orgID {
				delete(d.employees, id)
			}
		}
		return nil
	})
}

type movements struct{ a accessor }

// LockOrg is a no-op: Transact holds the store-wide mutex for the whole
// transaction, so movement mutations are already serialized.
func (m movements) LockOrg(ctx context.Context, orgID int) error {
	return nil
}

func (m movements) ListByOrg(ctx context.Context, orgID int) ([]models.Movement, error) {
	var out []models.Movement
	err := m.a.with(func(d *data) error {
		for _, mov := range d.movements {
			if mov.OrganizationID == orgID {
				out = append(out, mov)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].NoMov < out[j].NoMov })
		return nil
	})
	return out, err
}

func (m movements) ByOrgNo(ctx context.Context, orgID, noMov int) (*models.Movement, error) {
	var out *models.Movement
	err := m.a.with(func(d *data) error {
		for _, mov := range d.movements {
			if mov.OrganizationID == orgID && mov.NoMov == noMov {
				mov := mov
				out = &mov
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (m movements) CountByOrg(ctx context.Context, orgID int) (int, error) {
	count := 0
	err := m.a.with(func(d *data) error {
		for _, mov := range d.movements {
			if mov.OrganizationID == orgID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (m movements) Insert(ctx context.Context, mov *models.Movement) error {
	return m.a.with(func(d *data) error {
		mov.ID = d.nextMov
		d.nextMov++
		d.movements[mov.ID] = *mov
		return nil
	})
}

func (m movements) Update(ctx context.Context, mov *models.Movement) error {
	return m.a.with(func(d *data) error {
		if _, ok := d.movements[mov.ID]; !ok {
			return storage.ErrNotFound
		}
		d.movements[mov.ID] = *mov
		return nil
	})
}

func (m movements) Delete(ctx context.Context, id int) error {
	return m.a.with(func(d *data) error {
		if _, ok := d.movements[id]; !ok {
			return storage.ErrNotFound
		}
		delete(d.movements, id)
		return nil
	})
}

func (m movements) DeleteByOrg(ctx context.Context, orgID int) error {
	return m.a.with(func(d *data) error {
		for id, mov := range d.movements {
			if mov.OrganizationID == orgID {
				delete(d.movements, id)
			}
		}
		return nil
	})
}
