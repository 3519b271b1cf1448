// Package admintest provides in-memory admin and user stores for tests.
package admintest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-admins/internal/admins"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
	"github.com/odyssey-erp/odyssey-admins/internal/users"
)

// Admins is an in-memory admins.Repository.
type Admins struct {
	mu   sync.Mutex
	rows map[string]admins.Admin

	// FailSetUserRef and FailClearUserRef, when set, are returned by the
	// matching write instead of touching the row.
	FailSetUserRef   error
	FailClearUserRef error
	// Finds counts FindByID calls.
	Finds int
}

// NewAdmins returns a store seeded with rows.
func NewAdmins(rows ...admins.Admin) *Admins {
	s := &Admins{rows: map[string]admins.Admin{}}
	for _, a := range rows {
		s.Put(a)
	}
	return s
}

// Put stores a copy of a, replacing any row with the same id.
func (s *Admins) Put(a admins.Admin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Date(2024, 1, 1, 0, 0, len(s.rows), 0, time.UTC)
	}
	s.rows[a.ID] = cloneAdmin(a)
}

// Row returns the stored admin without going through the repository API.
func (s *Admins) Row(id string) (admins.Admin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	return cloneAdmin(a), ok
}

func (s *Admins) FindByID(_ context.Context, id string) (*admins.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Finds++
	a, ok := s.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := cloneAdmin(a)
	return &out, nil
}

func (s *Admins) PagedFind(_ context.Context, q admins.ListQuery) ([]admins.Admin, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]admins.Admin, 0, len(s.rows))
	for _, a := range s.rows {
		all = append(all, cloneAdmin(a))
	}
	sort.SliceStable(all, func(i, k int) bool { return less(all[i], all[k], q.Sort) })

	p := shared.NewPagination(q.Page, q.Limit, len(all))
	start := min(p.Offset(), len(all))
	end := min(start+p.PerPage, len(all))
	return all[start:end], len(all), nil
}

func less(a, b admins.Admin, fields []admins.SortField) bool {
	for _, f := range fields {
		var c int
		switch f.Field {
		case "name", "name.last":
			c = strings.Compare(a.Name.Last, b.Name.Last)
			if c == 0 && f.Field == "name" {
				c = strings.Compare(a.Name.First, b.Name.First)
			}
		case "name.first":
			c = strings.Compare(a.Name.First, b.Name.First)
		case "timeCreated", "created":
			c = a.CreatedAt.Compare(b.CreatedAt)
		case "_id", "id":
			c = strings.Compare(a.ID, b.ID)
		}
		if f.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return a.ID < b.ID
}

func (s *Admins) Create(_ context.Context, a admins.Admin) (*admins.Admin, error) {
	s.mu.Lock()
	if _, ok := s.rows[a.ID]; ok {
		s.mu.Unlock()
		return nil, shared.ErrConflict
	}
	s.mu.Unlock()
	s.Put(a)
	out, _ := s.Row(a.ID)
	return &out, nil
}

func (s *Admins) update(id string, fn func(*admins.Admin)) (*admins.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	fn(&a)
	s.rows[id] = cloneAdmin(a)
	out := cloneAdmin(a)
	return &out, nil
}

func (s *Admins) UpdateName(_ context.Context, id string, name admins.Name) (*admins.Admin, error) {
	return s.update(id, func(a *admins.Admin) { a.Name = name })
}

func (s *Admins) UpdatePermissions(_ context.Context, id string, permissions map[string]any) (*admins.Admin, error) {
	return s.update(id, func(a *admins.Admin) { a.Permissions = permissions })
}

func (s *Admins) UpdateGroups(_ context.Context, id string, groups map[string]any) (*admins.Admin, error) {
	return s.update(id, func(a *admins.Admin) { a.Groups = groups })
}

func (s *Admins) SetUserRef(_ context.Context, id string, ref admins.UserRef) (*admins.Admin, error) {
	if s.FailSetUserRef != nil {
		return nil, s.FailSetUserRef
	}
	return s.update(id, func(a *admins.Admin) { a.User = &ref })
}

func (s *Admins) ClearUserRef(_ context.Context, id string) (*admins.Admin, error) {
	if s.FailClearUserRef != nil {
		return nil, s.FailClearUserRef
	}
	return s.update(id, func(a *admins.Admin) { a.User = nil })
}

func (s *Admins) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return 0, nil
	}
	delete(s.rows, id)
	return 1, nil
}

func (s *Admins) ListUserLinks(_ context.Context) ([]admins.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []admins.Admin
	for _, a := range s.rows {
		if a.User != nil {
			out = append(out, cloneAdmin(a))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func cloneAdmin(a admins.Admin) admins.Admin {
	if a.User != nil {
		ref := *a.User
		a.User = &ref
	}
	a.Permissions = cloneMap(a.Permissions)
	a.Groups = cloneMap(a.Groups)
	return a
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Users is an in-memory users.Repository.
type Users struct {
	mu   sync.Mutex
	rows map[string]users.User

	FailSetAdminRef   error
	FailClearAdminRef error
}

// NewUsers returns a store seeded with rows.
func NewUsers(rows ...users.User) *Users {
	s := &Users{rows: map[string]users.User{}}
	for _, u := range rows {
		s.Put(u)
	}
	return s
}

// Put stores a copy of u.
func (s *Users) Put(u users.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[u.ID] = cloneUser(u)
}

// Row returns the stored user without going through the repository API.
func (s *Users) Row(id string) (users.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	return cloneUser(u), ok
}

func (s *Users) FindByID(_ context.Context, id string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (s *Users) FindByUsername(_ context.Context, username string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if users.SameUsername(u.Username, username) {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (s *Users) SetAdminRef(_ context.Context, userID string, ref users.AdminRef) error {
	if s.FailSetAdminRef != nil {
		return s.FailSetAdminRef
	}
	return s.update(userID, func(u *users.User) { u.Roles.Admin = &ref })
}

func (s *Users) ClearAdminRef(_ context.Context, userID string) error {
	if s.FailClearAdminRef != nil {
		return s.FailClearAdminRef
	}
	return s.update(userID, func(u *users.User) { u.Roles.Admin = nil })
}

func (s *Users) update(id string, fn func(*users.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return shared.ErrUserNotFound
	}
	fn(&u)
	s.rows[id] = cloneUser(u)
	return nil
}

func (s *Users) ListAdminLinks(_ context.Context) ([]users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []users.User
	for _, u := range s.rows {
		if u.Roles.Admin != nil {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func cloneUser(u users.User) users.User {
	if u.Roles.Admin != nil {
		ref := *u.Roles.Admin
		u.Roles.Admin = &ref
	}
	return u
}

// Audit collects audit entries in memory.
type Audit struct {
	mu      sync.Mutex
	Entries []shared.AuditLog
	Err     error
}

func (a *Audit) Record(_ context.Context, entry shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.Entries = append(a.Entries, entry)
	return nil
}

// Observer counts link outcomes.
type Observer struct {
	mu     sync.Mutex
	Counts map[string]int
}

func (o *Observer) ObserveLinkOperation(op, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Counts == nil {
		o.Counts = map[string]int{}
	}
	o.Counts[op+"/"+outcome]++
}

// Count returns how often op ended with outcome.
func (o *Observer) Count(op, outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Counts[op+"/"+outcome]
}
