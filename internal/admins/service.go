package admins

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

// Service handles admin account operations.
type Service struct {
	repo   Repository
	linker *Linker
	reads  singleflight.Group
	newID  func() string
}

// NewService builds Service instance.
func NewService(repo Repository, linker *Linker) *Service {
	return &Service{repo: repo, linker: linker, newID: uuid.NewString}
}

// List returns one page of admins.
func (s *Service) List(ctx context.Context, q ListQuery) (shared.Page[Admin], error) {
	p := shared.NewPagination(q.Page, q.Limit, 0)
	q.Page, q.Limit = p.Page, p.PerPage
	items, total, err := s.repo.PagedFind(ctx, q)
	if err != nil {
		return shared.Page[Admin]{}, err
	}
	return shared.NewPage(items, shared.NewPagination(q.Page, q.Limit, total)), nil
}

// Get returns an admin by id. Concurrent reads of the same id share one
// store round-trip. The shared read is detached from any single caller's
// cancellation; each caller still stops waiting when its own ctx ends.
func (s *Service) Get(ctx context.Context, id string) (*Admin, error) {
	readCtx := context.WithoutCancel(ctx)
	ch := s.reads.DoChan(id, func() (any, error) {
		return s.repo.FindByID(readCtx, id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, notFound(res.Err)
		}
		admin := *res.Val.(*Admin)
		return &admin, nil
	}
}

// IsMemberOf reports whether admin adminID belongs to group. A missing
// admin is not a member of anything.
func (s *Service) IsMemberOf(ctx context.Context, adminID, group string) (bool, error) {
	admin, err := s.Get(ctx, adminID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return admin.IsMemberOf(group), nil
}

// Create inserts an admin named by a free-form full name.
func (s *Service) Create(ctx context.Context, fullName string) (*Admin, error) {
	name := ParseName(fullName)
	if name.First == "" {
		return nil, &shared.ValidationError{Fields: map[string]string{"name": "required"}}
	}
	return s.repo.Create(ctx, Admin{
		ID:          s.newID(),
		Name:        name,
		Permissions: map[string]any{},
		Groups:      map[string]any{},
	})
}

// UpdateName replaces the structured name.
func (s *Service) UpdateName(ctx context.Context, id string, name Name) (*Admin, error) {
	name.First = strings.TrimSpace(name.First)
	name.Middle = strings.TrimSpace(name.Middle)
	name.Last = strings.TrimSpace(name.Last)
	admin, err := s.repo.UpdateName(ctx, id, name)
	return admin, notFound(err)
}

// UpdatePermissions replaces the permissions mapping.
func (s *Service) UpdatePermissions(ctx context.Context, id string, permissions map[string]any) (*Admin, error) {
	admin, err := s.repo.UpdatePermissions(ctx, id, permissions)
	return admin, notFound(err)
}

// UpdateGroups replaces the groups mapping.
func (s *Service) UpdateGroups(ctx context.Context, id string, groups map[string]any) (*Admin, error) {
	admin, err := s.repo.UpdateGroups(ctx, id, groups)
	return admin, notFound(err)
}

// Delete removes an admin. The linked user's back-reference is left for
// the link audit to report.
func (s *Service) Delete(ctx context.Context, id string) error {
	count, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrAdminNotFound
	}
	return nil
}

// Link connects an admin with a user by username.
func (s *Service) Link(ctx context.Context, adminID, username string) (*Admin, error) {
	return s.linker.Link(ctx, adminID, username)
}

// Unlink disconnects an admin from its user.
func (s *Service) Unlink(ctx context.Context, adminID string) (*Admin, error) {
	return s.linker.Unlink(ctx, adminID)
}

func notFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return ErrAdminNotFound
	}
	return err
}
