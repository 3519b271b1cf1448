package auth

import (
	"context"

	"github.com/odyssey-erp/odyssey-admins/internal/pre"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

var (
	errMissingRole  = shared.NewMessageError(shared.ErrForbidden, "Missing role.")
	errMissingGroup = shared.NewMessageError(shared.ErrForbidden, "Missing admin group.")
)

// Membership reports whether an admin belongs to a group.
type Membership interface {
	IsMemberOf(ctx context.Context, adminID, group string) (bool, error)
}

// EnsureUserRole passes only callers carrying role.
func EnsureUserRole(role string) pre.Check {
	return pre.Check{
		Run: func(ctx context.Context, req *pre.Request) pre.Result {
			p := shared.PrincipalFromContext(ctx)
			if p == nil {
				return pre.Fail(errMissingAuth)
			}
			if !p.HasRole(role) {
				return pre.Fail(errMissingRole)
			}
			return pre.Pass()
		},
	}
}

// EnsureAdminGroup passes only callers whose admin account is in group.
// It must follow EnsureUserRole(shared.RoleAdmin).
func EnsureAdminGroup(group string, membership Membership) pre.Check {
	return pre.Check{
		Run: func(ctx context.Context, req *pre.Request) pre.Result {
			p := shared.PrincipalFromContext(ctx)
			if p == nil {
				return pre.Fail(errMissingAuth)
			}
			if p.AdminID == "" {
				return pre.Fail(errMissingGroup)
			}
			ok, err := membership.IsMemberOf(ctx, p.AdminID, group)
			if err != nil {
				return pre.Fail(err)
			}
			if !ok {
				return pre.Fail(errMissingGroup)
			}
			return pre.Pass()
		},
	}
}
