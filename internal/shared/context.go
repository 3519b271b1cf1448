package shared

import "context"

type principalContextKey struct{}

// Principal describes the authenticated caller.
type Principal struct {
	UserID   string
	Username string
	// AdminID is the caller's linked admin account, if any.
	AdminID string
	Roles   map[string]bool
}

// HasRole reports whether the caller carries role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && p.Roles[role]
}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
