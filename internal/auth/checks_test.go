package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admins/internal/auth"
	"github.com/odyssey-erp/odyssey-admins/internal/pre"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

func run(check pre.Check, p *shared.Principal) pre.Result {
	ctx := context.Background()
	if p != nil {
		ctx = shared.ContextWithPrincipal(ctx, p)
	}
	req := pre.NewRequest(httptest.NewRequest(http.MethodGet, "/admins", nil).WithContext(ctx))
	return check.Run(ctx, req)
}

func TestEnsureUserRole(t *testing.T) {
	check := auth.EnsureUserRole(shared.RoleAdmin)

	res := run(check, nil)
	require.True(t, res.Terminal())
	assert.ErrorIs(t, res.Err(), shared.ErrUnauthorized)

	res = run(check, &shared.Principal{Roles: map[string]bool{shared.RoleAccount: true}})
	require.True(t, res.Terminal())
	assert.ErrorIs(t, res.Err(), shared.ErrForbidden)
	assert.Equal(t, "Missing role.", res.Err().Error())

	res = run(check, &shared.Principal{Roles: map[string]bool{shared.RoleAdmin: true}})
	assert.False(t, res.Terminal())
}

func TestEnsureAdminGroup(t *testing.T) {
	check := auth.EnsureAdminGroup(shared.GroupRoot, membership{"a0/root": true})

	res := run(check, &shared.Principal{AdminID: "a0"})
	assert.False(t, res.Terminal())

	res = run(check, &shared.Principal{AdminID: "a1"})
	require.True(t, res.Terminal())
	assert.Equal(t, "Missing admin group.", res.Err().Error())

	res = run(check, &shared.Principal{})
	require.True(t, res.Terminal())
	assert.ErrorIs(t, res.Err(), shared.ErrForbidden)
}

type membership map[string]bool

func (m membership) IsMemberOf(_ context.Context, adminID, group string) (bool, error) {
	return m[adminID+"/"+group], nil
}

type brokenMembership struct{}

func (brokenMembership) IsMemberOf(context.Context, string, string) (bool, error) {
	return false, errors.New("db down")
}

func TestEnsureAdminGroupPropagatesErrors(t *testing.T) {
	res := run(auth.EnsureAdminGroup(shared.GroupRoot, brokenMembership{}), &shared.Principal{AdminID: "a0"})
	require.True(t, res.Terminal())
	assert.EqualError(t, res.Err(), "db down")
}
