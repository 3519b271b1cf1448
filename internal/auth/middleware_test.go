package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-admins/internal/admins/admintest"
	"github.com/odyssey-erp/odyssey-admins/internal/auth"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
	"github.com/odyssey-erp/odyssey-admins/internal/users"
	_ "github.com/odyssey-erp/odyssey-admins/testing"
)

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newMiddleware(t *testing.T) auth.Middleware {
	t.Helper()
	store := admintest.NewUsers(
		users.User{ID: "u0", Username: "Root", PasswordHash: hash(t, "s3cret"), IsActive: true,
			Roles: users.Roles{Admin: &users.AdminRef{ID: "a0", Name: "Root Admin"}}},
		users.User{ID: "u1", Username: "bob", PasswordHash: hash(t, "hunter22"), IsActive: true},
		users.User{ID: "u2", Username: "mallory", PasswordHash: hash(t, "pw"), IsActive: false},
	)
	return auth.Middleware{Service: auth.NewService(store)}
}

func serve(mw auth.Middleware, user, password string) (*httptest.ResponseRecorder, *shared.Principal) {
	var seen *shared.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/admins", nil)
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	rr := httptest.NewRecorder()
	mw.RequireBasic(next).ServeHTTP(rr, req)
	return rr, seen
}

func TestRequireBasicResolvesPrincipal(t *testing.T) {
	rr, p := serve(newMiddleware(t), "root", "s3cret")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, p)
	assert.Equal(t, "u0", p.UserID)
	assert.Equal(t, "a0", p.AdminID)
	assert.True(t, p.HasRole(shared.RoleAdmin))
	assert.True(t, p.HasRole(shared.RoleAccount))

	rr, p = serve(newMiddleware(t), "bob", "hunter22")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, p.HasRole(shared.RoleAdmin))
}

func TestRequireBasicRejects(t *testing.T) {
	mw := newMiddleware(t)

	rr, _ := serve(mw, "", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"message":"Missing authentication."}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	for _, tc := range []struct{ user, password string }{
		{"bob", "wrong"},
		{"nobody", "whatever"},
		{"mallory", "pw"},
	} {
		rr, p := serve(mw, tc.user, tc.password)
		require.Equal(t, http.StatusUnauthorized, rr.Code, tc.user)
		assert.JSONEq(t, `{"message":"Invalid credentials."}`, rr.Body.String(), tc.user)
		assert.Nil(t, p)
	}
}

func TestHashPassword(t *testing.T) {
	h, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("correct horse")))
}
