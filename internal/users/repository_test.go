package users

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type recordingQuerier struct {
	querier
	sql  string
	args []any
}

func (q *recordingQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql, q.args = sql, args
	return errRow{err: pgx.ErrNoRows}
}

func TestNormalizeUsernameFolds(t *testing.T) {
	assert.Equal(t, "bob", NormalizeUsername("  BoB "))
	assert.Equal(t, "strasse", NormalizeUsername("STRASSE"))
	assert.Equal(t, NormalizeUsername("Straße"), NormalizeUsername("STRASSE"))
	assert.Equal(t, "kelvin", NormalizeUsername("\u212Aelvin"))
	assert.True(t, SameUsername("bob", "BOB"))
	assert.False(t, SameUsername("bob", "rob"))
}

func TestFindByUsernameQueriesFoldedColumn(t *testing.T) {
	q := &recordingQuerier{}
	repo := &PGRepository{pool: q}

	_, err := repo.FindByUsername(context.Background(), " Straße ")
	require.ErrorIs(t, err, shared.ErrUserNotFound)
	assert.Contains(t, q.sql, "username_folded = $1")
	assert.Equal(t, []any{"strasse"}, q.args)
}
