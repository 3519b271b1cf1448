package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

// Repository defines persistence operations on user accounts.
type Repository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	SetAdminRef(ctx context.Context, userID string, ref AdminRef) error
	ClearAdminRef(ctx context.Context, userID string) error
	ListAdminLinks(ctx context.Context) ([]User, error)
}

// querier is the subset of pgxpool.Pool the repository uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, is_active, admin_id, admin_name, created_at`

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByUsername fetches a user by username, ignoring case. The match runs
// on username_folded, which holds NormalizeUsername of the stored name.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username_folded = $1`, NormalizeUsername(username))
	return scanUser(row)
}

// SetAdminRef stores roles.admin on the user.
func (r *PGRepository) SetAdminRef(ctx context.Context, userID string, ref AdminRef) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET admin_id = $2, admin_name = $3 WHERE id = $1`, userID, ref.ID, ref.Name)
	if err != nil {
		return fmt.Errorf("users: set admin ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// ClearAdminRef removes roles.admin from the user.
func (r *PGRepository) ClearAdminRef(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET admin_id = NULL, admin_name = NULL WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("users: clear admin ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// ListAdminLinks returns every user carrying roles.admin.
func (r *PGRepository) ListAdminLinks(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE admin_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u         User
		adminID   pgtype.Text
		adminName pgtype.Text
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &adminID, &adminName, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrUserNotFound
		}
		return nil, err
	}
	if adminID.Valid {
		u.Roles.Admin = &AdminRef{ID: adminID.String, Name: adminName.String}
	}
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
