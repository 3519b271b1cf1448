package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-admins/internal/admins"
	"github.com/odyssey-erp/odyssey-admins/internal/auth"
	"github.com/odyssey-erp/odyssey-admins/internal/platform/db"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
	"github.com/odyssey-erp/odyssey-admins/internal/users"
)

// SeedOptions describes the root account to provision.
type SeedOptions struct {
	Username string
	Email    string
	Password string
	Name     string
}

// Validate checks the seed flags.
func (o SeedOptions) Validate() error {
	var errs []error
	if strings.TrimSpace(o.Username) == "" {
		errs = append(errs, errors.New("--username is required"))
	}
	if len(o.Password) < 8 {
		errs = append(errs, errors.New("--password must be at least 8 characters"))
	}
	if admins.ParseName(o.Name).First == "" {
		errs = append(errs, errors.New("--name is required"))
	}
	return errors.Join(errs...)
}

// SeedResult reports the created ids.
type SeedResult struct {
	UserID  string
	AdminID string
}

// SeedRoot creates a user and a root-group admin linked to each other in a
// single transaction.
func SeedRoot(ctx context.Context, pool *pgxpool.Pool, opts SeedOptions) (SeedResult, error) {
	if err := opts.Validate(); err != nil {
		return SeedResult{}, err
	}
	hash, err := auth.HashPassword(opts.Password)
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed: hash password: %w", err)
	}
	name := admins.ParseName(opts.Name)
	res := SeedResult{UserID: uuid.NewString(), AdminID: uuid.NewString()}
	username := strings.TrimSpace(opts.Username)

	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO users (id, username, username_folded, email, password_hash, is_active, admin_id, admin_name)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)`,
			res.UserID, username, users.NormalizeUsername(username), opts.Email, hash, res.AdminID, name.Display()); err != nil {
			return fmt.Errorf("seed: insert user: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO admins (id, name_first, name_middle, name_last, permissions, groups, user_id, user_name)
			VALUES ($1, $2, $3, $4, '{}'::jsonb, jsonb_build_object($5::text, 'Root'), $6, $7)`,
			res.AdminID, name.First, name.Middle, name.Last, shared.GroupRoot, res.UserID, username); err != nil {
			return fmt.Errorf("seed: insert admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return res, nil
}
