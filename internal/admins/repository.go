package admins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

// Repository defines persistence operations on admin accounts. Every
// update touches a single row and returns the row as stored afterwards.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Admin, error)
	PagedFind(ctx context.Context, q ListQuery) ([]Admin, int, error)
	Create(ctx context.Context, admin Admin) (*Admin, error)
	UpdateName(ctx context.Context, id string, name Name) (*Admin, error)
	UpdatePermissions(ctx context.Context, id string, permissions map[string]any) (*Admin, error)
	UpdateGroups(ctx context.Context, id string, groups map[string]any) (*Admin, error)
	SetUserRef(ctx context.Context, id string, ref UserRef) (*Admin, error)
	ClearUserRef(ctx context.Context, id string) (*Admin, error)
	Delete(ctx context.Context, id string) (int64, error)
	ListUserLinks(ctx context.Context) ([]Admin, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const adminColumns = `id, name_first, name_middle, name_last, permissions, groups, user_id, user_name, created_at`

var sortColumns = map[string]string{
	"_id":         "id",
	"id":          "id",
	"name":        "name_last %[1]s, name_first %[1]s",
	"name.first":  "name_first %[1]s",
	"name.last":   "name_last %[1]s",
	"timeCreated": "created_at %[1]s",
	"created":     "created_at %[1]s",
}

// FindByID fetches an admin by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Admin, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
	return scanAdmin(row)
}

// PagedFind uses a dynamic query because ordering is caller supplied.
func (r *PGRepository) PagedFind(ctx context.Context, q ListQuery) ([]Admin, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(q.Page, q.Limit, total)
	query := `SELECT ` + adminColumns + ` FROM admins ORDER BY ` + orderBy(q.Sort) +
		` LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// Create inserts a new admin.
func (r *PGRepository) Create(ctx context.Context, admin Admin) (*Admin, error) {
	perms, groups, err := encodeMaps(admin.Permissions, admin.Groups)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO admins (id, name_first, name_middle, name_last, permissions, groups)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+adminColumns,
		admin.ID, admin.Name.First, admin.Name.Middle, admin.Name.Last, perms, groups)
	return scanAdmin(row)
}

// UpdateName replaces the admin's name.
func (r *PGRepository) UpdateName(ctx context.Context, id string, name Name) (*Admin, error) {
	row := r.pool.QueryRow(ctx, `UPDATE admins SET name_first = $2, name_middle = $3, name_last = $4
		WHERE id = $1 RETURNING `+adminColumns, id, name.First, name.Middle, name.Last)
	return scanAdmin(row)
}

// UpdatePermissions replaces the permissions mapping.
func (r *PGRepository) UpdatePermissions(ctx context.Context, id string, permissions map[string]any) (*Admin, error) {
	raw, err := json.Marshal(nonNil(permissions))
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `UPDATE admins SET permissions = $2 WHERE id = $1 RETURNING `+adminColumns, id, raw)
	return scanAdmin(row)
}

// UpdateGroups replaces the groups mapping.
func (r *PGRepository) UpdateGroups(ctx context.Context, id string, groups map[string]any) (*Admin, error) {
	raw, err := json.Marshal(nonNil(groups))
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `UPDATE admins SET groups = $2 WHERE id = $1 RETURNING `+adminColumns, id, raw)
	return scanAdmin(row)
}

// SetUserRef stores the user back-reference.
func (r *PGRepository) SetUserRef(ctx context.Context, id string, ref UserRef) (*Admin, error) {
	row := r.pool.QueryRow(ctx, `UPDATE admins SET user_id = $2, user_name = $3 WHERE id = $1 RETURNING `+adminColumns, id, ref.ID, ref.Name)
	return scanAdmin(row)
}

// ClearUserRef removes the user back-reference.
func (r *PGRepository) ClearUserRef(ctx context.Context, id string) (*Admin, error) {
	row := r.pool.QueryRow(ctx, `UPDATE admins SET user_id = NULL, user_name = NULL WHERE id = $1 RETURNING `+adminColumns, id)
	return scanAdmin(row)
}

// Delete removes an admin and reports how many rows went away.
func (r *PGRepository) Delete(ctx context.Context, id string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListUserLinks returns every admin carrying a user back-reference.
func (r *PGRepository) ListUserLinks(ctx context.Context) ([]Admin, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminColumns+` FROM admins WHERE user_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAdmin(row pgx.Row) (*Admin, error) {
	var (
		a         Admin
		perms     []byte
		groups    []byte
		userID    pgtype.Text
		userName  pgtype.Text
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&a.ID, &a.Name.First, &a.Name.Middle, &a.Name.Last, &perms, &groups, &userID, &userName, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := decodeMap(perms, &a.Permissions); err != nil {
		return nil, fmt.Errorf("admins: decode permissions: %w", err)
	}
	if err := decodeMap(groups, &a.Groups); err != nil {
		return nil, fmt.Errorf("admins: decode groups: %w", err)
	}
	if userID.Valid {
		a.User = &UserRef{ID: userID.String, Name: userName.String}
	}
	if createdAt.Valid {
		a.CreatedAt = createdAt.Time
	}
	return &a, nil
}

func orderBy(fields []SortField) string {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := sortColumns[f.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		if strings.Contains(col, "%[1]s") {
			parts = append(parts, fmt.Sprintf(col, dir))
		} else {
			parts = append(parts, col+" "+dir)
		}
	}
	// id keeps paging stable when the requested columns tie.
	parts = append(parts, "id ASC")
	return strings.Join(parts, ", ")
}

func encodeMaps(perms, groups map[string]any) ([]byte, []byte, error) {
	p, err := json.Marshal(nonNil(perms))
	if err != nil {
		return nil, nil, err
	}
	g, err := json.Marshal(nonNil(groups))
	if err != nil {
		return nil, nil, err
	}
	return p, g, nil
}

func decodeMap(raw []byte, dest *map[string]any) error {
	*dest = map[string]any{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// ParseSort turns "name,-timeCreated" or "name -timeCreated" into sort
// fields, dropping unknown columns.
func ParseSort(raw string) []SortField {
	var out []SortField
	for _, token := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		desc := strings.HasPrefix(token, "-")
		field := strings.TrimPrefix(token, "-")
		if _, ok := sortColumns[field]; !ok {
			continue
		}
		out = append(out, SortField{Field: field, Desc: desc})
	}
	return out
}

// ParseFields turns "name,groups" or "name groups" into a field list.
// A leading "-" marks an exclusion, which is not supported and dropped.
func ParseFields(raw string) []string {
	var out []string
	for _, token := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if strings.HasPrefix(token, "-") {
			continue
		}
		out = append(out, token)
	}
	return out
}

var _ Repository = (*PGRepository)(nil)
