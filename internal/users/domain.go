package users

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// AdminRef is the back-reference from a user to its linked admin.
type AdminRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Roles lists the roles attached to a user account.
type Roles struct {
	Admin *AdminRef `json:"admin,omitempty"`
}

// User represents an end-user account.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	Roles        Roles     `json:"roles"`
	CreatedAt    time.Time `json:"timeCreated"`
}

// AdminID returns the linked admin id or "".
func (u *User) AdminID() string {
	if u == nil || u.Roles.Admin == nil {
		return ""
	}
	return u.Roles.Admin.ID
}

// NormalizeUsername folds a username for case-insensitive comparison.
func NormalizeUsername(username string) string {
	return cases.Fold().String(strings.TrimSpace(username))
}

// SameUsername reports whether a and b name the same account.
func SameUsername(a, b string) bool {
	return NormalizeUsername(a) == NormalizeUsername(b)
}
