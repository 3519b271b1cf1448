package admins

import (
	"strings"
	"time"
)

// Name is the structured display name of an admin.
type Name struct {
	First  string `json:"first"`
	Middle string `json:"middle"`
	Last   string `json:"last"`
}

// Display joins first and last name the way it is stored on linked users.
func (n Name) Display() string {
	return n.First + " " + n.Last
}

// ParseName splits a free-form full name. One word fills First, two fill
// First and Last, more put the inner words into Middle.
func ParseName(full string) Name {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return Name{}
	case 1:
		return Name{First: parts[0]}
	case 2:
		return Name{First: parts[0], Last: parts[1]}
	default:
		return Name{
			First:  parts[0],
			Middle: strings.Join(parts[1:len(parts)-1], " "),
			Last:   parts[len(parts)-1],
		}
	}
}

// UserRef is the back-reference from an admin to its linked user.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Admin is an administrator account.
type Admin struct {
	ID          string         `json:"_id"`
	Name        Name           `json:"name"`
	Permissions map[string]any `json:"permissions"`
	Groups      map[string]any `json:"groups"`
	User        *UserRef       `json:"user,omitempty"`
	CreatedAt   time.Time      `json:"timeCreated"`
}

// UserID returns the linked user id or "".
func (a *Admin) UserID() string {
	if a == nil || a.User == nil {
		return ""
	}
	return a.User.ID
}

// IsMemberOf reports whether the admin belongs to group.
func (a *Admin) IsMemberOf(group string) bool {
	if a == nil || a.Groups == nil {
		return false
	}
	_, ok := a.Groups[group]
	return ok
}

// ListQuery holds the paged-find parameters of GET /admins.
type ListQuery struct {
	Fields []string
	Sort   []SortField
	Limit  int
	Page   int
}

// SortField orders listings by one column.
type SortField struct {
	Field string
	Desc  bool
}
