package shared

// Roles a user account may carry.
const (
	RoleAdmin   = "admin"
	RoleAccount = "account"
)

// Admin groups.
const (
	GroupRoot = "root"
)
