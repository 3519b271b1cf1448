package admins

import "github.com/odyssey-erp/odyssey-admins/internal/shared"

var (
	// ErrAdminNotFound is returned when the admin id does not resolve.
	ErrAdminNotFound = shared.NewMessageError(shared.ErrNotFound, "Document not found.")
	// ErrUserNotFound is returned when the username or the stored
	// back-reference does not resolve.
	ErrUserNotFound = shared.NewMessageError(shared.ErrUserNotFound, "User document not found.")
	// ErrUserLinkedToOtherAdmin rejects linking a user owned by another admin.
	ErrUserLinkedToOtherAdmin = shared.NewMessageError(shared.ErrConflict, "User is already linked to another admin. Unlink first.")
	// ErrAdminLinkedToOtherUser rejects linking an admin already owning another user.
	ErrAdminLinkedToOtherUser = shared.NewMessageError(shared.ErrConflict, "Admin is already linked to another user. Unlink first.")
)
