package shared

import "fmt"

// AdminLinkLockKey builds redis keys guarding link changes of one admin.
func AdminLinkLockKey(adminID string) string {
	return fmt.Sprintf("admins:link:admin:%s:lock", adminID)
}

// UserLinkLockKey builds redis keys guarding link changes of one user.
func UserLinkLockKey(userID string) string {
	return fmt.Sprintf("admins:link:user:%s:lock", userID)
}
