package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserSafeMessage(t *testing.T) {
	assert.Equal(t, "Document not found.", UserSafeMessage(ErrNotFound))
	assert.Equal(t, "User document not found.", UserSafeMessage(fmt.Errorf("users: %w", ErrUserNotFound)))
	assert.Equal(t, "Link change already in progress. Retry shortly.", UserSafeMessage(ErrLockBusy))
	assert.Equal(t, "Internal server error.", UserSafeMessage(errors.New("boom")))

	custom := NewMessageError(ErrConflict, "Admin is already linked to another user. Unlink first.")
	assert.Equal(t, custom.Message, UserSafeMessage(fmt.Errorf("link: %w", custom)))
	assert.ErrorIs(t, custom, ErrConflict)
}

func TestLinkLockKeys(t *testing.T) {
	assert.NotEqual(t, AdminLinkLockKey("x"), UserLinkLockKey("x"))
	assert.Contains(t, AdminLinkLockKey("a1"), "a1")
}
