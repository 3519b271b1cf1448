package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound indicates the referenced user account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrConflict indicates the request violates a link invariant.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller lacks the required role or group.
	ErrForbidden = errors.New("forbidden")
	// ErrLockBusy occurs when a link lock could not be acquired in time.
	ErrLockBusy = errors.New("lock busy")
)

// MessageError pairs a sentinel kind with the message shown to callers.
type MessageError struct {
	Kind    error
	Message string
}

// NewMessageError builds a MessageError.
func NewMessageError(kind error, message string) *MessageError {
	return &MessageError{Kind: kind, Message: message}
}

func (e *MessageError) Error() string {
	return e.Message
}

func (e *MessageError) Unwrap() error {
	return e.Kind
}

// ValidationError reports which payload fields failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// UserSafeMessage returns the message that may be shown to callers.
func UserSafeMessage(err error) string {
	var msgErr *MessageError
	if errors.As(err, &msgErr) {
		return msgErr.Message
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "Document not found."
	case errors.Is(err, ErrUserNotFound):
		return "User document not found."
	case errors.Is(err, ErrValidation):
		return "Invalid request payload."
	case errors.Is(err, ErrUnauthorized):
		return "Missing authentication."
	case errors.Is(err, ErrForbidden):
		return "Permission denied to this resource."
	case errors.Is(err, ErrLockBusy):
		return "Link change already in progress. Retry shortly."
	case errors.Is(err, ErrConflict):
		return "Conflict."
	default:
		return "Internal server error."
	}
}
