package admins

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-admins/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admins/internal/pre"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
	"github.com/odyssey-erp/odyssey-admins/internal/users"
)

// Slot names filled by the admin route checks.
const (
	SlotPayload   = "payload"
	SlotAdmin     = "admin"
	SlotUser      = "user"
	SlotUserCheck = "userCheck"
)

// AdminFinder resolves admins by id.
type AdminFinder interface {
	Get(ctx context.Context, id string) (*Admin, error)
}

// UserFinder resolves users by id or username.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
	FindByUsername(ctx context.Context, username string) (*users.User, error)
}

// NewValidator returns a validator reporting fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// decodePayload parses and validates the JSON body into a T.
func decodePayload[T any](v *validator.Validate) pre.Check {
	return pre.Check{
		Assign: SlotPayload,
		Run: func(ctx context.Context, req *pre.Request) pre.Result {
			payload := new(T)
			if err := httpx.DecodeJSON(req.HTTP, payload); err != nil {
				return pre.Fail(&shared.ValidationError{Fields: map[string]string{"payload": "invalid JSON"}})
			}
			if err := validatePayload(v, payload); err != nil {
				return pre.Fail(err)
			}
			return pre.Continue(payload)
		},
	}
}

func validatePayload(v *validator.Validate, payload any) error {
	err := v.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &shared.ValidationError{Fields: map[string]string{"payload": err.Error()}}
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		ns := fe.Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		fields[ns] = fe.Tag()
	}
	return &shared.ValidationError{Fields: fields}
}

// loadAdmin resolves the admin named by the {id} URL parameter.
func loadAdmin(admins AdminFinder) pre.Check {
	return pre.Check{
		Assign: SlotAdmin,
		Run: func(ctx context.Context, req *pre.Request) pre.Result {
			admin, err := admins.Get(ctx, chi.URLParam(req.HTTP, "id"))
			if err != nil {
				return pre.Fail(err)
			}
			return pre.Continue(admin)
		},
	}
}

// loadLinkedAdmin is loadAdmin for unlink: an admin without a user ends
// the request with the admin itself, there is nothing to undo.
func loadLinkedAdmin(admins AdminFinder) pre.Check {
	return pre.Check{
		Assign: SlotAdmin,
		Run: func(ctx context.Context, req *pre.Request) pre.Result {
			admin, err := admins.Get(ctx, chi.URLParam(req.HTTP, "id"))
			if err != nil {
				return pre.Fail(err)
			}
			if admin.UserID() == "" {
				return pre.Respond(http.StatusOK, admin)
			}
			return pre.Continue(admin)
		},
	}
}

// loadUserForLink resolves the payload username and rejects users linked
// to a different admin.
func loadUserForLink(finder UserFinder) pre.Check {
	return pre.Check{
		Assign: SlotUser,
		Run: func(ctx context.Context, req *pre.Request) pre.Result {
			payload := pre.Value[*LinkRequest](req, SlotPayload)
			if payload == nil {
				return pre.Fail(&shared.ValidationError{Fields: map[string]string{"username": "required"}})
			}
			user, err := finder.FindByUsername(ctx, payload.Username)
			if err != nil {
				return pre.Fail(userLookupErr(err))
			}
			if id := user.AdminID(); id != "" && id != chi.URLParam(req.HTTP, "id") {
				return pre.Fail(ErrUserLinkedToOtherAdmin)
			}
			return pre.Continue(user)
		},
	}
}

// checkAdminFree rejects admins already linked to a different user.
func checkAdminFree() pre.Check {
	return pre.Check{
		Assign: SlotUserCheck,
		Run: func(ctx context.Context, req *pre.Request) pre.Result {
			admin := pre.Value[*Admin](req, SlotAdmin)
			user := pre.Value[*users.User](req, SlotUser)
			if admin == nil || user == nil {
				return pre.Fail(errors.New("admins: link checks out of order"))
			}
			if id := admin.UserID(); id != "" && id != user.ID {
				return pre.Fail(ErrAdminLinkedToOtherUser)
			}
			return pre.Continue(true)
		},
	}
}

// loadLinkedUser resolves the user the admin points at. A dangling
// back-reference is reported, not repaired.
func loadLinkedUser(finder UserFinder) pre.Check {
	return pre.Check{
		Assign: SlotUser,
		Run: func(ctx context.Context, req *pre.Request) pre.Result {
			admin := pre.Value[*Admin](req, SlotAdmin)
			if admin == nil {
				return pre.Fail(errors.New("admins: unlink checks out of order"))
			}
			user, err := finder.FindByID(ctx, admin.UserID())
			if err != nil {
				return pre.Fail(userLookupErr(err))
			}
			return pre.Continue(user)
		},
	}
}

func userLookupErr(err error) error {
	if errors.Is(err, shared.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}
