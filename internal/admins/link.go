package admins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-admins/internal/platform/lock"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
	"github.com/odyssey-erp/odyssey-admins/internal/users"
)

// Link operations and outcomes reported to LinkObserver.
const (
	OpLink   = "link"
	OpUnlink = "unlink"

	OutcomeLinked   = "linked"
	OutcomeUnlinked = "unlinked"
	OutcomeNoop     = "noop"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeBusy     = "busy"
	OutcomeError    = "error"
)

const maxUnlinkAttempts = 3

// LinkObserver receives one call per finished link or unlink.
type LinkObserver interface {
	ObserveLinkOperation(op, outcome string)
}

// CheckLink applies the link conflict rules to a resolved pair. A pair
// already linked to each other passes.
func CheckLink(admin *Admin, user *users.User) error {
	if id := user.AdminID(); id != "" && id != admin.ID {
		return ErrUserLinkedToOtherAdmin
	}
	if id := admin.UserID(); id != "" && id != user.ID {
		return ErrAdminLinkedToOtherUser
	}
	return nil
}

// pairLinked reports whether both back-references already hold exactly
// what Link would write.
func pairLinked(admin *Admin, user *users.User) bool {
	if admin.User == nil || user.Roles.Admin == nil {
		return false
	}
	return *admin.User == (UserRef{ID: user.ID, Name: user.Username}) &&
		*user.Roles.Admin == (users.AdminRef{ID: admin.ID, Name: admin.Name.Display()})
}

// Linker establishes and removes the two-sided admin/user link.
//
// Both sides are single-row writes in independent records. Writers of the
// same admin or user are serialized through locker, and the pair is
// re-read and re-checked under the lock. If one of the two writes fails
// the other is not undone; the error is returned and the half-link is left
// for the link audit to report.
type Linker struct {
	admins   Repository
	users    users.Repository
	locker   lock.Locker
	audit    shared.AuditRecorder
	observer LinkObserver
	logger   *slog.Logger
}

// LinkerConfig groups Linker dependencies. Audit and Observer are optional.
type LinkerConfig struct {
	Admins   Repository
	Users    users.Repository
	Locker   lock.Locker
	Audit    shared.AuditRecorder
	Observer LinkObserver
	Logger   *slog.Logger
}

// NewLinker builds a Linker.
func NewLinker(cfg LinkerConfig) *Linker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{
		admins:   cfg.Admins,
		users:    cfg.Users,
		locker:   cfg.Locker,
		audit:    cfg.Audit,
		observer: cfg.Observer,
		logger:   logger,
	}
}

// Link connects admin adminID with the user named username and returns
// the admin as stored afterwards.
func (l *Linker) Link(ctx context.Context, adminID, username string) (*Admin, error) {
	admin, err := l.findAdmin(ctx, adminID)
	if err != nil {
		return nil, l.finish(OpLink, err)
	}
	user, err := l.findUserByName(ctx, username)
	if err != nil {
		return nil, l.finish(OpLink, err)
	}

	lease, err := l.locker.Acquire(ctx, shared.AdminLinkLockKey(admin.ID), shared.UserLinkLockKey(user.ID))
	if err != nil {
		return nil, l.finish(OpLink, err)
	}
	defer l.release(lease)

	// Re-read under the lock; the first reads only located the pair.
	if admin, err = l.findAdmin(ctx, admin.ID); err != nil {
		return nil, l.finish(OpLink, err)
	}
	if user, err = l.findUserByID(ctx, user.ID); err != nil {
		return nil, l.finish(OpLink, err)
	}
	if err := CheckLink(admin, user); err != nil {
		return nil, l.finish(OpLink, err)
	}
	if pairLinked(admin, user) {
		l.observe(OpLink, OutcomeNoop)
		return admin, nil
	}

	var (
		g       errgroup.Group
		updated *Admin
	)
	g.Go(func() error {
		a, err := l.admins.SetUserRef(ctx, admin.ID, UserRef{ID: user.ID, Name: user.Username})
		if err != nil {
			return fmt.Errorf("admins: set user ref on %s: %w", admin.ID, err)
		}
		updated = a
		return nil
	})
	g.Go(func() error {
		if err := l.users.SetAdminRef(ctx, user.ID, users.AdminRef{ID: admin.ID, Name: admin.Name.Display()}); err != nil {
			return fmt.Errorf("admins: set admin ref on user %s: %w", user.ID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		l.logger.Error("link write failed, pair may be half-linked",
			slog.String("admin_id", admin.ID), slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, l.finish(OpLink, err)
	}

	l.record(ctx, "admin.link", admin.ID, map[string]any{"user_id": user.ID, "username": user.Username})
	l.finish(OpLink, nil)
	return updated, nil
}

// Unlink removes the link of admin adminID, if any, and returns the admin
// as stored afterwards. An unlinked admin is returned unchanged. A
// back-reference to a user that no longer exists yields ErrUserNotFound.
func (l *Linker) Unlink(ctx context.Context, adminID string) (*Admin, error) {
	for attempt := 1; ; attempt++ {
		admin, err := l.findAdmin(ctx, adminID)
		if err != nil {
			return nil, l.finish(OpUnlink, err)
		}
		if admin.User == nil || admin.User.ID == "" {
			l.observe(OpUnlink, OutcomeNoop)
			return admin, nil
		}
		userID := admin.User.ID

		out, retry, err := l.unlinkLocked(ctx, admin.ID, userID)
		if err != nil {
			return nil, l.finish(OpUnlink, err)
		}
		if !retry {
			return out, nil
		}
		if attempt >= maxUnlinkAttempts {
			return nil, l.finish(OpUnlink, fmt.Errorf("admins: link of %s kept changing: %w", adminID, shared.ErrLockBusy))
		}
	}
}

// unlinkLocked clears both sides while holding the pair lock. retry is
// true when the admin was re-linked to another user before the lock was
// taken.
func (l *Linker) unlinkLocked(ctx context.Context, adminID, userID string) (*Admin, bool, error) {
	lease, err := l.locker.Acquire(ctx, shared.AdminLinkLockKey(adminID), shared.UserLinkLockKey(userID))
	if err != nil {
		return nil, false, err
	}
	defer l.release(lease)

	admin, err := l.findAdmin(ctx, adminID)
	if err != nil {
		return nil, false, err
	}
	switch admin.UserID() {
	case "":
		l.observe(OpUnlink, OutcomeNoop)
		return admin, false, nil
	case userID:
	default:
		return nil, true, nil
	}

	user, err := l.findUserByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	var (
		g       errgroup.Group
		updated *Admin
	)
	g.Go(func() error {
		a, err := l.admins.ClearUserRef(ctx, admin.ID)
		if err != nil {
			return fmt.Errorf("admins: clear user ref on %s: %w", admin.ID, err)
		}
		updated = a
		return nil
	})
	g.Go(func() error {
		if err := l.users.ClearAdminRef(ctx, user.ID); err != nil {
			return fmt.Errorf("admins: clear admin ref on user %s: %w", user.ID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		l.logger.Error("unlink write failed, pair may be half-linked",
			slog.String("admin_id", admin.ID), slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, false, err
	}

	l.record(ctx, "admin.unlink", admin.ID, map[string]any{"user_id": user.ID})
	l.finish(OpUnlink, nil)
	return updated, false, nil
}

func (l *Linker) findAdmin(ctx context.Context, id string) (*Admin, error) {
	admin, err := l.admins.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return admin, nil
}

func (l *Linker) findUserByName(ctx context.Context, username string) (*users.User, error) {
	user, err := l.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (l *Linker) findUserByID(ctx context.Context, id string) (*users.User, error) {
	user, err := l.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (l *Linker) release(lease *lock.Lease) {
	// The request context may already be done; release must still run.
	if err := lease.Release(context.Background()); err != nil {
		l.logger.Warn("release link lock", slog.Any("keys", lease.Keys()), slog.Any("error", err))
	}
}

func (l *Linker) record(ctx context.Context, action, adminID string, meta map[string]any) {
	if l.audit == nil {
		return
	}
	entry := shared.AuditLog{Action: action, Entity: "admin", EntityID: adminID, Meta: meta}
	if p := shared.PrincipalFromContext(ctx); p != nil {
		entry.ActorID = p.UserID
	}
	if err := l.audit.Record(ctx, entry); err != nil {
		l.logger.Warn("audit link change", slog.String("action", action), slog.Any("error", err))
	}
}

// finish reports the outcome of op and passes err through.
func (l *Linker) finish(op string, err error) error {
	l.observe(op, outcomeOf(op, err))
	return err
}

func (l *Linker) observe(op, outcome string) {
	if l.observer != nil {
		l.observer.ObserveLinkOperation(op, outcome)
	}
}

func outcomeOf(op string, err error) string {
	switch {
	case err == nil && op == OpLink:
		return OutcomeLinked
	case err == nil:
		return OutcomeUnlinked
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrUserNotFound):
		return OutcomeNotFound
	case errors.Is(err, shared.ErrLockBusy):
		return OutcomeBusy
	case errors.Is(err, shared.ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
