package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-admins/internal/admins"
	jobmetrics "github.com/odyssey-erp/odyssey-admins/internal/jobs"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
	"github.com/odyssey-erp/odyssey-admins/internal/users"
)

// Half-link kinds reported by the audit.
const (
	KindAdminDangling = "admin_dangling"
	KindAdminOneSided = "admin_one_sided"
	KindUserDangling  = "user_dangling"
	KindUserOneSided  = "user_one_sided"
	KindMismatch      = "mismatch"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AdminLinks lists admins carrying a user reference.
type AdminLinks interface {
	ListUserLinks(ctx context.Context) ([]admins.Admin, error)
	FindByID(ctx context.Context, id string) (*admins.Admin, error)
}

// UserLinks lists users carrying an admin reference.
type UserLinks interface {
	ListAdminLinks(ctx context.Context) ([]users.User, error)
	FindByID(ctx context.Context, id string) (*users.User, error)
}

// HalfLinkReporter publishes audit results.
type HalfLinkReporter interface {
	SetHalfLinks(counts map[string]int, at time.Time)
}

// Finding is one inconsistent record.
type Finding struct {
	Kind    string `json:"kind"`
	AdminID string `json:"adminId,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

// LinkAuditReport summarises one audit run.
type LinkAuditReport struct {
	CheckedAdmins int       `json:"checkedAdmins"`
	CheckedUsers  int       `json:"checkedUsers"`
	Findings      []Finding `json:"findings"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// Counts groups findings by kind.
func (r LinkAuditReport) Counts() map[string]int {
	counts := map[string]int{
		KindAdminDangling: 0,
		KindAdminOneSided: 0,
		KindUserDangling:  0,
		KindUserOneSided:  0,
		KindMismatch:      0,
	}
	for _, f := range r.Findings {
		counts[f.Kind]++
	}
	return counts
}

// LinkAuditJob finds admin/user pairs whose references disagree.
type LinkAuditJob struct {
	Admins   AdminLinks
	Users    UserLinks
	Reporter HalfLinkReporter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewLinkAuditJob constructs the job handler.
func NewLinkAuditJob(adminRepo AdminLinks, userRepo UserLinks, reporter HalfLinkReporter, logger *slog.Logger, metrics *jobmetrics.Metrics) *LinkAuditJob {
	return &LinkAuditJob{
		Admins:   adminRepo,
		Users:    userRepo,
		Reporter: reporter,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the audit for an Asynq task.
func (j *LinkAuditJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload LinkAuditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("link audit payload: %v: %w", err, asynq.SkipRetry)
	}
	j.log().Info("link audit started", slog.String("reason", payload.Reason))
	_, err := j.Run(ctx)
	return err
}

// Run performs one audit pass and reports the result.
func (j *LinkAuditJob) Run(ctx context.Context) (report LinkAuditReport, err error) {
	if j == nil || j.Admins == nil || j.Users == nil {
		return report, errors.New("link audit: dependencies not configured")
	}
	tracker := j.metrics().Track(TaskLinkAudit)
	defer func() {
		err = tracker.End(err)
	}()

	linkedAdmins, err := j.Admins.ListUserLinks(ctx)
	if err != nil {
		return report, fmt.Errorf("link audit: list admins: %w", err)
	}
	linkedUsers, err := j.Users.ListAdminLinks(ctx)
	if err != nil {
		return report, fmt.Errorf("link audit: list users: %w", err)
	}

	userByID := make(map[string]users.User, len(linkedUsers))
	for _, u := range linkedUsers {
		userByID[u.ID] = u
	}
	adminByID := make(map[string]admins.Admin, len(linkedAdmins))
	for _, a := range linkedAdmins {
		adminByID[a.ID] = a
	}

	for _, a := range linkedAdmins {
		userID := a.UserID()
		if u, ok := userByID[userID]; ok {
			if u.AdminID() != a.ID {
				report.Findings = append(report.Findings, Finding{Kind: KindMismatch, AdminID: a.ID, UserID: userID})
			}
			continue
		}
		kind, err := j.classifyUser(ctx, userID)
		if err != nil {
			return report, err
		}
		report.Findings = append(report.Findings, Finding{Kind: kind, AdminID: a.ID, UserID: userID})
	}

	for _, u := range linkedUsers {
		adminID := u.AdminID()
		if a, ok := adminByID[adminID]; ok {
			if a.UserID() != u.ID {
				report.Findings = append(report.Findings, Finding{Kind: KindMismatch, AdminID: adminID, UserID: u.ID})
			}
			continue
		}
		kind, err := j.classifyAdmin(ctx, adminID)
		if err != nil {
			return report, err
		}
		report.Findings = append(report.Findings, Finding{Kind: kind, AdminID: adminID, UserID: u.ID})
	}

	sort.SliceStable(report.Findings, func(i, k int) bool {
		if report.Findings[i].Kind != report.Findings[k].Kind {
			return report.Findings[i].Kind < report.Findings[k].Kind
		}
		return report.Findings[i].AdminID+report.Findings[i].UserID < report.Findings[k].AdminID+report.Findings[k].UserID
	})

	report.CheckedAdmins = len(linkedAdmins)
	report.CheckedUsers = len(linkedUsers)
	report.FinishedAt = j.now()
	if j.Reporter != nil {
		j.Reporter.SetHalfLinks(report.Counts(), report.FinishedAt)
	}

	logger := j.log()
	for _, f := range report.Findings {
		logger.Warn("half-link detected", slog.String("kind", f.Kind), slog.String("admin_id", f.AdminID), slog.String("user_id", f.UserID))
	}
	logger.Info("link audit finished",
		slog.Int("admins", report.CheckedAdmins),
		slog.Int("users", report.CheckedUsers),
		slog.Int("findings", len(report.Findings)))
	return report, nil
}

// classifyUser explains why an admin's user does not point back.
func (j *LinkAuditJob) classifyUser(ctx context.Context, userID string) (string, error) {
	_, err := j.Users.FindByID(ctx, userID)
	switch {
	case err == nil:
		return KindAdminOneSided, nil
	case errors.Is(err, shared.ErrUserNotFound), errors.Is(err, shared.ErrNotFound):
		return KindAdminDangling, nil
	default:
		return "", fmt.Errorf("link audit: load user %s: %w", userID, err)
	}
}

func (j *LinkAuditJob) classifyAdmin(ctx context.Context, adminID string) (string, error) {
	_, err := j.Admins.FindByID(ctx, adminID)
	switch {
	case err == nil:
		return KindUserOneSided, nil
	case errors.Is(err, shared.ErrNotFound):
		return KindUserDangling, nil
	default:
		return "", fmt.Errorf("link audit: load admin %s: %w", adminID, err)
	}
}

func (j *LinkAuditJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LinkAuditJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLinkAudit))
	}
	return slog.Default().With(slog.String("job", TaskLinkAudit))
}

func (j *LinkAuditJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *LinkAuditJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
