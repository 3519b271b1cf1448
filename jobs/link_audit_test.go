package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admins/internal/admins"
	"github.com/odyssey-erp/odyssey-admins/internal/admins/admintest"
	jobmetrics "github.com/odyssey-erp/odyssey-admins/internal/jobs"
	"github.com/odyssey-erp/odyssey-admins/internal/users"
)

type recordingReporter struct {
	counts map[string]int
	at     time.Time
}

func (r *recordingReporter) SetHalfLinks(counts map[string]int, at time.Time) {
	r.counts = counts
	r.at = at
}

func newAuditFixture(t *testing.T, adminRows []admins.Admin, userRows []users.User) (*LinkAuditJob, *recordingReporter) {
	t.Helper()
	reporter := &recordingReporter{}
	job := NewLinkAuditJob(
		admintest.NewAdmins(adminRows...),
		admintest.NewUsers(userRows...),
		reporter,
		nil,
		jobmetrics.NewMetrics(prometheus.NewRegistry()),
	)
	job.WithClock(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) })
	return job, reporter
}

func TestLinkAuditConsistentLinks(t *testing.T) {
	job, reporter := newAuditFixture(t,
		[]admins.Admin{
			{ID: "a1", User: &admins.UserRef{ID: "u1", Name: "bob"}},
			{ID: "a2"},
		},
		[]users.User{
			{ID: "u1", Username: "bob", Roles: users.Roles{Admin: &users.AdminRef{ID: "a1"}}},
			{ID: "u2", Username: "carol"},
		},
	)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
	assert.Equal(t, 1, report.CheckedAdmins)
	assert.Equal(t, 1, report.CheckedUsers)
	assert.Equal(t, 0, reporter.counts[KindMismatch])
	assert.Len(t, reporter.counts, 5, "every kind is reported so stale gauges reset")
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), reporter.at)
}

func TestLinkAuditClassifiesHalfLinks(t *testing.T) {
	job, reporter := newAuditFixture(t,
		[]admins.Admin{
			{ID: "a1", User: &admins.UserRef{ID: "u1"}},     // u1 has no admin ref
			{ID: "a2", User: &admins.UserRef{ID: "u-gone"}}, // user deleted
			{ID: "a3", User: &admins.UserRef{ID: "u3"}},     // u3 points at a4
			{ID: "a4"},                                      // u4 points here, a4 has no user
		},
		[]users.User{
			{ID: "u1", Username: "one"},
			{ID: "u3", Username: "three", Roles: users.Roles{Admin: &users.AdminRef{ID: "a4"}}},
			{ID: "u5", Username: "five", Roles: users.Roles{Admin: &users.AdminRef{ID: "a-gone"}}},
		},
	)

	report, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []Finding{
		{Kind: KindAdminOneSided, AdminID: "a1", UserID: "u1"},
		{Kind: KindAdminDangling, AdminID: "a2", UserID: "u-gone"},
		{Kind: KindMismatch, AdminID: "a3", UserID: "u3"},
		{Kind: KindUserOneSided, AdminID: "a4", UserID: "u3"},
		{Kind: KindUserDangling, AdminID: "a-gone", UserID: "u5"},
	}, report.Findings)
	assert.Equal(t, 1, reporter.counts[KindAdminDangling])
	assert.Equal(t, 1, reporter.counts[KindMismatch])
}

type failingAdmins struct {
	AdminLinks
}

func (failingAdmins) ListUserLinks(context.Context) ([]admins.Admin, error) {
	return nil, errors.New("db down")
}

func TestLinkAuditPropagatesStoreErrors(t *testing.T) {
	reporter := &recordingReporter{}
	job := NewLinkAuditJob(failingAdmins{}, admintest.NewUsers(), reporter, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	_, err := job.Run(context.Background())
	require.ErrorContains(t, err, "db down")
	assert.Nil(t, reporter.counts, "failed runs do not overwrite the gauge")
}

func TestLinkAuditHandleRejectsBadPayload(t *testing.T) {
	job, _ := newAuditFixture(t, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskLinkAudit, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewLinkAuditTask("")
	require.NoError(t, err)
	require.Equal(t, TaskLinkAudit, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))
}

func TestLinkAuditNotConfigured(t *testing.T) {
	var job *LinkAuditJob
	_, err := job.Run(context.Background())
	require.Error(t, err)
}
