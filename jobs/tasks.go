package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLinkAudit scans admin/user back-references for half-links.
	TaskLinkAudit = "admins:link_audit"
)

// LinkAuditPayload configures a link audit run.
type LinkAuditPayload struct {
	// Reason is logged with the run, e.g. "cron" or "manual".
	Reason string `json:"reason"`
}

// NewLinkAuditTask constructs an Asynq task for the link audit.
func NewLinkAuditTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "manual"
	}
	data, err := json.Marshal(LinkAuditPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLinkAudit, data, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}
