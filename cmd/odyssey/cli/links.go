package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/odyssey-erp/odyssey-admins/jobs"
)

// ExitFindings is returned by the audit command when half-links exist.
const ExitFindings = 10

// LinkAuditor runs one link audit pass.
type LinkAuditor interface {
	Run(ctx context.Context) (jobs.LinkAuditReport, error)
}

// LinkAuditOptions defines available flags for the links audit command.
type LinkAuditOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// AuditCommand executes the link audit and prints the outcome. It returns
// the process exit code.
func AuditCommand(ctx context.Context, auditor LinkAuditor, opts LinkAuditOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	report, err := auditor.Run(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "links audit: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if report.Findings == nil {
			report.Findings = []jobs.Finding{}
		}
		if err := json.NewEncoder(opts.Stdout).Encode(report); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "links audit: encode json: %v\n", err)
			return 1
		}
	} else {
		renderAuditHuman(opts.Stdout, report)
	}
	if len(report.Findings) > 0 {
		return ExitFindings
	}
	return 0
}

func renderAuditHuman(w io.Writer, report jobs.LinkAuditReport) {
	_, _ = fmt.Fprintf(w, "checked %d linked admins, %d linked users\n", report.CheckedAdmins, report.CheckedUsers)
	if len(report.Findings) == 0 {
		_, _ = fmt.Fprintln(w, "no half-links found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tADMIN\tUSER")
	for _, f := range report.Findings {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Kind, dash(f.AdminID), dash(f.UserID))
	}
	_ = tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
