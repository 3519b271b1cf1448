package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admins/jobs"
)

type stubAuditor struct {
	report jobs.LinkAuditReport
	err    error
}

func (s stubAuditor) Run(context.Context) (jobs.LinkAuditReport, error) {
	return s.report, s.err
}

func TestAuditCommandCleanHuman(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := AuditCommand(context.Background(), stubAuditor{report: jobs.LinkAuditReport{CheckedAdmins: 2, CheckedUsers: 2}}, LinkAuditOptions{Stdout: &stdout, Stderr: &stderr})

	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "checked 2 linked admins, 2 linked users")
	require.Contains(t, stdout.String(), "no half-links found")
	require.Empty(t, stderr.String())
}

func TestAuditCommandFindingsJSON(t *testing.T) {
	report := jobs.LinkAuditReport{
		CheckedAdmins: 1,
		Findings:      []jobs.Finding{{Kind: jobs.KindAdminDangling, AdminID: "a1", UserID: "u-gone"}},
	}
	var stdout bytes.Buffer
	code := AuditCommand(context.Background(), stubAuditor{report: report}, LinkAuditOptions{JSONOutput: true, Stdout: &stdout, Stderr: &bytes.Buffer{}})

	require.Equal(t, ExitFindings, code)
	var decoded jobs.LinkAuditReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	require.Equal(t, report.Findings, decoded.Findings)
}

func TestAuditCommandFindingsHuman(t *testing.T) {
	report := jobs.LinkAuditReport{Findings: []jobs.Finding{{Kind: jobs.KindUserDangling, UserID: "u5"}}}
	var stdout bytes.Buffer
	code := AuditCommand(context.Background(), stubAuditor{report: report}, LinkAuditOptions{Stdout: &stdout, Stderr: &bytes.Buffer{}})

	require.Equal(t, ExitFindings, code)
	require.Contains(t, stdout.String(), "KIND")
	require.Regexp(t, `user_dangling\s+-\s+u5`, stdout.String())
}

func TestAuditCommandError(t *testing.T) {
	var stderr bytes.Buffer
	code := AuditCommand(context.Background(), stubAuditor{err: errors.New("db down")}, LinkAuditOptions{Stdout: &bytes.Buffer{}, Stderr: &stderr})

	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "links audit: db down")
}

func TestSeedOptionsValidate(t *testing.T) {
	err := SeedOptions{Password: "short"}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "--username")
	require.Contains(t, err.Error(), "--password")
	require.Contains(t, err.Error(), "--name")

	require.NoError(t, SeedOptions{Username: "root", Password: "correct horse", Name: "Root Admin"}.Validate())
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	for _, path := range [][]string{{"serve"}, {"migrate"}, {"links", "audit"}, {"seed"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], cmd.Name())
	}

	root.SetArgs([]string{"migrate", "sideways"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	require.Error(t, root.Execute())
}
