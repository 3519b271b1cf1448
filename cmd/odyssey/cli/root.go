// Package cli implements the odyssey command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-admins/internal/admins"
	jobmetrics "github.com/odyssey-erp/odyssey-admins/internal/jobs"
	"github.com/odyssey-erp/odyssey-admins/internal/platform/db"
	"github.com/odyssey-erp/odyssey-admins/internal/users"
	"github.com/odyssey-erp/odyssey-admins/jobs"
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "odyssey",
		Short:         "Odyssey admin accounts service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newLinksCmd(),
		newSeedCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			rt, err := openRuntime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := db.RunMigrations(cmd.Context(), rt.pool, command); err != nil {
				return err
			}
			rt.logger.Info("migrations finished", slog.String("command", command))
			return nil
		},
	}
}

func newLinksCmd() *cobra.Command {
	links := &cobra.Command{
		Use:   "links",
		Short: "Inspect admin/user links",
	}

	var (
		jsonOutput bool
		enqueue    bool
	)
	audit := &cobra.Command{
		Use:   "audit",
		Short: "Report admins and users whose link references disagree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if enqueue {
				jc, err := NewJobsCLI(rt.asynqOpts())
				if err != nil {
					return err
				}
				defer jc.Close()
				info, err := jc.EnqueueLinkAudit(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", info.Type, info.ID)
				return nil
			}

			job := jobs.NewLinkAuditJob(
				admins.NewRepository(rt.pool),
				users.NewRepository(rt.pool),
				nil,
				rt.logger,
				jobmetrics.NewMetrics(nil),
			)
			code := AuditCommand(cmd.Context(), job, LinkAuditOptions{
				JSONOutput: jsonOutput,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
			if code != 0 {
				return exitError{code: code}
			}
			return nil
		},
	}
	audit.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	audit.Flags().BoolVar(&enqueue, "enqueue", false, "enqueue the audit for the worker instead of running it inline")

	links.AddCommand(audit)
	return links
}

func newSeedCmd() *cobra.Command {
	var opts SeedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a root admin linked to a new user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()
			res, err := SeedRoot(cmd.Context(), rt.pool, opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %s linked to root admin %s\n", res.UserID, res.AdminID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Username, "username", "", "login name of the new user")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email of the new user")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password of the new user")
	cmd.Flags().StringVar(&opts.Name, "name", "", "full name of the admin")
	return cmd
}
