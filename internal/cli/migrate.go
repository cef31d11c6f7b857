package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// MigrateResult is the outcome of a one-shot migration.
type MigrateResult struct {
	Migrated int  `json:"migrated"`
	Complete bool `json:"complete"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Refresh the programme and migrate legacy favorites",
		Long: `Fetch the programme once and rewrite favorites stored under legacy
composite keys to upstream screening IDs. Does nothing once the migration
has completed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, cmd)
		},
	}
}

func runMigrate(opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	migrated, err := a.refresh(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to refresh programme", err)
	}
	done, err := a.flags.MigrationComplete(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read migration flag", err)
	}

	res := MigrateResult{Migrated: migrated, Complete: done}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(res, func(w io.Writer) {
		state := "pending"
		if done {
			state = "complete"
		}
		fmt.Fprintf(w, "migrated %d favorite(s); migration %s\n", migrated, state)
	})
}
