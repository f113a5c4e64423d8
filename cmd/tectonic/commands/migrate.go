package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tectonic-db/tectonic/internal/ui"
	"github.com/tectonic-db/tectonic/migrate"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	var target string
	var fake bool
	var dryRun bool
	var noInput bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Long:  "Analyze every pending migration for data-loss risk, then apply them in order, each in its own transaction where the dialect allows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, target, fake, dryRun, noInput, skipChecks)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Apply up to and including this migration")
	cmd.Flags().BoolVar(&fake, "fake", false, "Record migrations as applied without running their DDL")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Analyze and report without touching the database")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Proceed past warnings without asking")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Bypass the pre-apply analyzer")

	return cmd
}

func runMigrate(cmd *cobra.Command, target string, fake, dryRun, noInput, skipChecks bool) error {
	cfg, engine, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	if !noInput && !cfg.NoInput {
		engine.Confirm = ui.ConfirmWarnings
	}

	applied, results, err := engine.Migrate(cmd.Context(), migrate.ApplyOptions{
		Target:          target,
		Fake:            fake,
		DryRun:          dryRun,
		SkipAnalysis:    skipChecks,
		ConfirmWarnings: noInput || cfg.NoInput,
	})

	var blocked *migrate.AnalysisBlockedError
	if errors.As(err, &blocked) {
		ui.PrintAnalysisReports(blocked.Results)
		ui.PrintError("Migration blocked by analysis; fix the issues above and retry")
		return err
	}
	if errors.Is(err, migrate.ErrConfirmationRequired) {
		ui.PrintAnalysisReports(results)
		ui.PrintError("Warnings need confirmation; re-run with --no-input to override")
		return err
	}
	if err != nil {
		return err
	}

	if dryRun {
		ui.PrintAnalysisReports(results)
		if len(applied) == 0 {
			ui.PrintInfo("Nothing to apply")
		} else {
			ui.PrintSection("Would apply")
			ui.PrintList(applied)
		}
		return nil
	}

	if len(applied) == 0 {
		ui.PrintInfo("No pending migrations")
		return nil
	}
	for _, name := range applied {
		ui.PrintSuccess("Applied %s", name)
	}
	return nil
}
