package commands

import (
	"github.com/spf13/cobra"

	"github.com/tectonic-db/tectonic/internal/ui"
	"github.com/tectonic-db/tectonic/migrate"
)

// NewRollbackCommand creates the rollback command.
func NewRollbackCommand() *cobra.Command {
	var target string
	var fake bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert applied migrations",
		Long:  "Invert the most recent migration, or everything applied after --target, in reverse-application order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(cmd, target, fake, dryRun)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Roll back everything applied after this migration")
	cmd.Flags().BoolVar(&fake, "fake", false, "Remove ledger rows without running any DDL")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be reverted without touching the database")

	return cmd
}

func runRollback(cmd *cobra.Command, target string, fake, dryRun bool) error {
	_, engine, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	reverted, err := engine.Rollback(cmd.Context(), migrate.RollbackOptions{
		Target: target,
		Fake:   fake,
		DryRun: dryRun,
	})
	if err != nil {
		return err
	}
	if len(reverted) == 0 {
		ui.PrintInfo("Nothing to roll back")
		return nil
	}
	if dryRun {
		ui.PrintSection("Would revert")
		ui.PrintList(reverted)
		return nil
	}
	for _, name := range reverted {
		ui.PrintSuccess("Reverted %s", name)
	}
	return nil
}
