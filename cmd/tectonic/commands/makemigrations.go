package commands

import (
	"github.com/spf13/cobra"

	"github.com/tectonic-db/tectonic/internal/ui"
	"github.com/tectonic-db/tectonic/migrate"
)

// NewMakeMigrationsCommand creates the makemigrations command.
func NewMakeMigrationsCommand() *cobra.Command {
	var name string
	var empty bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "makemigrations",
		Short: "Generate a migration from schema changes",
		Long:  "Diff the declared schema against the live database and write the difference as a new migration artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMakeMigrations(cmd, name, empty, dryRun)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Label for the migration")
	cmd.Flags().BoolVar(&empty, "empty", false, "Write an artifact even when nothing changed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the planned operations without writing anything")

	return cmd
}

func runMakeMigrations(cmd *cobra.Command, name string, empty, dryRun bool) error {
	cfg, engine, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	desired, err := desiredState(cfg)
	if err != nil {
		return err
	}

	path, m, warnings, err := engine.MakeMigrations(cmd.Context(), desired, migrate.MakeOptions{
		Name:   name,
		Empty:  empty,
		DryRun: dryRun,
	})
	if err != nil {
		return err
	}
	for _, w := range warnings {
		ui.PrintWarning("%s", w)
	}
	if m == nil {
		ui.PrintInfo("No changes detected")
		return nil
	}

	if dryRun {
		ui.PrintSection("Planned operations for " + m.Name)
		for _, op := range m.Operations {
			ui.PrintInfo("%s", op.Describe())
			stmts, err := op.ForwardSQL(engine.Dialect())
			if err != nil {
				ui.PrintWarning("cannot compile: %v", err)
				continue
			}
			for _, stmt := range stmts {
				if stmt != "" {
					ui.PrintSQL(stmt)
				}
			}
		}
		return nil
	}

	ui.PrintSuccess("Created %s (%d operations)", path, len(m.Operations))
	if m.HasDestructive() {
		ui.PrintWarning("Migration contains destructive operations; run migrate to see the analysis")
	}
	return nil
}
