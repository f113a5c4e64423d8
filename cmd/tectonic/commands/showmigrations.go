package commands

import (
	"github.com/spf13/cobra"

	"github.com/tectonic-db/tectonic/internal/ui"
)

// NewShowMigrationsCommand creates the showmigrations command.
func NewShowMigrationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "showmigrations",
		Short: "List migrations and their applied state",
		RunE:  runShowMigrations,
	}
	return cmd
}

func runShowMigrations(cmd *cobra.Command, args []string) error {
	_, engine, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	statuses, err := engine.ShowMigrations(cmd.Context())
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		ui.PrintInfo("No migrations found")
		return nil
	}

	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		applied := "pending"
		appliedAt := ""
		if s.Applied {
			applied = "applied"
			appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		flags := ""
		if s.Destructive {
			flags += "destructive "
		}
		if !s.Reversible {
			flags += "irreversible"
		}
		rows = append(rows, []string{s.Name, applied, appliedAt, flags})
	}
	ui.PrintTable([]string{"Migration", "State", "Applied At", "Flags"}, rows)
	return nil
}
