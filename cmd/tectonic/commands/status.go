package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tectonic-db/tectonic/internal/ui"
	"github.com/tectonic-db/tectonic/internal/watch"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show schema drift between the manifest and the database",
		Long:  "Diff the declared schema against the live database and report what makemigrations would pick up",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, watchMode)
		},
	}

	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Re-run drift detection when the manifest changes")

	return cmd
}

func runStatus(cmd *cobra.Command, watchMode bool) error {
	cfg, engine, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	report := func() error {
		desired, err := desiredState(cfg)
		if err != nil {
			return err
		}
		diff, err := engine.DetectChanges(cmd.Context(), desired)
		if err != nil {
			return err
		}
		if diff.Empty() {
			ui.PrintSuccess("Schema is in sync")
			return nil
		}
		ui.PrintWarning("Schema drift detected: %s", diff.Summary())
		return nil
	}

	if !watchMode {
		return report()
	}

	watcher, err := watch.NewWatcher(cfg.ManifestPath, report)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	if err := watcher.Start(); err != nil {
		return err
	}
	ui.PrintInfo("Watching %s for changes (ctrl-c to stop)", cfg.ManifestPath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}
