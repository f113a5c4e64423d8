package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tectonic-db/tectonic/internal/ui"
)

// NewSquashCommand creates the squash command.
func NewSquashCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "squash <start> <end>",
		Short: "Combine a range of migrations into one",
		Long:  "Concatenate the operations of a contiguous migration range into one artifact, cancelling tables created and dropped inside the range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			end, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			return runSquash(start, end, name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Label for the squashed migration")

	return cmd
}

func runSquash(start, end int, name string) error {
	_, engine, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	path, m, err := engine.Squash(start, end, name)
	if err != nil {
		return err
	}
	ui.PrintSuccess("Squashed migrations %d..%d into %s (%d operations)", start, end, path, len(m.Operations))
	ui.PrintInfo("The original artifacts are untouched; archive them once %s is applied everywhere", m.Name)
	return nil
}
