// Package main is the entry point for the tectonic CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tectonic-db/tectonic/cmd/tectonic/commands"
	"github.com/tectonic-db/tectonic/internal/debug"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// Version information (set by build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:     "tectonic",
		Short:   "Declarative schema migrations",
		Long:    "Tectonic diffs a declared schema against a live database and applies the difference as reversible, analyzed migrations",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("debug")
			debug.Init(verbose)
		},
	}
	rootCmd.PersistentFlags().Bool("debug", false, "log executed SQL and engine internals to stderr")

	rootCmd.AddCommand(commands.NewMakeMigrationsCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewRollbackCommand())
	rootCmd.AddCommand(commands.NewShowMigrationsCommand())
	rootCmd.AddCommand(commands.NewSquashCommand())
	rootCmd.AddCommand(commands.NewStatusCommand())

	return rootCmd.Execute()
}
