package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the gqlite CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gqlite",
		Short: "gqlite - property graphs over SQLite",
		Long: `A query shell for property graphs stored in SQLite.

Graphs are plain SQLite files; the shell and script runner speak a
small chaining language over vertex and edge selections, and the
export command renders a stored graph as Graphviz.`,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every SQL statement to stderr")

	// Add subcommands
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}
