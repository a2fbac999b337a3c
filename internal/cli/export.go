package cli

import (
	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*StoreOptions
	Output string
}

// NewExportCommand creates the Graphviz export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{StoreOptions: &StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a stored graph as Graphviz",
		Long: `Render a stored graph as a Graphviz directed-graph description.

Every vertex and edge appears with its label and tag set, ordered by
id, so the same store always renders the same text.

Example:
  gqlite export --db ./graph.db -o graph.dot
  gqlite export --db ./graph.db | dot -Tsvg > graph.svg`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	opts.Register(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	g, err := opts.Open(cmd)
	if err != nil {
		return err
	}
	defer g.Close()

	if opts.Output != "" {
		if err := g.SaveDOT(opts.Output); err != nil {
			return WrapExitError(ExitFailure, "export", err)
		}
		return nil
	}
	if err := g.WriteDOT(cmd.OutOrStdout()); err != nil {
		return WrapExitError(ExitFailure, "export", err)
	}
	return nil
}
