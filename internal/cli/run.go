package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the script runner command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a query script",
		Long: `Execute a query script file and print the value of every
statement that produces one.

With --db (or a config file) the graph is pre-opened and bound to the
variable "db". Mutations only persist if the script commits them.

Example:
  gqlite run --db ./graph.db build.gql
  gqlite run --config gqlite.yaml report.gql`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	opts.Register(cmd)
	return cmd
}

func runScript(opts *StoreOptions, path string, cmd *cobra.Command) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read script", err)
	}
	tokens, err := Lex(string(text))
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("lex %s", path), err)
	}

	g, base, err := opts.Session(cmd)
	if err != nil {
		return err
	}
	in := NewInterp(cmd.OutOrStdout(), base)
	defer in.Close()
	if g != nil {
		defer g.Close()
		in.Bind("db", g)
	}

	if err := in.Exec(tokens); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("script %s", path), err)
	}
	return nil
}
