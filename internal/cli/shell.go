package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
)

// NewShellCommand creates the interactive shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive query shell",
		Long: `Start an interactive query shell.

Statements are chains of calls separated by '.' and terminated by ';'.
With --db (or a config file) the graph is pre-opened and bound to the
variable "db"; scripts can also open graphs themselves with GQL(...).

Example:
  gqlite shell --db ./graph.db
  > db.v().with_label('person');
  > q();`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(opts, cmd)
		},
	}

	opts.Register(cmd)
	return cmd
}

func runShell(opts *StoreOptions, cmd *cobra.Command) error {
	g, base, err := opts.Session(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	in := NewInterp(out, base)
	defer in.Close()
	if g != nil {
		defer g.Close()
		in.Bind("db", g)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	line := 1
	var tokens []string
	for !in.Stopped() {
		// Accumulate lines until a statement terminator arrives.
		for len(tokens) == 0 || tokens[len(tokens)-1] != ";" {
			fmt.Fprintf(out, "%d> ", line)
			line++
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return WrapExitError(ExitCommandError, "read input", err)
				}
				fmt.Fprintln(out)
				return nil
			}
			lexed, err := Lex(scanner.Text() + "\n")
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				tokens = tokens[:0]
				continue
			}
			tokens = append(tokens, lexed...)
		}

		if err := in.Exec(tokens); err != nil {
			// Shell errors are recoverable; report and keep going.
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		tokens = tokens[:0]
	}
	return nil
}
