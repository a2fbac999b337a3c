package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gqlite/gqlite/graph"
)

// StoreOptions holds the store flags shared by shell, run and export.
type StoreOptions struct {
	*RootOptions
	Database  string
	Erase     bool
	Ephemeral bool
	Bounce    int
	Config    string
}

// Register attaches the store flags to a command.
func (o *StoreOptions) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to the SQLite graph file (\":memory:\" for a throwaway graph)")
	cmd.Flags().BoolVar(&o.Erase, "erase", false, "delete any existing file before opening")
	cmd.Flags().BoolVar(&o.Ephemeral, "ephemeral", false, "delete the file when the session ends")
	cmd.Flags().IntVar(&o.Bounce, "bounce", graph.DefaultBounceThreshold, "query text length that triggers flattening to an id list")
	cmd.Flags().StringVar(&o.Config, "config", "", "path to a YAML config file")
}

// Config mirrors the YAML configuration file. Explicit command-line
// flags take precedence over the file.
type Config struct {
	Path            string `yaml:"path" json:"path"`
	Erase           bool   `yaml:"erase" json:"erase"`
	Ephemeral       bool   `yaml:"ephemeral" json:"ephemeral"`
	BounceThreshold int    `yaml:"bounce_threshold" json:"bounce_threshold"`
}

// configSchema constrains a decoded Config. Validation runs after
// defaults are applied, so every field must be concrete.
const configSchema = `{
	path:             string & !=""
	erase:            bool
	ephemeral:        bool
	bounce_threshold: int & >=0
}`

// LoadConfig reads, decodes and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read config", err)
	}
	cfg := Config{BounceThreshold: graph.DefaultBounceThreshold}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("parse config %s", path), err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid config %s", path), err)
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	unified := schema.Unify(ctx.Encode(cfg))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}

// Open resolves flags against an optional config file and opens the
// graph session. A flag set explicitly on the command line wins over
// the file; otherwise the file's value applies.
func (o *StoreOptions) Open(cmd *cobra.Command) (*graph.Graph, error) {
	r, err := o.resolve(cmd)
	if err != nil {
		return nil, err
	}
	if r.path == "" {
		return nil, NewExitError(ExitCommandError, "no database given: set --db or --config")
	}
	g, err := graph.Open(r.path, r.openOptions()...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open %s", r.path), err)
	}
	return g, nil
}

// Session is Open for the shell and script runner, where a database is
// optional: with no path configured it returns a nil graph together
// with the base options scripts should open their own graphs with.
// The erase and ephemeral flags apply only to the pre-opened graph,
// never to graphs a script opens itself.
func (o *StoreOptions) Session(cmd *cobra.Command) (*graph.Graph, []graph.Option, error) {
	r, err := o.resolve(cmd)
	if err != nil {
		return nil, nil, err
	}
	if r.path == "" {
		return nil, r.base, nil
	}
	g, err := graph.Open(r.path, r.openOptions()...)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("open %s", r.path), err)
	}
	return g, r.base, nil
}

type resolved struct {
	path      string
	base      []graph.Option
	erase     bool
	ephemeral bool
}

func (r resolved) openOptions() []graph.Option {
	opts := r.base
	if r.erase {
		opts = append(opts, graph.WithErase())
	}
	if r.ephemeral {
		opts = append(opts, graph.NonPersistent())
	}
	return opts
}

func (o *StoreOptions) resolve(cmd *cobra.Command) (resolved, error) {
	r := resolved{path: o.Database, erase: o.Erase, ephemeral: o.Ephemeral}
	bounce := o.Bounce

	if o.Config != "" {
		cfg, err := LoadConfig(o.Config)
		if err != nil {
			return resolved{}, err
		}
		flags := cmd.Flags()
		if !flags.Changed("db") {
			r.path = cfg.Path
		}
		if !flags.Changed("erase") {
			r.erase = cfg.Erase
		}
		if !flags.Changed("ephemeral") {
			r.ephemeral = cfg.Ephemeral
		}
		if !flags.Changed("bounce") {
			bounce = cfg.BounceThreshold
		}
	}
	r.base = []graph.Option{graph.WithBounceThreshold(bounce)}
	if o.Verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return resolved{}, WrapExitError(ExitCommandError, "init logger", err)
		}
		r.base = append(r.base, graph.WithLogger(log))
	}
	return r, nil
}
