package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gqlite/gqlite/graph"
)

// Value is one interpreter value: a string literal, a materialized
// Result, a vertex or edge selection, or an open graph session.
type Value any

// opFunc applies one operation to an optional receiver and its
// arguments. The returned bool reports whether the operation produced
// a value.
type opFunc func(recv Value, hasRecv bool, args []Value) (Value, bool, error)

// Interp executes statements of the chaining query language: strings
// of method calls joined by '.', terminated by ';'. Results of bare
// statements are printed; as(name) stores the receiver in a variable.
type Interp struct {
	out     io.Writer
	vars    map[string]Value
	ops     map[string]opFunc
	base    []graph.Option
	opened  []*graph.Graph
	stopped bool
}

// NewInterp creates an interpreter writing results to out. Graphs
// opened by scripts inherit the base options.
func NewInterp(out io.Writer, base []graph.Option) *Interp {
	in := &Interp{
		out:  out,
		vars: make(map[string]Value),
		base: base,
	}
	in.ops = in.operations()
	return in
}

// Bind pre-binds a variable, typically "db" for a pre-opened graph.
func (in *Interp) Bind(name string, v Value) {
	in.vars[name] = v
}

// Stopped reports whether a q() statement has ended the session.
func (in *Interp) Stopped() bool {
	return in.stopped
}

// Close closes every graph a script opened itself. Pre-bound graphs
// belong to the caller.
func (in *Interp) Close() error {
	var first error
	for _, g := range in.opened {
		if err := g.Close(); err != nil && first == nil {
			first = err
		}
	}
	in.opened = nil
	return first
}

// Exec runs every statement in the token stream, printing the value
// of each statement that produces one. Execution stops at the end of
// the stream, at the first error, or when a statement calls q().
func (in *Interp) Exec(tokens []string) error {
	pos := 0
	for pos < len(tokens) && !in.stopped {
		v, has, err := in.stmt(tokens, &pos)
		if err != nil {
			return err
		}
		if pos >= len(tokens) || tokens[pos] != ";" {
			return fmt.Errorf("expected ';' after statement")
		}
		pos++
		if has {
			if err := in.print(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// stmt evaluates one chain of calls, leaving pos at the token after
// the chain (the ';', ',' or ')' that ended it).
func (in *Interp) stmt(tokens []string, pos *int) (Value, bool, error) {
	var out Value
	has := false
	for {
		if *pos < len(tokens) && tokens[*pos] == "." {
			*pos++
		}
		if *pos >= len(tokens) {
			return nil, false, fmt.Errorf("unexpected end of input")
		}
		name := tokens[*pos]

		switch {
		case *pos+1 < len(tokens) && tokens[*pos+1] == "(":
			*pos++ // now at '('
			var args []Value
			if *pos+1 < len(tokens) && tokens[*pos+1] != ")" {
				for {
					*pos++
					v, ok, err := in.stmt(tokens, pos)
					if err != nil {
						return nil, false, err
					}
					if ok {
						args = append(args, v)
					}
					if *pos >= len(tokens) || tokens[*pos] != "," {
						break
					}
				}
			} else {
				*pos++
			}
			if *pos >= len(tokens) || tokens[*pos] != ")" {
				return nil, false, fmt.Errorf("expected ')' closing call to %q", name)
			}
			op, ok := in.ops[name]
			if !ok {
				return nil, false, fmt.Errorf("invalid method %q", name)
			}
			v, ok, err := op(out, has, args)
			if err != nil {
				return nil, false, fmt.Errorf("%s: %w", name, err)
			}
			out, has = v, ok

		case name[0] == '\'' || name[0] == '"':
			out, has = name[1:len(name)-1], true

		default:
			v, ok := in.vars[name]
			if !ok {
				return nil, false, fmt.Errorf("symbol %q could not be resolved", name)
			}
			out, has = v, true
		}
		*pos++
		if *pos >= len(tokens) || tokens[*pos] != "." {
			break
		}
	}
	return out, has, nil
}

// Argument coercion helpers. Each names the operation in its error so
// script failures point at the offending call.

func argString(args []Value, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i+1)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d: expected a string", i+1)
	}
	return s, nil
}

func argUint(args []Value, i int) (uint64, error) {
	s, err := argString(args, i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("argument %d: expected a number: %w", i+1, err)
	}
	return n, nil
}

func argVertices(args []Value, i int) (graph.Vertices, error) {
	if i >= len(args) {
		return graph.Vertices{}, fmt.Errorf("missing argument %d", i+1)
	}
	v, ok := args[i].(graph.Vertices)
	if !ok {
		return graph.Vertices{}, fmt.Errorf("argument %d: expected a vertex selection", i+1)
	}
	return v, nil
}

func argEdges(args []Value, i int) (graph.Edges, error) {
	if i >= len(args) {
		return graph.Edges{}, fmt.Errorf("missing argument %d", i+1)
	}
	e, ok := args[i].(graph.Edges)
	if !ok {
		return graph.Edges{}, fmt.Errorf("argument %d: expected an edge selection", i+1)
	}
	return e, nil
}

func recvGraph(recv Value, hasRecv bool) (*graph.Graph, error) {
	if !hasRecv {
		return nil, fmt.Errorf("needs a graph receiver")
	}
	g, ok := recv.(*graph.Graph)
	if !ok {
		return nil, fmt.Errorf("receiver is not a graph")
	}
	return g, nil
}

func recvVertices(recv Value, hasRecv bool) (graph.Vertices, error) {
	if !hasRecv {
		return graph.Vertices{}, fmt.Errorf("needs a vertex receiver")
	}
	v, ok := recv.(graph.Vertices)
	if !ok {
		return graph.Vertices{}, fmt.Errorf("receiver is not a vertex selection")
	}
	return v, nil
}

func recvEdges(recv Value, hasRecv bool) (graph.Edges, error) {
	if !hasRecv {
		return graph.Edges{}, fmt.Errorf("needs an edge receiver")
	}
	e, ok := recv.(graph.Edges)
	if !ok {
		return graph.Edges{}, fmt.Errorf("receiver is not an edge selection")
	}
	return e, nil
}
