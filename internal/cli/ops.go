package cli

import (
	"fmt"
	"strconv"

	"github.com/gqlite/gqlite/graph"
)

// operations builds the op table. Most operations dispatch on the
// receiver kind, mirroring the library's split between vertex and
// edge selections.
func (in *Interp) operations() map[string]opFunc {
	return map[string]opFunc{
		// GQL([path [, erase [, persistent]]]) opens a graph session.
		// With no arguments the graph is in-memory and throwaway.
		"GQL": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			if hasRecv {
				return nil, false, fmt.Errorf("takes no receiver")
			}
			if len(args) > 3 {
				return nil, false, fmt.Errorf("expected at most 3 arguments")
			}
			path := graph.InMemory
			opts := append([]graph.Option(nil), in.base...)
			if len(args) >= 1 {
				p, err := argString(args, 0)
				if err != nil {
					return nil, false, err
				}
				path = p
			}
			if len(args) >= 2 {
				s, err := argString(args, 1)
				if err != nil {
					return nil, false, err
				}
				if s == "true" {
					opts = append(opts, graph.WithErase())
				}
			}
			if len(args) == 3 {
				s, err := argString(args, 2)
				if err != nil {
					return nil, false, err
				}
				if s != "true" {
					opts = append(opts, graph.NonPersistent())
				}
			}
			g, err := graph.Open(path, opts...)
			if err != nil {
				return nil, false, err
			}
			in.opened = append(in.opened, g)
			return g, true, nil
		},

		"q": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			if hasRecv || len(args) != 0 {
				return nil, false, fmt.Errorf("takes no receiver and no arguments")
			}
			in.stopped = true
			return nil, false, nil
		},

		"as": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			if !hasRecv {
				return nil, false, fmt.Errorf("needs a value to bind")
			}
			name, err := argString(args, 0)
			if err != nil {
				return nil, false, err
			}
			if _, clash := in.ops[name]; clash {
				return nil, false, fmt.Errorf("%q is a method name", name)
			}
			in.vars[name] = recv
			return nil, false, nil
		},

		"filepath": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			g, err := recvGraph(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			return g.Path(), true, nil
		},

		"v": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			g, err := recvGraph(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			return g.Vertices(), true, nil
		},

		"e": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			g, err := recvGraph(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			return g.Edges(), true, nil
		},

		"graphviz": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			g, err := recvGraph(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			path, err := argString(args, 0)
			if err != nil {
				return nil, false, err
			}
			return nil, false, g.SaveDOT(path)
		},

		"commit": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			g, err := recvGraph(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			return nil, false, g.Commit()
		},

		"rollback": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			g, err := recvGraph(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			return nil, false, g.Rollback()
		},

		"add_vertex": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			g, err := recvGraph(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			v, err := g.AddVertex()
			if err != nil {
				return nil, false, err
			}
			return v, true, nil
		},

		"add_edge": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			v, err := recvVertices(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			to, err := argVertices(args, 0)
			if err != nil {
				return nil, false, err
			}
			e := v.AddEdge(to)
			return e, true, e.Err()
		},

		"with_label": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			label, err := argString(args, 0)
			if err != nil {
				return nil, false, err
			}
			return onSelection(recv, hasRecv,
				func(v graph.Vertices) (Value, error) { return v.WithLabel(label), nil },
				func(e graph.Edges) (Value, error) { return e.WithLabel(label), nil })
		},

		"with_tag": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			key, err := argString(args, 0)
			if err != nil {
				return nil, false, err
			}
			value, err := argString(args, 1)
			if err != nil {
				return nil, false, err
			}
			return onSelection(recv, hasRecv,
				func(v graph.Vertices) (Value, error) { return v.WithTag(key, value), nil },
				func(e graph.Edges) (Value, error) { return e.WithTag(key, value), nil })
		},

		"with_id": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			id, err := argUint(args, 0)
			if err != nil {
				return nil, false, err
			}
			return onSelection(recv, hasRecv,
				func(v graph.Vertices) (Value, error) { return v.WithID(id), nil },
				func(e graph.Edges) (Value, error) { return e.WithID(id), nil })
		},

		"join": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			return onSelection(recv, hasRecv,
				func(v graph.Vertices) (Value, error) {
					o, err := argVertices(args, 0)
					if err != nil {
						return nil, err
					}
					return v.Join(o), nil
				},
				func(e graph.Edges) (Value, error) {
					o, err := argEdges(args, 0)
					if err != nil {
						return nil, err
					}
					return e.Join(o), nil
				})
		},

		"intersection": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			return onSelection(recv, hasRecv,
				func(v graph.Vertices) (Value, error) {
					o, err := argVertices(args, 0)
					if err != nil {
						return nil, err
					}
					return v.Intersect(o), nil
				},
				func(e graph.Edges) (Value, error) {
					o, err := argEdges(args, 0)
					if err != nil {
						return nil, err
					}
					return e.Intersect(o), nil
				})
		},

		"complement": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			return onSelection(recv, hasRecv,
				func(v graph.Vertices) (Value, error) {
					o, err := argVertices(args, 0)
					if err != nil {
						return nil, err
					}
					return v.Complement(o), nil
				},
				func(e graph.Edges) (Value, error) {
					o, err := argEdges(args, 0)
					if err != nil {
						return nil, err
					}
					return e.Complement(o), nil
				})
		},

		// label() reads labels; label(s) writes s and yields the same
		// selection for further chaining. tag follows the same shape.
		"label": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			if len(args) == 0 {
				return materialize(recv, hasRecv,
					func(v graph.Vertices) (*graph.Result, error) { return v.Label() },
					func(e graph.Edges) (*graph.Result, error) { return e.Label() })
			}
			label, err := argString(args, 0)
			if err != nil {
				return nil, false, err
			}
			return onSelection(recv, hasRecv,
				func(v graph.Vertices) (Value, error) { s := v.SetLabel(label); return s, s.Err() },
				func(e graph.Edges) (Value, error) { s := e.SetLabel(label); return s, s.Err() })
		},

		"tag": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			key, err := argString(args, 0)
			if err != nil {
				return nil, false, err
			}
			if len(args) == 1 {
				return materialize(recv, hasRecv,
					func(v graph.Vertices) (*graph.Result, error) { return v.Tag(key) },
					func(e graph.Edges) (*graph.Result, error) { return e.Tag(key) })
			}
			value, err := argString(args, 1)
			if err != nil {
				return nil, false, err
			}
			return onSelection(recv, hasRecv,
				func(v graph.Vertices) (Value, error) { s := v.SetTag(key, value); return s, s.Err() },
				func(e graph.Edges) (Value, error) { s := e.SetTag(key, value); return s, s.Err() })
		},

		"id": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			var ids []uint64
			var err error
			switch sel := recv.(type) {
			case graph.Vertices:
				ids, err = sel.IDs()
			case graph.Edges:
				ids, err = sel.IDs()
			default:
				return nil, false, fmt.Errorf("needs a selection receiver")
			}
			if err != nil {
				return nil, false, err
			}
			res := &graph.Result{Headers: []string{"id"}}
			for _, id := range ids {
				res.Body = append(res.Body, []string{strconv.FormatUint(id, 10)})
			}
			return res, true, nil
		},

		"erase": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			switch sel := recv.(type) {
			case graph.Vertices:
				return nil, false, sel.Erase()
			case graph.Edges:
				return nil, false, sel.Erase()
			}
			return nil, false, fmt.Errorf("needs a selection receiver")
		},

		"in": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			v, err := recvVertices(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			return v.In(), true, nil
		},

		"out": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			v, err := recvVertices(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			return v.Out(), true, nil
		},

		"with_in_degree": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			v, err := recvVertices(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			n, err := argUint(args, 0)
			if err != nil {
				return nil, false, err
			}
			return v.WithInDegree(n), true, nil
		},

		"with_out_degree": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			v, err := recvVertices(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			n, err := argUint(args, 0)
			if err != nil {
				return nil, false, err
			}
			return v.WithOutDegree(n), true, nil
		},

		"with_source": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			e, err := recvEdges(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			src, err := argVertices(args, 0)
			if err != nil {
				return nil, false, err
			}
			return e.WithSource(src), true, nil
		},

		"with_target": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			e, err := recvEdges(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			tgt, err := argVertices(args, 0)
			if err != nil {
				return nil, false, err
			}
			return e.WithTarget(tgt), true, nil
		},

		"source": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			e, err := recvEdges(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			return e.Source(), true, nil
		},

		"target": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			e, err := recvEdges(recv, hasRecv)
			if err != nil {
				return nil, false, err
			}
			return e.Target(), true, nil
		},

		"traverse": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			return traverseOp(recv, hasRecv, args, graph.Vertices.Traverse)
		},

		"r_traverse": func(recv Value, hasRecv bool, args []Value) (Value, bool, error) {
			return traverseOp(recv, hasRecv, args, graph.Vertices.RTraverse)
		},
	}
}

func traverseOp(recv Value, hasRecv bool, args []Value,
	walk func(graph.Vertices, string, string) graph.Vertices) (Value, bool, error) {
	v, err := recvVertices(recv, hasRecv)
	if err != nil {
		return nil, false, err
	}
	var nodeWhere, edgeWhere string
	if len(args) >= 1 {
		if nodeWhere, err = argString(args, 0); err != nil {
			return nil, false, err
		}
	}
	if len(args) == 2 {
		if edgeWhere, err = argString(args, 1); err != nil {
			return nil, false, err
		}
	}
	return walk(v, nodeWhere, edgeWhere), true, nil
}

// onSelection dispatches an operation on the receiver's kind.
func onSelection(recv Value, hasRecv bool,
	vop func(graph.Vertices) (Value, error),
	eop func(graph.Edges) (Value, error)) (Value, bool, error) {
	if !hasRecv {
		return nil, false, fmt.Errorf("needs a selection receiver")
	}
	var out Value
	var err error
	switch sel := recv.(type) {
	case graph.Vertices:
		out, err = vop(sel)
	case graph.Edges:
		out, err = eop(sel)
	default:
		return nil, false, fmt.Errorf("receiver is not a selection")
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// materialize dispatches a result-producing operation on the
// receiver's kind.
func materialize(recv Value, hasRecv bool,
	vop func(graph.Vertices) (*graph.Result, error),
	eop func(graph.Edges) (*graph.Result, error)) (Value, bool, error) {
	if !hasRecv {
		return nil, false, fmt.Errorf("needs a selection receiver")
	}
	var res *graph.Result
	var err error
	switch sel := recv.(type) {
	case graph.Vertices:
		res, err = vop(sel)
	case graph.Edges:
		res, err = eop(sel)
	default:
		return nil, false, fmt.Errorf("receiver is not a selection")
	}
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}
