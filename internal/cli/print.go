package cli

import (
	"fmt"
	"strings"

	"github.com/gqlite/gqlite/graph"
)

// print renders a statement's value. Vertex and edge selections are
// shown one element per block with their label and tag set; graphs
// show their path and backend call count; results print as tables.
func (in *Interp) print(v Value) error {
	var b strings.Builder
	switch val := v.(type) {
	case string:
		fmt.Fprintf(&b, "\"%s\"", val)
	case *graph.Result:
		b.WriteString(val.String())
	case *graph.Graph:
		fmt.Fprintf(&b, "+ Graph object at '%s' w/ %d SQL calls\n", val.Path(), val.Calls())
	case graph.Vertices:
		each, err := val.Each()
		if err != nil {
			return err
		}
		for _, one := range each {
			if err := printVertex(&b, one); err != nil {
				return err
			}
		}
	case graph.Edges:
		each, err := val.Each()
		if err != nil {
			return err
		}
		for _, one := range each {
			if err := printEdge(&b, one); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unprintable value %T", v)
	}
	b.WriteByte('\n')
	_, err := fmt.Fprint(in.out, b.String())
	return err
}

func printVertex(b *strings.Builder, v graph.Vertices) error {
	ids, err := v.IDs()
	if err != nil {
		return err
	}
	label, err := singleCell(v.Label, "label")
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "+ %d '%s'", ids[0], label)
	if err := printTags(b, v.Keys, func(key string) (*graph.Result, error) { return v.Tag(key) }); err != nil {
		return err
	}
	b.WriteByte('\n')
	return nil
}

func printEdge(b *strings.Builder, e graph.Edges) error {
	ids, err := e.IDs()
	if err != nil {
		return err
	}
	src, err := e.Source().IDs()
	if err != nil {
		return err
	}
	tgt, err := e.Target().IDs()
	if err != nil {
		return err
	}
	label, err := singleCell(e.Label, "label")
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "+ %d: %d -> %d '%s'", ids[0], src[0], tgt[0], label)
	if err := printTags(b, e.Keys, func(key string) (*graph.Result, error) { return e.Tag(key) }); err != nil {
		return err
	}
	b.WriteByte('\n')
	return nil
}

func printTags(b *strings.Builder, keys func() ([]string, error),
	tag func(string) (*graph.Result, error)) error {
	ks, err := keys()
	if err != nil {
		return err
	}
	for _, key := range ks {
		res, err := tag(key)
		if err != nil {
			return err
		}
		col, err := res.Column(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "\n|- '%s': %s", key, col[0])
	}
	return nil
}

func singleCell(materialize func() (*graph.Result, error), column string) (string, error) {
	res, err := materialize()
	if err != nil {
		return "", err
	}
	col, err := res.Column(column)
	if err != nil {
		return "", err
	}
	return col[0], nil
}
