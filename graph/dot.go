package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gqlite/gqlite/codec"
)

// WriteDOT renders the whole graph as a Graphviz directed-graph
// description: every vertex and edge with its decoded label and
// expanded tag set, ordered by id. The output is deterministic for a
// given store state.
func (g *Graph) WriteDOT(w io.Writer) error {
	nodes, err := g.query("SELECT id, label, tags FROM nodes ORDER BY id")
	if err != nil {
		return fmt.Errorf("dot export: %w", err)
	}
	edges, err := g.query("SELECT id, source, target, label, tags FROM edges ORDER BY id")
	if err != nil {
		return fmt.Errorf("dot export: %w", err)
	}

	var b strings.Builder
	b.WriteString("digraph {\n\tforcelabels=true;\n")
	for _, row := range nodes.Body {
		label, tags, err := decodeRowAttrs(row[1], row[2])
		if err != nil {
			return fmt.Errorf("dot export: vertex %s: %w", row[0], err)
		}
		fmt.Fprintf(&b, "\t%s [label=\"%s\", xlabel=\"%s\"];\n",
			row[0], dotEscape(label), dotEscape(tags))
	}
	for _, row := range edges.Body {
		label, tags, err := decodeRowAttrs(row[3], row[4])
		if err != nil {
			return fmt.Errorf("dot export: edge %s: %w", row[0], err)
		}
		fmt.Fprintf(&b, "\t%s -> %s [label=\"%s\", xlabel=\"%s\"];\n",
			row[1], row[2], dotEscape(label), dotEscape(tags))
	}
	b.WriteString("}\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("dot export: write: %w", err)
	}
	return nil
}

// SaveDOT writes the Graphviz description to a file.
func (g *Graph) SaveDOT(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dot export: open %s: %w", path, err)
	}
	if err := g.WriteDOT(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("dot export: close %s: %w", path, err)
	}
	return nil
}

// decodeRowAttrs decodes a stored label and renders the tag blob as a
// "k=v, k=v" list sorted by key.
func decodeRowAttrs(encLabel, blob string) (label, tags string, err error) {
	label, err = codec.DecodeString(encLabel)
	if err != nil {
		return "", "", fmt.Errorf("decode label: %w", err)
	}
	if blob == "{}" || blob == "" {
		return label, "", nil
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return "", "", fmt.Errorf("parse tag blob: %w", err)
	}
	// Encoded keys sort the same as decoded ones; sorting before the
	// decode keeps one code path.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, ek := range keys {
		k, err := codec.DecodeString(ek)
		if err != nil {
			return "", "", fmt.Errorf("decode tag key: %w", err)
		}
		v, err := codec.DecodeString(raw[ek])
		if err != nil {
			return "", "", fmt.Errorf("decode tag value: %w", err)
		}
		pairs = append(pairs, k+"="+v)
	}
	return label, strings.Join(pairs, ", "), nil
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func dotEscape(s string) string {
	return dotEscaper.Replace(s)
}
