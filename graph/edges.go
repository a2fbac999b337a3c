package graph

import (
	"fmt"

	"github.com/gqlite/gqlite/codec"
)

// Edges is a lazy, immutable selection of edge rows. It composes the
// same way Vertices does; see the package documentation.
type Edges struct {
	sel selection
}

func newEdges(g *Graph, cmd string) Edges {
	return Edges{sel: newSelection(g, "edges", cmd)}
}

func (e Edges) withSel(s selection) Edges {
	return Edges{sel: s}
}

// Err returns the sticky error carried by the selection, if any.
func (e Edges) Err() error {
	return e.sel.err
}

// Where narrows to edges satisfying a raw SQL condition over the row
// (id, source, target, label, tags). Label and tag content is stored
// codec-encoded.
func (e Edges) Where(cond string) Edges {
	if e.sel.err != nil {
		return e
	}
	return newEdges(e.sel.g, fmt.Sprintf("SELECT * FROM (%s) WHERE %s", e.sel.cmd, cond))
}

// Filter narrows to edges for which pred returns true, materializing
// one single-edge selection per element. One backend round trip per
// candidate row; prefer the text combinators when they can express the
// condition.
func (e Edges) Filter(pred func(Edges) (bool, error)) Edges {
	if e.sel.err != nil {
		return e
	}
	ids, err := e.sel.ids()
	if err != nil {
		return e.withSel(e.sel.fail(err))
	}
	var keep []uint64
	for _, id := range ids {
		ok, err := pred(e.sel.g.Edges().WithID(id))
		if err != nil {
			return e.withSel(e.sel.fail(fmt.Errorf("filter predicate on edge %d: %w", id, err)))
		}
		if ok {
			keep = append(keep, id)
		}
	}
	return e.withSel(selection{g: e.sel.g, table: "edges", cmd: flatIDCmd("edges", keep)})
}

// Limit narrows to at most n edges.
func (e Edges) Limit(n uint64) Edges {
	if e.sel.err != nil {
		return e
	}
	return newEdges(e.sel.g, fmt.Sprintf("SELECT * FROM (%s) LIMIT %d", e.sel.cmd, n))
}

// WithSource narrows to edges whose source lies in the given vertex
// selection.
func (e Edges) WithSource(source Vertices) Edges {
	if err := e.sel.compatible(source.sel); err != nil {
		return e.withSel(e.sel.fail(err))
	}
	return newEdges(e.sel.g, fmt.Sprintf(
		"SELECT * FROM (%s) WHERE source IN (SELECT id FROM (%s))", e.sel.cmd, source.sel.cmd))
}

// WithTarget narrows to edges whose target lies in the given vertex
// selection.
func (e Edges) WithTarget(target Vertices) Edges {
	if err := e.sel.compatible(target.sel); err != nil {
		return e.withSel(e.sel.fail(err))
	}
	return newEdges(e.sel.g, fmt.Sprintf(
		"SELECT * FROM (%s) WHERE target IN (SELECT id FROM (%s))", e.sel.cmd, target.sel.cmd))
}

// WithLabel narrows to edges carrying exactly the given label.
func (e Edges) WithLabel(label string) Edges {
	if e.sel.err != nil {
		return e
	}
	return newEdges(e.sel.g, fmt.Sprintf("SELECT * FROM (%s) WHERE label = '%s'",
		e.sel.cmd, codec.EncodeString(label)))
}

// WithTag narrows to edges whose tag key holds exactly value.
func (e Edges) WithTag(key, value string) Edges {
	if e.sel.err != nil {
		return e
	}
	return newEdges(e.sel.g, fmt.Sprintf(
		"SELECT * FROM (%s) WHERE json_extract(tags, '$.%s') = '%s'",
		e.sel.cmd, codec.EncodeString(key), codec.EncodeString(value)))
}

// WithID narrows to the edge with the given id.
func (e Edges) WithID(id uint64) Edges {
	if e.sel.err != nil {
		return e
	}
	return newEdges(e.sel.g, fmt.Sprintf("SELECT * FROM (%s) WHERE id = %d", e.sel.cmd, id))
}

// Join selects edges in either operand or both (set union).
func (e Edges) Join(other Edges) Edges {
	if err := e.sel.compatible(other.sel); err != nil {
		return e.withSel(e.sel.fail(err))
	}
	return newEdges(e.sel.g, fmt.Sprintf("%s UNION %s", e.sel.cmd, other.sel.cmd))
}

// Intersect selects edges present in both operands.
func (e Edges) Intersect(other Edges) Edges {
	if err := e.sel.compatible(other.sel); err != nil {
		return e.withSel(e.sel.fail(err))
	}
	return newEdges(e.sel.g, fmt.Sprintf("%s INTERSECT %s", e.sel.cmd, other.sel.cmd))
}

// Complement selects edges of universe not present in e.
func (e Edges) Complement(universe Edges) Edges {
	if err := e.sel.compatible(universe.sel); err != nil {
		return e.withSel(e.sel.fail(err))
	}
	return newEdges(e.sel.g, fmt.Sprintf(
		"SELECT * FROM (%s) WHERE id NOT IN (SELECT id FROM (%s))",
		universe.sel.cmd, e.sel.cmd))
}

// Excluding selects edges of e not present in subset.
func (e Edges) Excluding(subset Edges) Edges {
	if err := e.sel.compatible(subset.sel); err != nil {
		return e.withSel(e.sel.fail(err))
	}
	return newEdges(e.sel.g, fmt.Sprintf(
		"SELECT * FROM (%s) WHERE id NOT IN (SELECT id FROM (%s))",
		e.sel.cmd, subset.sel.cmd))
}

// Source selects the vertices acting as source of any selected edge.
func (e Edges) Source() Vertices {
	if e.sel.err != nil {
		return Vertices{sel: selection{g: e.sel.g, table: "nodes", err: e.sel.err}}
	}
	return newVertices(e.sel.g, fmt.Sprintf(
		"SELECT * FROM nodes WHERE id IN (SELECT source AS id FROM (%s))", e.sel.cmd))
}

// Target selects the vertices acting as target of any selected edge.
func (e Edges) Target() Vertices {
	if e.sel.err != nil {
		return Vertices{sel: selection{g: e.sel.g, table: "nodes", err: e.sel.err}}
	}
	return newVertices(e.sel.g, fmt.Sprintf(
		"SELECT * FROM nodes WHERE id IN (SELECT target AS id FROM (%s))", e.sel.cmd))
}

// IDs materializes the ascending id list.
func (e Edges) IDs() ([]uint64, error) {
	return e.sel.ids()
}

// Label materializes (id, label), labels decoded, ordered by id.
func (e Edges) Label() (*Result, error) {
	return e.sel.label()
}

// Tag materializes (id, <key>) with decoded values; edges lacking the
// key carry the NULL cell.
func (e Edges) Tag(key string) (*Result, error) {
	return e.sel.tag(key)
}

// Tags materializes several columns at once. The keys "id", "source",
// "target", "label" and "tags" name table columns; any other key is
// read from the tag blob.
func (e Edges) Tags(keys ...string) (*Result, error) {
	return e.sel.tagColumns(keys, map[string]bool{
		"label": true, "tags": true, "source": true, "target": true,
	})
}

// Keys materializes the distinct decoded tag keys over the selection.
func (e Edges) Keys() ([]string, error) {
	return e.sel.keySet()
}

// Select is the raw escape hatch: SELECT id, <expr> FROM (...).
func (e Edges) Select(expr string) (*Result, error) {
	return e.sel.selectExpr(expr)
}

// SetLabel writes label onto every selected edge and returns a
// selection over the same rows.
func (e Edges) SetLabel(label string) Edges {
	if err := e.sel.setLabel(label); err != nil {
		return e.withSel(e.sel.fail(fmt.Errorf("set label: %w", err)))
	}
	return e
}

// SetTag associates key with value on every selected edge and returns
// a selection over the same rows.
func (e Edges) SetTag(key, value string) Edges {
	if err := e.sel.setTag(key, value); err != nil {
		return e.withSel(e.sel.fail(fmt.Errorf("set tag: %w", err)))
	}
	return e
}

// Erase deletes the selected edges. Vertices are untouched.
func (e Edges) Erase() error {
	if e.sel.err != nil {
		return e.sel.err
	}
	err := e.sel.g.exec(fmt.Sprintf(
		"DELETE FROM edges WHERE id IN (SELECT id FROM (%s))", e.sel.cmd))
	if err != nil {
		return fmt.Errorf("erase edges: %w", err)
	}
	return nil
}

// Each breaks the selection into one single-edge selection per
// element, ordered by id.
func (e Edges) Each() ([]Edges, error) {
	ids, err := e.sel.ids()
	if err != nil {
		return nil, err
	}
	out := make([]Edges, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.sel.g.Edges().WithID(id))
	}
	return out, nil
}
