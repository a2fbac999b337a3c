package graph

import (
	"fmt"

	"github.com/gqlite/gqlite/codec"
)

// Vertices is a lazy, immutable selection of vertex rows. Combinators
// return new selections without touching the store; materializing
// calls compile the current expression, execute it, and surface any
// error carried from earlier combinators.
type Vertices struct {
	sel selection
}

func newVertices(g *Graph, cmd string) Vertices {
	return Vertices{sel: newSelection(g, "nodes", cmd)}
}

func (v Vertices) withSel(s selection) Vertices {
	return Vertices{sel: s}
}

// Err returns the sticky error carried by the selection, if any.
func (v Vertices) Err() error {
	return v.sel.err
}

// Where narrows to vertices satisfying a raw SQL condition over the
// row (id, label, tags). Label and tag content is stored
// codec-encoded; encode comparison literals with the codec package.
func (v Vertices) Where(cond string) Vertices {
	if v.sel.err != nil {
		return v
	}
	return newVertices(v.sel.g, fmt.Sprintf("SELECT * FROM (%s) WHERE %s", v.sel.cmd, cond))
}

// Filter narrows to vertices for which pred returns true. Unlike the
// text combinators, which compile into a single statement, Filter
// materializes the selection element by element and evaluates pred
// against a single-vertex selection per element: one extra backend
// round trip per candidate row, in exchange for arbitrary host logic.
func (v Vertices) Filter(pred func(Vertices) (bool, error)) Vertices {
	if v.sel.err != nil {
		return v
	}
	ids, err := v.sel.ids()
	if err != nil {
		return v.withSel(v.sel.fail(err))
	}
	var keep []uint64
	for _, id := range ids {
		ok, err := pred(v.sel.g.Vertices().WithID(id))
		if err != nil {
			return v.withSel(v.sel.fail(fmt.Errorf("filter predicate on vertex %d: %w", id, err)))
		}
		if ok {
			keep = append(keep, id)
		}
	}
	return v.withSel(selection{g: v.sel.g, table: "nodes", cmd: flatIDCmd("nodes", keep)})
}

// Limit narrows to at most n vertices.
func (v Vertices) Limit(n uint64) Vertices {
	if v.sel.err != nil {
		return v
	}
	return newVertices(v.sel.g, fmt.Sprintf("SELECT * FROM (%s) LIMIT %d", v.sel.cmd, n))
}

// WithLabel narrows to vertices carrying exactly the given label.
func (v Vertices) WithLabel(label string) Vertices {
	if v.sel.err != nil {
		return v
	}
	return newVertices(v.sel.g, fmt.Sprintf("SELECT * FROM (%s) WHERE label = '%s'",
		v.sel.cmd, codec.EncodeString(label)))
}

// WithTag narrows to vertices whose tag key holds exactly value.
func (v Vertices) WithTag(key, value string) Vertices {
	if v.sel.err != nil {
		return v
	}
	return newVertices(v.sel.g, fmt.Sprintf(
		"SELECT * FROM (%s) WHERE json_extract(tags, '$.%s') = '%s'",
		v.sel.cmd, codec.EncodeString(key), codec.EncodeString(value)))
}

// WithID narrows to the vertex with the given id.
func (v Vertices) WithID(id uint64) Vertices {
	if v.sel.err != nil {
		return v
	}
	return newVertices(v.sel.g, fmt.Sprintf("SELECT * FROM (%s) WHERE id = %d", v.sel.cmd, id))
}

// Join selects vertices in either operand or both (set union).
func (v Vertices) Join(other Vertices) Vertices {
	if err := v.sel.compatible(other.sel); err != nil {
		return v.withSel(v.sel.fail(err))
	}
	return newVertices(v.sel.g, fmt.Sprintf("%s UNION %s", v.sel.cmd, other.sel.cmd))
}

// Intersect selects vertices present in both operands.
func (v Vertices) Intersect(other Vertices) Vertices {
	if err := v.sel.compatible(other.sel); err != nil {
		return v.withSel(v.sel.fail(err))
	}
	return newVertices(v.sel.g, fmt.Sprintf("%s INTERSECT %s", v.sel.cmd, other.sel.cmd))
}

// Complement selects vertices of universe not present in v.
func (v Vertices) Complement(universe Vertices) Vertices {
	if err := v.sel.compatible(universe.sel); err != nil {
		return v.withSel(v.sel.fail(err))
	}
	return newVertices(v.sel.g, fmt.Sprintf(
		"SELECT * FROM (%s) WHERE id NOT IN (SELECT id FROM (%s))",
		universe.sel.cmd, v.sel.cmd))
}

// Excluding selects vertices of v not present in subset.
func (v Vertices) Excluding(subset Vertices) Vertices {
	if err := v.sel.compatible(subset.sel); err != nil {
		return v.withSel(v.sel.fail(err))
	}
	return newVertices(v.sel.g, fmt.Sprintf(
		"SELECT * FROM (%s) WHERE id NOT IN (SELECT id FROM (%s))",
		v.sel.cmd, subset.sel.cmd))
}

// In selects the edges leading into these vertices.
func (v Vertices) In() Edges {
	if v.sel.err != nil {
		return Edges{sel: selection{g: v.sel.g, table: "edges", err: v.sel.err}}
	}
	return newEdges(v.sel.g, fmt.Sprintf(
		"SELECT * FROM edges WHERE target IN (SELECT id FROM (%s))", v.sel.cmd))
}

// Out selects the edges leading out of these vertices.
func (v Vertices) Out() Edges {
	if v.sel.err != nil {
		return Edges{sel: selection{g: v.sel.g, table: "edges", err: v.sel.err}}
	}
	return newEdges(v.sel.g, fmt.Sprintf(
		"SELECT * FROM edges WHERE source IN (SELECT id FROM (%s))", v.sel.cmd))
}

// WithInDegree narrows to vertices with exactly n incoming edges. An
// optional raw SQL condition restricts which edges are counted.
func (v Vertices) WithInDegree(n uint64, edgeWhere ...string) Vertices {
	return v.withDegree("target", n, firstCond(edgeWhere))
}

// WithOutDegree narrows to vertices with exactly n outgoing edges.
func (v Vertices) WithOutDegree(n uint64, edgeWhere ...string) Vertices {
	return v.withDegree("source", n, firstCond(edgeWhere))
}

func (v Vertices) withDegree(endpoint string, n uint64, edgeWhere string) Vertices {
	if v.sel.err != nil {
		return v
	}
	return newVertices(v.sel.g, fmt.Sprintf(
		"WITH n AS (%s) "+
			"SELECT id, label, tags FROM ("+
			"SELECT n.*, COUNT(e.id) AS c "+
			"FROM n LEFT JOIN (SELECT * FROM edges WHERE %s) e ON e.%s = n.id "+
			"GROUP BY n.id) t "+
			"WHERE t.c = %d",
		v.sel.cmd, edgeWhere, endpoint, n))
}

// InDegree materializes (id, in_degree) for every selected vertex. An
// optional raw SQL condition restricts which edges are counted.
func (v Vertices) InDegree(edgeWhere ...string) (*Result, error) {
	return v.degree("target", "in_degree", firstCond(edgeWhere))
}

// OutDegree materializes (id, out_degree) for every selected vertex.
func (v Vertices) OutDegree(edgeWhere ...string) (*Result, error) {
	return v.degree("source", "out_degree", firstCond(edgeWhere))
}

func (v Vertices) degree(endpoint, column, edgeWhere string) (*Result, error) {
	if v.sel.err != nil {
		return nil, v.sel.err
	}
	return v.sel.g.query(fmt.Sprintf(
		"WITH n AS (%s) "+
			"SELECT t.id AS id, t.c AS %s FROM ("+
			"SELECT n.id AS id, COUNT(e.id) AS c "+
			"FROM n LEFT JOIN (SELECT * FROM edges WHERE %s) e ON e.%s = n.id "+
			"GROUP BY n.id) t "+
			"ORDER BY id",
		v.sel.cmd, column, edgeWhere, endpoint))
}

// AddEdge inserts one edge from every vertex in v to every vertex in
// to (cartesian product) and returns the selection of the new edges.
func (v Vertices) AddEdge(to Vertices) Edges {
	if err := v.sel.compatible(to.sel); err != nil {
		return Edges{sel: selection{g: v.sel.g, table: "edges", err: err}}
	}
	g := v.sel.g
	err := g.exec(fmt.Sprintf(
		"INSERT INTO edges (source, target) SELECT l.id, r.id FROM (%s) l CROSS JOIN (%s) r",
		v.sel.cmd, to.sel.cmd))
	if err != nil {
		return Edges{sel: selection{g: g, table: "edges", err: fmt.Errorf("add edges: %w", err)}}
	}
	// The bulk insert let SQLite assign ids; re-prime the counter so
	// later unkeyed inserts stay unique.
	maxID, err := g.maxID("edges")
	if err != nil {
		return Edges{sel: selection{g: g, table: "edges", err: err}}
	}
	if maxID >= g.nextEdgeID {
		g.nextEdgeID = maxID + 1
	}
	return newEdges(g, fmt.Sprintf(
		"SELECT * FROM edges WHERE (source, target) IN (SELECT l.id, r.id FROM (%s) l CROSS JOIN (%s) r)",
		v.sel.cmd, to.sel.cmd))
}

// Traverse computes the forward reachability fixed point: starting
// from these vertices, repeatedly add the target of any edge whose
// source is already included, whose edge row satisfies edgeWhere, and
// whose target row satisfies nodeWhere. Conditions are raw SQL over
// the aliases "edges" (candidate edge) and "nodes" (candidate target);
// empty strings mean unconditional. Seed vertices are always included.
// Cycles are absorbed by set semantics: each vertex is added at most
// once, with cost and termination governed by SQLite's recursive
// evaluator.
func (v Vertices) Traverse(nodeWhere, edgeWhere string) Vertices {
	return v.traverse("source", "target", nodeWhere, edgeWhere)
}

// RTraverse is Traverse following edges backward: it adds the source
// of any edge whose target is already included.
func (v Vertices) RTraverse(nodeWhere, edgeWhere string) Vertices {
	return v.traverse("target", "source", nodeWhere, edgeWhere)
}

func (v Vertices) traverse(from, to, nodeWhere, edgeWhere string) Vertices {
	if v.sel.err != nil {
		return v
	}
	if nodeWhere == "" {
		nodeWhere = "1"
	}
	if edgeWhere == "" {
		edgeWhere = "1"
	}
	return newVertices(v.sel.g, fmt.Sprintf(
		"WITH RECURSIVE walk(id) AS ("+
			"SELECT id FROM (%s) "+
			"UNION "+
			"SELECT edges.%s FROM edges "+
			"JOIN walk ON edges.%s = walk.id "+
			"JOIN nodes ON nodes.id = edges.%s "+
			"WHERE (%s) AND (%s)) "+
			"SELECT * FROM nodes WHERE id IN (SELECT id FROM walk)",
		v.sel.cmd, to, from, to, edgeWhere, nodeWhere))
}

// IDs materializes the ascending id list.
func (v Vertices) IDs() ([]uint64, error) {
	return v.sel.ids()
}

// Label materializes (id, label), labels decoded, ordered by id.
func (v Vertices) Label() (*Result, error) {
	return v.sel.label()
}

// Tag materializes (id, <key>) with the value each vertex associates
// with key, decoded; vertices lacking the key carry the NULL cell.
func (v Vertices) Tag(key string) (*Result, error) {
	return v.sel.tag(key)
}

// Tags materializes several columns at once. The keys "id", "label"
// and "tags" name table columns; any other key is read from the tag
// blob.
func (v Vertices) Tags(keys ...string) (*Result, error) {
	return v.sel.tagColumns(keys, map[string]bool{"label": true, "tags": true})
}

// Keys materializes the distinct decoded tag keys over the selection.
func (v Vertices) Keys() ([]string, error) {
	return v.sel.keySet()
}

// Select is the raw escape hatch: SELECT id, <expr> FROM (...). The
// result is returned exactly as stored, so label and tag content stays
// encoded.
func (v Vertices) Select(expr string) (*Result, error) {
	return v.sel.selectExpr(expr)
}

// SetLabel writes label onto every selected vertex and returns a
// selection over the same, now relabeled, rows.
func (v Vertices) SetLabel(label string) Vertices {
	if err := v.sel.setLabel(label); err != nil {
		return v.withSel(v.sel.fail(fmt.Errorf("set label: %w", err)))
	}
	return v
}

// SetTag associates key with value on every selected vertex and
// returns a selection over the same rows.
func (v Vertices) SetTag(key, value string) Vertices {
	if err := v.sel.setTag(key, value); err != nil {
		return v.withSel(v.sel.fail(fmt.Errorf("set tag: %w", err)))
	}
	return v
}

// Erase deletes the selected vertices together with every edge that
// references one of them as source or target. Membership is pinned
// before any deletion so selections defined in terms of edges cannot
// shift mid-erase; a full dangling-edge sweep runs afterwards.
func (v Vertices) Erase() error {
	if v.sel.err != nil {
		return v.sel.err
	}
	g := v.sel.g
	ids, err := v.sel.ids()
	if err != nil {
		return fmt.Errorf("erase vertices: %w", err)
	}
	if len(ids) > 0 {
		list := idCSV(ids)
		if err := g.exec(fmt.Sprintf(
			"DELETE FROM edges WHERE source IN (%s) OR target IN (%s)", list, list)); err != nil {
			return fmt.Errorf("erase incident edges: %w", err)
		}
		if err := g.exec(fmt.Sprintf("DELETE FROM nodes WHERE id IN (%s)", list)); err != nil {
			return fmt.Errorf("erase vertices: %w", err)
		}
	}
	err = g.exec("WITH ids AS (SELECT id FROM nodes) " +
		"DELETE FROM edges WHERE source NOT IN ids OR target NOT IN ids")
	if err != nil {
		return fmt.Errorf("sweep dangling edges: %w", err)
	}
	return nil
}

// Each breaks the selection into one single-vertex selection per
// element, ordered by id.
func (v Vertices) Each() ([]Vertices, error) {
	ids, err := v.sel.ids()
	if err != nil {
		return nil, err
	}
	out := make([]Vertices, 0, len(ids))
	for _, id := range ids {
		out = append(out, v.sel.g.Vertices().WithID(id))
	}
	return out, nil
}

func firstCond(conds []string) string {
	if len(conds) > 0 && conds[0] != "" {
		return conds[0]
	}
	return "1"
}
