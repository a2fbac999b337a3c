package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gqlite/gqlite/graph"
)

// execScript runs script text against a fresh in-memory graph bound
// to "db" and returns everything printed.
func execScript(t *testing.T, script string) string {
	t.Helper()
	g, err := graph.Open(graph.InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })

	var out bytes.Buffer
	in := NewInterp(&out, nil)
	t.Cleanup(func() { in.Close() })
	in.Bind("db", g)

	tokens, err := Lex(script)
	require.NoError(t, err)
	require.NoError(t, in.Exec(tokens))
	return out.String()
}

func TestInterp_AddAndPrintVertices(t *testing.T) {
	out := execScript(t, `
		db.add_vertex().label('first');
		db.add_vertex().label('second').tag('color', 'red');
		db.v();
	`)
	// label() after add_vertex echoes the relabeled selection.
	assert.Contains(t, out, "+ 1 'first'")
	assert.Contains(t, out, "+ 2 'second'")
	assert.Contains(t, out, "|- 'color': red")
}

func TestInterp_EdgesAndEndpoints(t *testing.T) {
	out := execScript(t, `
		db.add_vertex().as('a');
		db.add_vertex().as('b');
		a.add_edge(b).label('hop');
		db.e();
	`)
	assert.Contains(t, out, "+ 1: 1 -> 2 'hop'")
}

func TestInterp_VariablesAndSetOps(t *testing.T) {
	out := execScript(t, `
		db.add_vertex().label('x').as('first');
		db.add_vertex().label('y');
		db.v().intersection(first).id();
	`)
	assert.Contains(t, out, "id\n1\n")
	assert.NotContains(t, out, "id\n1\n2")
}

func TestInterp_IDResultShape(t *testing.T) {
	out := execScript(t, `
		db.add_vertex();
		db.add_vertex();
		db.v().id();
	`)
	assert.Contains(t, out, "id\n1\n2\n")
}

func TestInterp_EraseRemovesSelection(t *testing.T) {
	out := execScript(t, `
		db.add_vertex();
		db.add_vertex();
		db.v().with_id(1).erase();
		db.v().id();
	`)
	assert.Contains(t, out, "id\n2\n")
	assert.NotContains(t, out, "id\n1\n")
}

func TestInterp_StringStatementEchoes(t *testing.T) {
	out := execScript(t, `'hello';`)
	assert.Equal(t, "\"hello\"\n", out)
}

func TestInterp_QStopsExecution(t *testing.T) {
	g, err := graph.Open(graph.InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })

	var out bytes.Buffer
	in := NewInterp(&out, nil)
	in.Bind("db", g)

	tokens, err := Lex("q(); db.add_vertex();")
	require.NoError(t, err)
	require.NoError(t, in.Exec(tokens))
	assert.True(t, in.Stopped())
	assert.Empty(t, mustCount(t, g), "statement after q() never ran")
}

func mustCount(t *testing.T, g *graph.Graph) []uint64 {
	t.Helper()
	ids, err := g.Vertices().IDs()
	require.NoError(t, err)
	return ids
}

func TestInterp_AsRejectsMethodNames(t *testing.T) {
	g, err := graph.Open(graph.InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })

	in := NewInterp(&bytes.Buffer{}, nil)
	in.Bind("db", g)

	tokens, err := Lex("db.v().as('label');")
	require.NoError(t, err)
	err = in.Exec(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method name")
}

func TestInterp_UnknownSymbol(t *testing.T) {
	in := NewInterp(&bytes.Buffer{}, nil)
	tokens, err := Lex("nonsense;")
	require.NoError(t, err)
	err = in.Exec(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be resolved")
}

func TestInterp_UnknownMethod(t *testing.T) {
	in := NewInterp(&bytes.Buffer{}, nil)
	tokens, err := Lex("frobnicate();")
	require.NoError(t, err)
	err = in.Exec(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid method")
}

func TestInterp_MissingSemicolon(t *testing.T) {
	in := NewInterp(&bytes.Buffer{}, nil)
	tokens, err := Lex("'dangling'")
	require.NoError(t, err)
	err = in.Exec(tokens)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected ';'")
}

func TestInterp_GQLOpensOwnGraph(t *testing.T) {
	var out bytes.Buffer
	in := NewInterp(&out, nil)
	defer in.Close()

	tokens, err := Lex(`
		GQL().as('g');
		g.add_vertex().label('standalone');
		g.v();
	`)
	require.NoError(t, err)
	require.NoError(t, in.Exec(tokens))
	assert.Contains(t, out.String(), "+ 1 'standalone'")
}

func TestInterp_GraphPrintsPathAndCalls(t *testing.T) {
	out := execScript(t, `db;`)
	assert.True(t, strings.HasPrefix(out, "+ Graph object at '"), out)
	assert.Contains(t, out, "SQL calls")
}

func TestInterp_TraverseOp(t *testing.T) {
	out := execScript(t, `
		db.add_vertex().as('a');
		db.add_vertex().as('b');
		db.add_vertex();
		a.add_edge(b);
		a.traverse().id();
	`)
	assert.True(t, strings.HasSuffix(out, "id\n1\n2\n\n"), "vertex 3 is unreachable: %q", out)
}
