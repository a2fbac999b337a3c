package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gqlite/gqlite/codec"
)

func TestWithLabel_FiltersExactly(t *testing.T) {
	g := newTestGraph(t)

	va, err := g.AddVertexWithID(1)
	require.NoError(t, err)
	require.NoError(t, va.SetLabel("red").Err())
	vb, err := g.AddVertexWithID(2)
	require.NoError(t, err)
	require.NoError(t, vb.SetLabel("blue").Err())

	assert.Equal(t, []uint64{1}, mustIDs(t, g.Vertices().WithLabel("red")))
	assert.Empty(t, mustIDs(t, g.Vertices().WithLabel("re")))
	assert.Empty(t, mustIDs(t, g.Vertices().WithLabel("")), "labels were overwritten")
}

func TestLabel_RoundTripsHostileBytes(t *testing.T) {
	g := newTestGraph(t)

	labels := []string{
		"plain",
		`it's got 'quotes' and "doubles"`,
		`{"json": [1,2]}`,
		"null\x00byte and \xff high bytes",
		"",
	}
	for i, label := range labels {
		v, err := g.AddVertexWithID(uint64(i + 1))
		require.NoError(t, err)
		require.NoError(t, v.SetLabel(label).Err())
	}

	res, err := g.Vertices().Label()
	require.NoError(t, err)
	require.Equal(t, len(labels), res.Size())
	got, err := res.Column("label")
	require.NoError(t, err)
	assert.Equal(t, labels, got)

	// And each hostile label is findable by equality filter.
	for i, label := range labels {
		assert.Equal(t, []uint64{uint64(i + 1)},
			mustIDs(t, g.Vertices().WithLabel(label)), "label %q", label)
	}
}

func TestTags_RoundTripHostileBytes(t *testing.T) {
	g := newTestGraph(t)

	key := `a 'key' with "structure" {}`
	value := "bytes: \x00\x01\xfe\xff and $.paths"
	v, err := g.AddVertex()
	require.NoError(t, err)
	require.NoError(t, v.SetTag(key, value).Err())

	res, err := g.Vertices().Tag(key)
	require.NoError(t, err)
	require.Equal(t, 1, res.Size())
	assert.Equal(t, []string{"id", key}, res.Headers)
	got, err := res.Column(key)
	require.NoError(t, err)
	assert.Equal(t, []string{value}, got)

	keys, err := g.Vertices().Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	assert.Equal(t, []uint64{1}, mustIDs(t, g.Vertices().WithTag(key, value)))
	assert.Empty(t, mustIDs(t, g.Vertices().WithTag(key, "other")))
}

func TestTag_MissingKeyYieldsNullCells(t *testing.T) {
	g := newTestGraph(t)

	v, err := g.AddVertexWithID(1)
	require.NoError(t, err)
	require.NoError(t, v.SetTag("color", "red").Err())
	_, err = g.AddVertexWithID(2)
	require.NoError(t, err)

	res, err := g.Vertices().Tag("color")
	require.NoError(t, err)
	col, err := res.Column("color")
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "NULL"}, col)
}

func TestTags_MixedColumns(t *testing.T) {
	g := newTestGraph(t)

	v, err := g.AddVertexWithID(1)
	require.NoError(t, err)
	require.NoError(t, v.SetLabel("node one").SetTag("color", "red").Err())

	res, err := g.Vertices().Tags("label", "color")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "label", "color"}, res.Headers)
	assert.Equal(t, [][]string{{"1", "node one", "red"}}, res.Body)
}

func TestSetTag_OverwritesValue(t *testing.T) {
	g := newTestGraph(t)

	v, err := g.AddVertex()
	require.NoError(t, err)
	require.NoError(t, v.SetTag("k", "v1").SetTag("k", "v2").Err())

	res, err := g.Vertices().Tag("k")
	require.NoError(t, err)
	col, err := res.Column("k")
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, col)

	keys, err := g.Vertices().Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys, "overwrite must not duplicate the key")
}

func TestJoin_Idempotent(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 4)

	s := g.VerticesWhere("id <= 2")
	assert.Equal(t, mustIDs(t, s), mustIDs(t, s.Join(s)))
}

func TestSetAlgebra_Identities(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 6)

	u := g.Vertices()
	a := g.VerticesWhere("id <= 4")
	b := g.VerticesWhere("id >= 3")

	// A∩B ∪ (A\B) ∪ (B\A) == A∪B
	lhs := a.Intersect(b).Join(a.Excluding(b)).Join(b.Excluding(a))
	assert.Equal(t, mustIDs(t, a.Join(b)), mustIDs(t, lhs))

	// A ∪ complement(A, U) == U when U ⊇ A
	assert.Equal(t, mustIDs(t, u), mustIDs(t, a.Complement(u).Join(a)))

	assert.Equal(t, []uint64{3, 4}, mustIDs(t, a.Intersect(b)))
	assert.Equal(t, []uint64{1, 2}, mustIDs(t, a.Excluding(b)))
	assert.Equal(t, []uint64{5, 6}, mustIDs(t, a.Complement(u)))
}

func TestLimit_CapsRows(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 5)

	ids, err := g.Vertices().Limit(3).IDs()
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestWhere_RawSQLCondition(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 5)

	assert.Equal(t, []uint64{2, 4}, mustIDs(t, g.Vertices().Where("id % 2 = 0")))
	// Chained conditions narrow successively.
	assert.Equal(t, []uint64{4}, mustIDs(t, g.Vertices().Where("id % 2 = 0").Where("id > 2")))
}

func TestWhere_EncodedLabelComparison(t *testing.T) {
	g := newTestGraph(t)

	v, err := g.AddVertexWithID(1)
	require.NoError(t, err)
	require.NoError(t, v.SetLabel("keep").Err())

	cond := fmt.Sprintf("label = '%s'", codec.EncodeString("keep"))
	assert.Equal(t, []uint64{1}, mustIDs(t, g.Vertices().Where(cond)))
}

func TestFilter_HostPredicate(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 5)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, g.Vertices().WithID(i).SetLabel(fmt.Sprintf("n%d", i)).Err())
	}

	odd := g.Vertices().Filter(func(v Vertices) (bool, error) {
		ids, err := v.IDs()
		if err != nil {
			return false, err
		}
		return ids[0]%2 == 1, nil
	})
	assert.Equal(t, []uint64{1, 3, 5}, mustIDs(t, odd))
}

func TestFilter_PredicateErrorIsSticky(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 2)

	bad := g.Vertices().Filter(func(Vertices) (bool, error) {
		return false, fmt.Errorf("boom")
	})
	require.Error(t, bad.Err())

	// The error surfaces at materialization and survives chaining.
	_, err := bad.WithLabel("x").IDs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestInOut_IncidentEdges(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 3) // edges 1: 1->2, 2: 2->3

	one := g.VerticesWhere("id = 1")
	two := g.VerticesWhere("id = 2")

	assert.Empty(t, mustEdgeIDs(t, one.In()))
	assert.Equal(t, []uint64{1}, mustEdgeIDs(t, one.Out()))
	assert.Equal(t, []uint64{1}, mustEdgeIDs(t, two.In()))
	assert.Equal(t, []uint64{2}, mustEdgeIDs(t, two.Out()))
	assert.Equal(t, []uint64{3}, mustIDs(t, two.Out().Target()))
}

func TestDegrees(t *testing.T) {
	g := newTestGraph(t)
	// 1 -> {2,3}; 2 -> {2,3} (self-loop on 2)
	for i := uint64(1); i <= 3; i++ {
		_, err := g.AddVertexWithID(i)
		require.NoError(t, err)
	}
	for _, pair := range [][2]uint64{{1, 2}, {1, 3}, {2, 2}, {2, 3}} {
		_, err := g.AddEdge(pair[0], pair[1])
		require.NoError(t, err)
	}

	assert.Equal(t, []uint64{1, 2}, mustIDs(t, g.Vertices().WithOutDegree(2)))
	assert.Equal(t, []uint64{2, 3}, mustIDs(t, g.Vertices().WithInDegree(2)))
	assert.Equal(t, []uint64{3}, mustIDs(t, g.Vertices().WithOutDegree(0)))

	in, err := g.Vertices().InDegree()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "in_degree"}, in.Headers)
	assert.Equal(t, [][]string{{"1", "0"}, {"2", "2"}, {"3", "2"}}, in.Body)

	out, err := g.Vertices().OutDegree()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"2", "2"}, {"3", "0"}}, out.Body)
}

func TestDegrees_EdgeConditionRestrictsCount(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 3)
	require.NoError(t, g.Edges().WithID(1).SetLabel("skip").Err())

	cond := fmt.Sprintf("label != '%s'", codec.EncodeString("skip"))
	assert.Equal(t, []uint64{1, 3}, mustIDs(t, g.Vertices().WithOutDegree(0, cond)))

	in, err := g.Vertices().InDegree(cond)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "0"}, {"2", "0"}, {"3", "1"}}, in.Body)
}

func TestAddEdge_CartesianProduct(t *testing.T) {
	g := newTestGraph(t)
	for i := uint64(1); i <= 4; i++ {
		_, err := g.AddVertexWithID(i)
		require.NoError(t, err)
	}

	left := g.VerticesWhere("id <= 2")
	right := g.VerticesWhere("id >= 3")
	created := left.AddEdge(right)
	require.NoError(t, created.Err())

	ids := mustEdgeIDs(t, created)
	assert.Len(t, ids, 4, "2x2 cartesian product")
	assert.Equal(t, []uint64{1, 2}, mustIDs(t, created.Source()))
	assert.Equal(t, []uint64{3, 4}, mustIDs(t, created.Target()))

	// The edge id counter stays unique after the bulk insert.
	e, err := g.AddEdge(1, 2)
	require.NoError(t, err)
	newIDs := mustEdgeIDs(t, e)
	require.Len(t, newIDs, 1)
	for _, id := range ids {
		assert.NotEqual(t, id, newIDs[0])
	}
}

func TestErase_CascadesToIncidentEdges(t *testing.T) {
	g := newTestGraph(t)
	// Vertex 2 has edges 1->2, 2->3, 4->2: erasing 2 removes all three.
	for i := uint64(1); i <= 4; i++ {
		_, err := g.AddVertexWithID(i)
		require.NoError(t, err)
	}
	for _, pair := range [][2]uint64{{1, 2}, {2, 3}, {4, 2}, {3, 4}} {
		_, err := g.AddEdge(pair[0], pair[1])
		require.NoError(t, err)
	}

	require.NoError(t, g.VerticesWhere("id = 2").Erase())

	assert.Equal(t, []uint64{1, 3, 4}, mustIDs(t, g.Vertices()))
	assert.Equal(t, []uint64{4}, mustEdgeIDs(t, g.Edges()), "only 3->4 survives")
}

func TestErase_AllVerticesEmptiesBothRelations(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 5)

	require.NoError(t, g.Vertices().Erase())
	assert.Empty(t, mustIDs(t, g.Vertices()))
	assert.Empty(t, mustEdgeIDs(t, g.Edges()))

	// Erasing an already-empty selection is a no-op.
	require.NoError(t, g.Vertices().Erase())
}

func TestEach_SingleVertexSelections(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 3)

	each, err := g.Vertices().Each()
	require.NoError(t, err)
	require.Len(t, each, 3)
	for i, v := range each {
		assert.Equal(t, []uint64{uint64(i + 1)}, mustIDs(t, v))
	}
}

func TestSelect_RawExpression(t *testing.T) {
	g := newTestGraph(t)
	addPath(t, g, 2)

	res, err := g.Vertices().Select("id * 10 AS scaled")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "scaled"}, res.Headers)
	assert.Equal(t, [][]string{{"1", "10"}, {"2", "20"}}, res.Body)
}
