package hike

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/models"
)

// elevGraph is 10 - 20 - 30 where the second edge is declared in the
// reverse direction, so traversal must swap its gain and loss.
func elevGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, v := range []models.Vertex{
		{ID: 10, Kind: models.KindLot},
		{ID: 20, Kind: models.KindJunction},
		{ID: 30, Kind: models.KindPeak},
	} {
		require.NoError(t, g.AddVertex(v))
	}
	require.NoError(t, g.AddEdge(models.Edge{
		From: 10, To: 20, DKm: 1.0, GainM: 100, LossM: 30, Kind: models.EdgeTrail,
	}))
	// Declared 30 -> 20: walking 20 -> 30 climbs this edge's loss.
	require.NoError(t, g.AddEdge(models.Edge{
		From: 30, To: 20, DKm: 1.0, GainM: 50, LossM: 120, Kind: models.EdgeTrail,
	}))
	return g
}

func TestLegGain(t *testing.T) {
	a := NewAnnotator(elevGraph(t))

	up, err := a.legGain(10, 30)
	require.NoError(t, err)
	// 100 up on the first edge, then the reversed edge contributes its
	// loss (120) as climb.
	assert.Equal(t, 220.0, up)
}

func TestElevationSymmetry(t *testing.T) {
	a := NewAnnotator(elevGraph(t))

	up, err := a.legGain(10, 30)
	require.NoError(t, err)
	down, err := a.legGain(30, 10)
	require.NoError(t, err)

	// gain(a->b) was cached, and its companion entry says the return trip
	// climbs what the outbound trip descended: 30 + 50.
	assert.Equal(t, 220.0, up)
	assert.Equal(t, 80.0, down)

	// The memo must have answered the reverse query without recomputation:
	// the reverse entry is written alongside the forward one.
	assert.Len(t, a.trees, 1)
}

func TestAnnotate(t *testing.T) {
	a := NewAnnotator(elevGraph(t))

	h, err := a.Annotate(models.Hike{DKm: 4.0, Nodes: []int64{10, 30, 10}})
	require.NoError(t, err)
	assert.Equal(t, 300, h.EleGainM) // 220 out + 80 back
	assert.Equal(t, 4.0, h.DKm)
}

func TestAnnotateAllKeepsOrder(t *testing.T) {
	a := NewAnnotator(elevGraph(t))

	hikes, err := a.AnnotateAll([]models.Hike{
		{DKm: 2.0, Nodes: []int64{10, 30}},
		{DKm: 4.0, Nodes: []int64{10, 30, 10}},
	})
	require.NoError(t, err)
	require.Len(t, hikes, 2)
	assert.Equal(t, 220, hikes[0].EleGainM)
	assert.Equal(t, 300, hikes[1].EleGainM)
}

func TestAnnotateUnreachable(t *testing.T) {
	g := elevGraph(t)
	require.NoError(t, g.AddVertex(models.Vertex{ID: 99, Kind: models.KindPeak}))
	a := NewAnnotator(g)

	_, err := a.Annotate(models.Hike{Nodes: []int64{10, 99}})
	assert.Error(t, err)
}
