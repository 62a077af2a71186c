package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/models"
	"github.com/peakplanner/peakplanner_core/internal/region"
)

// valleyGraph models two peak groups separated by a drive:
//
//	lot100 - peak1 - peak2 - lot101 - peak3
//
// Peaks 1 and 2 connect on trails; reaching peak 3 from them requires
// passing through lot101, so peak 3 is its own cluster.
func valleyGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, v := range []models.Vertex{
		{ID: 1, Kind: models.KindPeak, Code: "A"},
		{ID: 2, Kind: models.KindPeak, Code: "B"},
		{ID: 3, Kind: models.KindPeak, Code: "C"},
		{ID: 100, Kind: models.KindLot},
		{ID: 101, Kind: models.KindLot},
	} {
		require.NoError(t, g.AddVertex(v))
	}
	for _, e := range []models.Edge{
		{From: 100, To: 1, DKm: 1.0, Kind: models.EdgeTrail},
		{From: 1, To: 2, DKm: 2.0, Kind: models.EdgeTrail},
		{From: 2, To: 101, DKm: 1.0, Kind: models.EdgeTrail},
		{From: 101, To: 3, DKm: 1.0, Kind: models.EdgeTrail},
	} {
		require.NoError(t, g.AddEdge(e))
	}
	return g
}

func TestDiscoverSplitsAtLots(t *testing.T) {
	g := valleyGraph(t)

	clusters, disconnected, err := Discover(g, []int64{1, 2, 3}, nil)
	require.NoError(t, err)
	assert.Empty(t, disconnected)
	require.Len(t, clusters, 2)

	assert.Equal(t, []int64{1, 2}, clusters[0].Peaks)
	assert.Equal(t, []int64{3}, clusters[1].Peaks)
}

func TestDiscoverAttachesLots(t *testing.T) {
	g := valleyGraph(t)

	clusters, _, err := Discover(g, []int64{1, 2, 3}, nil)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	// Both lots serve the {1,2} group: lot100 reaches peak 1 directly and
	// lot101 reaches peak 2 directly. Only lot101 serves peak 3.
	assert.Equal(t, []int64{100, 101}, clusters[0].Lots)
	assert.Equal(t, []int64{101}, clusters[1].Lots)
}

func TestDiscoverLotBehindPeakNotAttached(t *testing.T) {
	// A lot whose only route to a cluster crosses one of that cluster's
	// peaks first can still serve it (the peak is part of the plan), but
	// a lot that must cross a peak of a DIFFERENT cluster is not attached
	// to the far cluster.
	g := valleyGraph(t)

	clusters, _, err := Discover(g, []int64{1, 2, 3}, nil)
	require.NoError(t, err)

	// lot100 reaches peak 3 only over peaks 1 and 2 and through lot101;
	// the lot-free search from lot100 never enters lot101, so peak 3 is
	// unreachable from it and lot100 is not attached.
	assert.NotContains(t, clusters[1].Lots, int64(100))
}

func TestDiscoverDisconnectedPeak(t *testing.T) {
	g := valleyGraph(t)
	require.NoError(t, g.AddVertex(models.Vertex{ID: 9, Kind: models.KindPeak, Code: "X"}))

	clusters, disconnected, err := Discover(g, []int64{1, 2, 9}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, disconnected)
	require.Len(t, clusters, 1)
	assert.Equal(t, []int64{1, 2}, clusters[0].Peaks)
}

func TestDiscoverForcedClusters(t *testing.T) {
	g := valleyGraph(t)
	reg := &region.Region{
		ForcedClusters: [][]string{{"A"}, {"B"}},
	}

	clusters, _, err := Discover(g, []int64{1, 2, 3}, reg)
	require.NoError(t, err)
	require.Len(t, clusters, 3)

	// The connected {1,2} component is split in two by the forced
	// partition; peak 3 keeps its own cluster.
	assert.Equal(t, []int64{1}, clusters[0].Peaks)
	assert.Equal(t, []int64{2}, clusters[1].Peaks)
	assert.Equal(t, []int64{3}, clusters[2].Peaks)
}

func TestDiscoverForcedClusterUnknownCode(t *testing.T) {
	g := valleyGraph(t)
	reg := &region.Region{ForcedClusters: [][]string{{"ZZ"}}}

	_, _, err := Discover(g, []int64{1, 2}, reg)
	assert.Error(t, err)
}

func TestDiscoverSubsetOfPeaks(t *testing.T) {
	// Only peak 1 is required: peak 2 is still walked over freely, and it
	// does not split the cluster.
	g := valleyGraph(t)

	clusters, _, err := Discover(g, []int64{1}, nil)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []int64{1}, clusters[0].Peaks)
}
