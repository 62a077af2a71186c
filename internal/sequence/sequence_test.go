package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/models"
)

// Fixture ids, loosely after the Spruceton range: Sherrill, North Dome and
// Westkill sit on one ridge line, so every Sherrill-Westkill walk crosses
// North Dome.
const (
	sherrill  int64 = 1
	northDome int64 = 2
	westkill  int64 = 3
)

func ridgeGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, v := range []models.Vertex{
		{ID: sherrill, Kind: models.KindPeak, Code: "S"},
		{ID: northDome, Kind: models.KindPeak, Code: "ND"},
		{ID: westkill, Kind: models.KindPeak, Code: "W"},
	} {
		require.NoError(t, g.AddVertex(v))
	}
	require.NoError(t, g.AddEdge(models.Edge{From: sherrill, To: northDome, DKm: 2.18, Kind: models.EdgeTrail}))
	require.NoError(t, g.AddEdge(models.Edge{From: northDome, To: westkill, DKm: 6.67, Kind: models.EdgeTrail}))
	return g
}

type dseq struct {
	d   float64
	seq []int64
}

func rounded(seqs []models.PeakSequence) []dseq {
	out := make([]dseq, len(seqs))
	for i, s := range seqs {
		out[i] = dseq{d: float64(int(s.DKm*100+0.5)) / 100, seq: s.Peaks}
	}
	return out
}

func enumerate(t *testing.T, g *graph.Graph, peaks []int64, maxLen int) []models.PeakSequence {
	t.Helper()
	idx, err := BuildIndex(g, peaks)
	require.NoError(t, err)
	seqs, err := Enumerate(idx, maxLen, 0)
	require.NoError(t, err)
	return seqs
}

func TestZeroSequence(t *testing.T) {
	g := ridgeGraph(t)
	seqs := enumerate(t, g, nil, 0)
	assert.Equal(t, []dseq{{0, []int64{}}}, rounded(seqs))
}

func TestOneSequence(t *testing.T) {
	// An individual peak is always a valid sequence with distance zero,
	// and so is skipping it.
	g := ridgeGraph(t)
	seqs := enumerate(t, g, []int64{northDome}, 0)
	assert.Equal(t, []dseq{
		{0, []int64{}},
		{0, []int64{northDome}},
	}, rounded(seqs))
}

func TestTwoSequence(t *testing.T) {
	// An adjacent pair can be traversed in either order.
	g := ridgeGraph(t)
	seqs := enumerate(t, g, []int64{sherrill, northDome}, 0)
	assert.Equal(t, []dseq{
		{0, []int64{}},
		{0, []int64{sherrill}},
		{0, []int64{northDome}},
		{2.18, []int64{sherrill, northDome}},
		{2.18, []int64{northDome, sherrill}},
	}, rounded(seqs))
}

func TestTwoSequenceBlocked(t *testing.T) {
	// Sherrill to Westkill crosses North Dome, which is not in the input:
	// only the zero-length sequences survive.
	g := ridgeGraph(t)
	seqs := enumerate(t, g, []int64{sherrill, westkill}, 0)
	assert.Equal(t, []dseq{
		{0, []int64{}},
		{0, []int64{sherrill}},
		{0, []int64{westkill}},
	}, rounded(seqs))
}

func TestThreeSequence(t *testing.T) {
	g := ridgeGraph(t)
	seqs := enumerate(t, g, []int64{sherrill, northDome, westkill}, 0)
	assert.Equal(t, []dseq{
		{0, []int64{}},
		{0, []int64{sherrill}},
		{0, []int64{northDome}},
		{0, []int64{westkill}},
		{2.18, []int64{sherrill, northDome}},
		{2.18, []int64{northDome, sherrill}},
		{6.67, []int64{northDome, westkill}},
		{6.67, []int64{westkill, northDome}},
		// Ridge walks end to end.
		{8.85, []int64{sherrill, northDome, westkill}},
		{8.85, []int64{westkill, northDome, sherrill}},
		// Out-and-back variants are plausible, just longer.
		{11.03, []int64{northDome, sherrill, westkill}},
		{11.03, []int64{westkill, sherrill, northDome}},
		{15.52, []int64{sherrill, westkill, northDome}},
		{15.52, []int64{northDome, westkill, sherrill}},
	}, rounded(seqs))
}

func TestBetween(t *testing.T) {
	g := ridgeGraph(t)
	idx, err := BuildIndex(g, []int64{sherrill, northDome, westkill})
	require.NoError(t, err)

	mid, blocked := idx.Between(sherrill, westkill)
	assert.False(t, blocked)
	assert.Equal(t, []int64{northDome}, mid)

	mid, blocked = idx.Between(sherrill, northDome)
	assert.False(t, blocked)
	assert.Empty(t, mid)
}

func TestPlausibilityInvariant(t *testing.T) {
	// Every consecutive pair's in-between peaks must belong to the
	// sequence.
	g := ridgeGraph(t)
	peaks := []int64{sherrill, northDome, westkill}
	idx, err := BuildIndex(g, peaks)
	require.NoError(t, err)
	seqs, err := Enumerate(idx, 0, 0)
	require.NoError(t, err)

	for _, s := range seqs {
		support := make(map[int64]bool)
		for _, p := range s.Peaks {
			support[p] = true
		}
		for i := 1; i < len(s.Peaks); i++ {
			mid, blocked := idx.Between(s.Peaks[i-1], s.Peaks[i])
			assert.False(t, blocked)
			for _, m := range mid {
				assert.True(t, support[m], "sequence %v crosses unplanned peak %d", s.Peaks, m)
			}
		}
	}
}

func TestReversibility(t *testing.T) {
	g := ridgeGraph(t)
	seqs := enumerate(t, g, []int64{sherrill, northDome, westkill}, 0)

	type key struct {
		d   float64
		rep string
	}
	have := make(map[key]bool)
	rep := func(peaks []int64) string {
		out := ""
		for _, p := range peaks {
			out += string(rune('a' + p))
		}
		return out
	}
	for _, s := range seqs {
		have[key{s.DKm, rep(s.Peaks)}] = true
	}
	for _, s := range seqs {
		rev := make([]int64, len(s.Peaks))
		for i, p := range s.Peaks {
			rev[len(s.Peaks)-1-i] = p
		}
		assert.True(t, have[key{s.DKm, rep(rev)}],
			"reverse of %v at %f missing", s.Peaks, s.DKm)
	}
}

func chainGraph(t *testing.T, n int, d float64) (*graph.Graph, []int64) {
	t.Helper()
	g := graph.New()
	peaks := make([]int64, n)
	for i := 0; i < n; i++ {
		peaks[i] = int64(i + 1)
		require.NoError(t, g.AddVertex(models.Vertex{ID: peaks[i], Kind: models.KindPeak}))
	}
	for i := 1; i < n; i++ {
		require.NoError(t, g.AddEdge(models.Edge{
			From: peaks[i-1], To: peaks[i], DKm: d, Kind: models.EdgeTrail,
		}))
	}
	return g, peaks
}

func TestSixPeakChainMinimality(t *testing.T) {
	g, peaks := chainGraph(t, 6, 2.0)
	seqs := enumerate(t, g, peaks, 0)

	var full []models.PeakSequence
	for _, s := range seqs {
		if len(s.Peaks) == 6 {
			full = append(full, s)
		}
	}
	require.NotEmpty(t, full)

	// The end-to-end traversal is the unique cheapest six-peak sequence
	// (in both directions).
	minD := full[0].DKm
	var atMin int
	for _, s := range full {
		if s.DKm == minD {
			atMin++
		} else {
			assert.Greater(t, s.DKm, minD)
		}
	}
	assert.Equal(t, 10.0, minD)
	assert.Equal(t, 2, atMin)

	// At most one sequence per (start, end, inner set) combination.
	type combo struct {
		start, end int64
	}
	perCombo := make(map[combo]int)
	for _, s := range full {
		perCombo[combo{s.Peaks[0], s.Peaks[len(s.Peaks)-1]}]++
	}
	for c, n := range perCombo {
		assert.Equal(t, 1, n, "multiple sequences for %v", c)
	}
}

func TestMaxLengthTruncates(t *testing.T) {
	g, peaks := chainGraph(t, 6, 2.0)

	idx, err := BuildIndex(g, peaks)
	require.NoError(t, err)
	capped, err := Enumerate(idx, 3, 0)
	require.NoError(t, err)

	all, err := Enumerate(idx, 0, 0)
	require.NoError(t, err)

	assert.Less(t, len(capped), len(all))
	longest := 0
	for _, s := range capped {
		if len(s.Peaks) > longest {
			longest = len(s.Peaks)
		}
	}
	assert.Equal(t, 3, longest)
}

func TestBudgetExceeded(t *testing.T) {
	g, peaks := chainGraph(t, 6, 2.0)
	idx, err := BuildIndex(g, peaks)
	require.NoError(t, err)

	_, err = Enumerate(idx, 0, 5)
	assert.ErrorIs(t, err, ErrClusterTooLarge)
}

func TestDeterminism(t *testing.T) {
	g, peaks := chainGraph(t, 5, 1.5)
	first := enumerate(t, g, peaks, 0)
	for i := 0; i < 5; i++ {
		again := enumerate(t, g, peaks, 0)
		assert.Equal(t, first, again)
	}
}
