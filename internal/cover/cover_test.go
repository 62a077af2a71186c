package cover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakplanner/peakplanner_core/internal/models"
)

func loop(lot int64, d float64, peaks ...int64) models.Hike {
	nodes := append([]int64{lot}, peaks...)
	nodes = append(nodes, lot)
	return models.Hike{DKm: d, Nodes: nodes, Cost: d}
}

func through(from, to int64, d float64, peaks ...int64) models.Hike {
	nodes := append([]int64{from}, peaks...)
	nodes = append(nodes, to)
	return models.Hike{DKm: d, Nodes: nodes, Cost: d}
}

func coveredPeaks(plan models.Plan) map[int64]bool {
	covered := make(map[int64]bool)
	for _, h := range plan.Hikes {
		for _, p := range h.Peaks() {
			covered[p] = true
		}
	}
	return covered
}

func TestSolveCoversEveryPeak(t *testing.T) {
	hikes := []models.Hike{
		loop(100, 10.0, 1, 2, 3),
		loop(100, 6.0, 1, 2),
		loop(101, 2.0, 3),
		loop(101, 5.0, 2, 3),
	}
	required := []int64{1, 2, 3}

	plan, err := Solve(hikes, required, Options{})
	require.NoError(t, err)

	covered := coveredPeaks(plan)
	for _, p := range required {
		assert.True(t, covered[p], "peak %d not covered", p)
	}
	// Best cover: {1,2} at 6 plus {3} at 2.
	assert.InDelta(t, 8.0, plan.TotalKm, 1e-9)
	assert.Len(t, plan.Hikes, 2)
}

func TestSolveMatchesGreedyOnSmallInput(t *testing.T) {
	hikes := []models.Hike{
		loop(100, 4.0, 1),
		loop(100, 5.0, 2),
		loop(100, 7.0, 1, 2),
	}
	required := []int64{1, 2}

	greedy, err := Greedy(hikes, required, Options{})
	require.NoError(t, err)
	solved, err := Solve(hikes, required, Options{})
	require.NoError(t, err)

	assert.InDelta(t, greedy.TotalKm, solved.TotalKm, 1e-9)
	assert.InDelta(t, 7.0, solved.TotalKm, 1e-9)
}

func TestSolveInfeasible(t *testing.T) {
	hikes := []models.Hike{loop(100, 4.0, 1)}

	_, err := Solve(hikes, []int64{1, 2}, Options{})
	assert.ErrorIs(t, err, ErrInfeasibleCover)
}

func TestSolveLoopsOnly(t *testing.T) {
	hikes := []models.Hike{
		through(100, 101, 3.0, 1, 2),
		loop(100, 8.0, 1, 2),
	}

	plan, err := Solve(hikes, []int64{1, 2}, Options{LoopsOnly: true})
	require.NoError(t, err)
	require.Len(t, plan.Hikes, 1)
	assert.True(t, plan.Hikes[0].IsLoop())
	assert.InDelta(t, 8.0, plan.TotalKm, 1e-9)
}

func TestSolveLoopsOnlyInfeasible(t *testing.T) {
	hikes := []models.Hike{through(100, 101, 3.0, 1)}

	_, err := Solve(hikes, []int64{1}, Options{LoopsOnly: true})
	assert.ErrorIs(t, err, ErrInfeasibleCover)
}

func TestNonLoopPenalty(t *testing.T) {
	hikes := []models.Hike{
		through(100, 101, 7.0, 1, 2),
		loop(100, 9.0, 1, 2),
	}

	t.Run("No penalty prefers the shorter through-hike", func(t *testing.T) {
		plan, err := Solve(hikes, []int64{1, 2}, Options{})
		require.NoError(t, err)
		require.Len(t, plan.Hikes, 1)
		assert.False(t, plan.Hikes[0].IsLoop())
	})

	t.Run("Penalty flips the choice to the loop", func(t *testing.T) {
		plan, err := Solve(hikes, []int64{1, 2}, Options{NonLoopPenaltyKm: 3.5})
		require.NoError(t, err)
		require.Len(t, plan.Hikes, 1)
		assert.True(t, plan.Hikes[0].IsLoop())
		// Reported distance never includes the penalty.
		assert.InDelta(t, 9.0, plan.TotalKm, 1e-9)
	})

	t.Run("Doubling the penalty cannot change an all-loops result", func(t *testing.T) {
		base, err := Solve(hikes, []int64{1, 2}, Options{NonLoopPenaltyKm: 3.5})
		require.NoError(t, err)
		doubled, err := Solve(hikes, []int64{1, 2}, Options{NonLoopPenaltyKm: 7.0})
		require.NoError(t, err)
		assert.Equal(t, base.Hikes, doubled.Hikes)
		assert.Equal(t, base.TotalKm, doubled.TotalKm)
	})
}

func TestPenaltyNeverLeaksIntoDistance(t *testing.T) {
	hikes := []models.Hike{through(100, 101, 7.0, 1)}

	plan, err := Solve(hikes, []int64{1}, Options{NonLoopPenaltyKm: 3.5})
	require.NoError(t, err)
	require.Len(t, plan.Hikes, 1)
	assert.InDelta(t, 7.0, plan.Hikes[0].DKm, 1e-9)
	assert.InDelta(t, 10.5, plan.Hikes[0].Cost, 1e-9)
	assert.InDelta(t, 7.0, plan.TotalKm, 1e-9)
	assert.InDelta(t, 10.5, plan.TotalCost, 1e-9)
}

func TestMaxHikeKmFiltersByTrueDistance(t *testing.T) {
	// The through-hike's penalized cost exceeds the cap but its true
	// distance does not; the cap must look at true distance only.
	hikes := []models.Hike{
		through(100, 101, 9.0, 1),
		loop(100, 20.0, 1),
	}

	plan, err := Solve(hikes, []int64{1}, Options{
		MaxHikeKm:        10.0,
		NonLoopPenaltyKm: 5.0,
	})
	require.NoError(t, err)
	require.Len(t, plan.Hikes, 1)
	assert.False(t, plan.Hikes[0].IsLoop())
	assert.InDelta(t, 9.0, plan.Hikes[0].DKm, 1e-9)
}

func TestSolveDeterminism(t *testing.T) {
	hikes := []models.Hike{
		loop(100, 10.0, 1, 2, 3),
		loop(100, 6.0, 1, 2),
		loop(101, 2.0, 3),
		loop(101, 5.0, 2, 3),
		through(100, 101, 4.5, 2, 3),
	}
	required := []int64{1, 2, 3}
	opts := Options{NonLoopPenaltyKm: 1.0, MaxIterations: 50}

	first, err := Solve(hikes, required, opts)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Solve(hikes, required, opts)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSolveEmptyRequired(t *testing.T) {
	plan, err := Solve([]models.Hike{loop(100, 4.0, 1)}, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, plan.Hikes)
}

func TestOverlappingCoverIsAllowed(t *testing.T) {
	// A cover may revisit a peak; minimal peak-disjointness is not
	// required, only near-minimal cost.
	hikes := []models.Hike{
		loop(100, 5.0, 1, 2),
		loop(101, 5.5, 2, 3),
	}

	plan, err := Solve(hikes, []int64{1, 2, 3}, Options{})
	require.NoError(t, err)
	assert.Len(t, plan.Hikes, 2)
}
