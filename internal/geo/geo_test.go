package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	t.Run("Zero distance", func(t *testing.T) {
		assert.Equal(t, 0.0, Haversine(-74.3, 42.1, -74.3, 42.1))
	})

	t.Run("Known distance", func(t *testing.T) {
		// Slide Mountain summit to Panther Mountain summit is about 10 km.
		d := Haversine(-74.3859, 42.0264, -74.3988, 42.1146)
		assert.InDelta(t, 9.9, d, 0.3)
	})
}

func TestFastDistance(t *testing.T) {
	// The planar approximation must stay within 0.3% of haversine inside
	// the region.
	points := [][2]float64{
		{-74.652, 41.813},
		{-74.25, 42.0},
		{-74.3859, 42.0264},
		{-73.862, 42.352},
	}
	for _, a := range points {
		for _, b := range points {
			if a == b {
				continue
			}
			exact := Haversine(a[0], a[1], b[0], b[1])
			approx := fastDistance(a[0], a[1], b[0], b[1])
			assert.InEpsilon(t, exact, approx, 0.003)
		}
	}
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, [2]int64{3, 7}, PairKey(7, 3))
	assert.Equal(t, [2]int64{3, 7}, PairKey(3, 7))
	assert.Equal(t, PairKey(1, 2), PairKey(2, 1))
}

func TestOrient(t *testing.T) {
	line := [][]float64{{0, 0}, {1, 1}, {2, 2}}

	t.Run("Already oriented", func(t *testing.T) {
		assert.Equal(t, line, Orient(line, []float64{0, 0}))
	})

	t.Run("Reversed", func(t *testing.T) {
		got := Orient(line, []float64{2, 2})
		assert.Equal(t, [][]float64{{2, 2}, {1, 1}, {0, 0}}, got)
		// Input must not be mutated.
		assert.Equal(t, [][]float64{{0, 0}, {1, 1}, {2, 2}}, line)
	})
}

func TestPolylineKm(t *testing.T) {
	line := [][]float64{{-74.3, 42.0}, {-74.3, 42.01}}
	d := PolylineKm(line)
	assert.InDelta(t, 1.11, d, 0.02)
}
