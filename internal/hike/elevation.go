package hike

import (
	"fmt"

	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/models"
)

// Annotator computes cumulative elevation gain for finished hikes by
// walking the underlying edge geometry. Gains are memoized per (from, to)
// leg; computing A->B fills in B->A for free, since one direction's gain
// is the other's loss.
type Annotator struct {
	g     *graph.Graph
	gain  map[[2]int64]float64
	trees map[int64]*graph.ShortestTree
}

// NewAnnotator creates an annotator over the network graph.
func NewAnnotator(g *graph.Graph) *Annotator {
	return &Annotator{
		g:     g,
		gain:  make(map[[2]int64]float64),
		trees: make(map[int64]*graph.ShortestTree),
	}
}

// Annotate fills in the hike's elevation gain, in whole meters.
func (a *Annotator) Annotate(h models.Hike) (models.Hike, error) {
	total := 0.0
	for i := 1; i < len(h.Nodes); i++ {
		up, err := a.legGain(h.Nodes[i-1], h.Nodes[i])
		if err != nil {
			return models.Hike{}, err
		}
		total += up
	}
	h.EleGainM = int(total)
	return h, nil
}

// AnnotateAll annotates a hike list in place order.
func (a *Annotator) AnnotateAll(hikes []models.Hike) ([]models.Hike, error) {
	out := make([]models.Hike, len(hikes))
	for i, h := range hikes {
		annotated, err := a.Annotate(h)
		if err != nil {
			return nil, err
		}
		out[i] = annotated
	}
	return out, nil
}

// legGain returns the elevation gain along the shortest path from one
// waypoint to the next.
func (a *Annotator) legGain(from, to int64) (float64, error) {
	if from == to {
		return 0, nil
	}
	if up, ok := a.gain[[2]int64{from, to}]; ok {
		return up, nil
	}

	tree, ok := a.trees[from]
	if !ok {
		var err error
		tree, err = a.g.ShortestFrom(from, nil)
		if err != nil {
			return 0, err
		}
		a.trees[from] = tree
	}
	path := tree.PathTo(to)
	if path == nil {
		return 0, fmt.Errorf("no path from %d to %d", from, to)
	}

	var pathUp, pathDown float64
	for i := 1; i < len(path); i++ {
		u, v := path[i-1], path[i]
		e, ok := a.g.EdgeBetween(u, v)
		if !ok {
			return 0, fmt.Errorf("missing edge %d-%d on path", u, v)
		}
		up, down := e.GainM, e.LossM
		if e.From != u {
			// Reverse traversal swaps the oriented deltas.
			up, down = down, up
		}
		pathUp += up
		pathDown += down
	}

	a.gain[[2]int64{from, to}] = pathUp
	a.gain[[2]int64{to, from}] = pathDown
	return pathUp, nil
}
