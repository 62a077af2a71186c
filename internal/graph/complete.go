package graph

import (
	"fmt"
	"math"
)

// Complete is a complete-graph projection over a chosen vertex subset: for
// every ordered pair it records the shortest-path length in the underlying
// graph and the underlying vertex chain that realizes it.
type Complete struct {
	ids   []int64
	pos   map[int64]int
	dist  [][]float64
	paths [][][]int64
}

// CompleteOver projects the graph onto the given vertex subset. The filter
// restricts which vertices the connecting paths may cross; members of the
// subset are always admitted as path endpoints.
func (g *Graph) CompleteOver(ids []int64, allow VertexFilter) (*Complete, error) {
	n := len(ids)
	c := &Complete{
		ids:   append([]int64(nil), ids...),
		pos:   make(map[int64]int, n),
		dist:  make([][]float64, n),
		paths: make([][][]int64, n),
	}
	for i, id := range ids {
		if _, ok := g.Vertex(id); !ok {
			return nil, fmt.Errorf("%w: id %d", ErrMissingVertex, id)
		}
		c.pos[id] = i
	}

	for i, id := range ids {
		tree, err := g.ShortestFrom(id, allow)
		if err != nil {
			return nil, err
		}
		c.dist[i] = make([]float64, n)
		c.paths[i] = make([][]int64, n)
		for j, other := range ids {
			if i == j {
				continue
			}
			d, ok := tree.DistTo(other)
			if !ok {
				c.dist[i][j] = math.Inf(1)
				continue
			}
			c.dist[i][j] = d
			c.paths[i][j] = tree.PathTo(other)
		}
	}
	return c, nil
}

// Dist returns the shortest-path length between two subset members.
// It is +Inf when the pair is not connected.
func (c *Complete) Dist(a, b int64) float64 {
	if a == b {
		return 0
	}
	i, ok := c.pos[a]
	if !ok {
		return math.Inf(1)
	}
	j, ok := c.pos[b]
	if !ok {
		return math.Inf(1)
	}
	return c.dist[i][j]
}

// Path returns the underlying vertex chain from a to b, inclusive, or nil
// when the pair is not connected.
func (c *Complete) Path(a, b int64) []int64 {
	if a == b {
		return []int64{a}
	}
	i, ok := c.pos[a]
	if !ok {
		return nil
	}
	j, ok := c.pos[b]
	if !ok {
		return nil
	}
	return c.paths[i][j]
}

// IDs returns the projected subset in input order.
func (c *Complete) IDs() []int64 { return c.ids }
