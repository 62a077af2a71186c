package graph

import (
	"fmt"
	"sort"

	"github.com/peakplanner/peakplanner_core/internal/geo"
	"github.com/peakplanner/peakplanner_core/internal/models"
)

// Graph holds the annotated, contracted trail network in memory. Vertices
// are peaks, trailheads, junctions and parking lots; edges carry hiking
// distance, oriented elevation deltas and the underlying geometry.
//
// The graph is built once (AddVertex/AddEdge) and is read-only afterwards;
// the first shortest-path or degree query freezes it.
type Graph struct {
	verts      []models.Vertex
	index      map[int64]int
	edges      []models.Edge
	edgeByPair map[[2]int64]int
	adj        [][]arc
	frozen     bool
}

// arc is one direction of an undirected edge in the adjacency lists.
type arc struct {
	to   int
	edge int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		index:      make(map[int64]int),
		edgeByPair: make(map[[2]int64]int),
	}
}

// AddVertex registers a vertex. Duplicate ids are malformed input.
func (g *Graph) AddVertex(v models.Vertex) error {
	if g.frozen {
		return fmt.Errorf("graph is frozen, cannot add vertex %d", v.ID)
	}
	if _, ok := g.index[v.ID]; ok {
		return fmt.Errorf("%w: duplicate vertex id %d", ErrMalformedGraph, v.ID)
	}
	g.index[v.ID] = len(g.verts)
	g.verts = append(g.verts, v)
	return nil
}

// AddEdge registers an undirected edge. Both endpoints must already exist.
// When two edges connect the same pair of vertices the shorter one wins,
// so that shortest-path queries stay well defined.
func (g *Graph) AddEdge(e models.Edge) error {
	if g.frozen {
		return fmt.Errorf("graph is frozen, cannot add edge %d-%d", e.From, e.To)
	}
	if e.From == e.To {
		return fmt.Errorf("%w: self edge at vertex %d", ErrMalformedGraph, e.From)
	}
	if _, ok := g.index[e.From]; !ok {
		return fmt.Errorf("%w: edge endpoint %d", ErrMalformedGraph, e.From)
	}
	if _, ok := g.index[e.To]; !ok {
		return fmt.Errorf("%w: edge endpoint %d", ErrMalformedGraph, e.To)
	}
	if e.DKm < 0 {
		return fmt.Errorf("%w: negative weight on edge %d-%d", ErrMalformedGraph, e.From, e.To)
	}

	key := geo.PairKey(e.From, e.To)
	if prev, ok := g.edgeByPair[key]; ok {
		if g.edges[prev].DKm <= e.DKm {
			return nil
		}
		g.edges[prev] = e
		return nil
	}
	g.edgeByPair[key] = len(g.edges)
	g.edges = append(g.edges, e)
	return nil
}

// freeze builds the adjacency lists. Neighbors are sorted by id so that
// traversal order, and therefore tie-breaking, is deterministic.
func (g *Graph) freeze() {
	if g.frozen {
		return
	}
	g.adj = make([][]arc, len(g.verts))
	for ei, e := range g.edges {
		from := g.index[e.From]
		to := g.index[e.To]
		g.adj[from] = append(g.adj[from], arc{to: to, edge: ei})
		g.adj[to] = append(g.adj[to], arc{to: from, edge: ei})
	}
	for i := range g.adj {
		arcs := g.adj[i]
		sort.Slice(arcs, func(a, b int) bool {
			return g.verts[arcs[a].to].ID < g.verts[arcs[b].to].ID
		})
	}
	g.frozen = true
}

// Vertex returns the vertex with the given id.
func (g *Graph) Vertex(id int64) (models.Vertex, bool) {
	i, ok := g.index[id]
	if !ok {
		return models.Vertex{}, false
	}
	return g.verts[i], true
}

// EdgeBetween returns the edge connecting a and b, if any.
func (g *Graph) EdgeBetween(a, b int64) (models.Edge, bool) {
	ei, ok := g.edgeByPair[geo.PairKey(a, b)]
	if !ok {
		return models.Edge{}, false
	}
	return g.edges[ei], true
}

// VerticesOfKind returns the ids of all vertices of the given kind, sorted.
func (g *Graph) VerticesOfKind(kind models.VertexKind) []int64 {
	var ids []int64
	for _, v := range g.verts {
		if v.Kind == kind {
			ids = append(ids, v.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Peaks returns all peak ids, sorted.
func (g *Graph) Peaks() []int64 { return g.VerticesOfKind(models.KindPeak) }

// Lots returns all parking-lot ids, sorted.
func (g *Graph) Lots() []int64 { return g.VerticesOfKind(models.KindLot) }

// Degree returns the number of usable edges incident to a vertex.
func (g *Graph) Degree(id int64) int {
	g.freeze()
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	n := 0
	for _, a := range g.adj[i] {
		if !g.edges[a.edge].Disallowed {
			n++
		}
	}
	return n
}

// NumVertices returns the vertex count.
func (g *Graph) NumVertices() int { return len(g.verts) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// ValidatePeaks checks that every required peak exists and has at least one
// trail neighbor. It returns the ids of disconnected peaks (callers report
// and exclude them) and fails hard on unknown ids.
func (g *Graph) ValidatePeaks(required []int64) ([]int64, error) {
	var disconnected []int64
	for _, id := range required {
		v, ok := g.Vertex(id)
		if !ok {
			return nil, fmt.Errorf("%w: peak %d", ErrMissingVertex, id)
		}
		if v.Kind != models.KindPeak {
			return nil, fmt.Errorf("%w: vertex %d is %s, not a peak", ErrMalformedGraph, id, v.Kind)
		}
		if g.Degree(id) == 0 {
			disconnected = append(disconnected, id)
		}
	}
	return disconnected, nil
}
