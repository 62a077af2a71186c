package graph

import (
	"container/heap"
	"fmt"
	"sort"
)

// VertexFilter restricts a shortest-path query to a subgraph. A vertex for
// which the filter returns false is never entered; the source is always
// allowed. A nil filter allows every vertex.
type VertexFilter func(id int64) bool

// ShortestTree is the result of a single-source Dijkstra run: distances and
// predecessors for every reachable vertex in the (filtered) subgraph.
type ShortestTree struct {
	g    *Graph
	src  int64
	dist map[int64]float64
	prev map[int64]int64
}

// ShortestFrom runs Dijkstra from src over edges that are not disallowed
// and vertices admitted by the filter. Ties on distance break toward the
// smaller predecessor id so that equal-weight alternatives cannot
// destabilize downstream results.
func (g *Graph) ShortestFrom(src int64, allow VertexFilter) (*ShortestTree, error) {
	g.freeze()
	srcIdx, ok := g.index[src]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrMissingVertex, src)
	}

	dist := make(map[int64]float64)
	prev := make(map[int64]int64)
	done := make(map[int64]bool)

	pq := &distQueue{}
	heap.Init(pq)
	heap.Push(pq, &distItem{id: src, idx: srcIdx, dist: 0})
	dist[src] = 0

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*distItem)
		if done[cur.id] {
			continue
		}
		done[cur.id] = true

		for _, a := range g.adj[cur.idx] {
			e := &g.edges[a.edge]
			if e.Disallowed {
				continue
			}
			next := g.verts[a.to]
			if allow != nil && next.ID != src && !allow(next.ID) {
				continue
			}
			nd := cur.dist + e.DKm
			old, seen := dist[next.ID]
			if !seen || nd < old {
				dist[next.ID] = nd
				prev[next.ID] = cur.id
				heap.Push(pq, &distItem{id: next.ID, idx: a.to, dist: nd})
			} else if nd == old && cur.id < prev[next.ID] {
				// Equal-weight alternative: keep the lexicographically
				// smaller predecessor.
				prev[next.ID] = cur.id
			}
		}
	}

	return &ShortestTree{g: g, src: src, dist: dist, prev: prev}, nil
}

// DistTo returns the shortest distance from the source, if reachable.
func (t *ShortestTree) DistTo(id int64) (float64, bool) {
	d, ok := t.dist[id]
	return d, ok
}

// PathTo returns the vertex chain from the source to id, inclusive.
// It returns nil when id is unreachable.
func (t *ShortestTree) PathTo(id int64) []int64 {
	if _, ok := t.dist[id]; !ok {
		return nil
	}
	var rev []int64
	for cur := id; ; {
		rev = append(rev, cur)
		if cur == t.src {
			break
		}
		cur = t.prev[cur]
	}
	path := make([]int64, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// Reachable returns the reachable vertex ids, sorted.
func (t *ShortestTree) Reachable() []int64 {
	ids := make([]int64, 0, len(t.dist))
	for id := range t.dist {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// distItem is a heap entry for Dijkstra's lazy priority queue.
type distItem struct {
	id   int64
	idx  int
	dist float64
}

// distQueue orders by distance, then by vertex id for determinism.
type distQueue []*distItem

func (pq distQueue) Len() int { return len(pq) }

func (pq distQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].id < pq[j].id
}

func (pq distQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *distQueue) Push(x interface{}) { *pq = append(*pq, x.(*distItem)) }

func (pq *distQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}
