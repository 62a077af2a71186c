// Package cluster partitions the required peaks into groups that can be
// hiked without getting back into the car, and attaches to each group the
// parking lots that can serve as its trailheads.
package cluster

import (
	"fmt"
	"log"
	"sort"

	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/region"
)

// Cluster is a maximal set of peaks connected in the lot-free subgraph,
// plus the lots a hike over those peaks may start or end at.
type Cluster struct {
	Peaks []int64
	Lots  []int64
}

// Discover computes the clusters for the required peaks. Disconnected
// peaks are reported and returned separately; the caller decides whether
// their absence makes the cover infeasible.
func Discover(g *graph.Graph, required []int64, reg *region.Region) ([]Cluster, []int64, error) {
	disconnected, err := g.ValidatePeaks(required)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range disconnected {
		log.Printf("Warning: %v: peak %d has no trail neighbor, excluding", graph.ErrDisconnectedPeak, id)
	}

	skip := make(map[int64]bool, len(disconnected))
	for _, id := range disconnected {
		skip[id] = true
	}
	var peaks []int64
	for _, id := range required {
		if !skip[id] {
			peaks = append(peaks, id)
		}
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i] < peaks[j] })

	isLot := lotSet(g)
	notLot := func(id int64) bool { return !isLot[id] }

	// Connected components of the lot-free subgraph, restricted to the
	// required peaks. Walking over a non-required peak does not split a
	// component; driving (any path through a lot) does.
	component := make(map[int64]int64)
	for _, p := range peaks {
		if _, seen := component[p]; seen {
			continue
		}
		tree, err := g.ShortestFrom(p, notLot)
		if err != nil {
			return nil, nil, err
		}
		for _, q := range peaks {
			if _, ok := tree.DistTo(q); ok {
				component[q] = p
			}
		}
	}

	forced, err := forcedGroups(g, reg)
	if err != nil {
		return nil, nil, err
	}

	// A forced cluster splits its component: peaks assigned to different
	// forced groups never share a cluster, even when the trail network
	// connects them.
	type clusterKey struct {
		root  int64
		group int
	}
	grouped := make(map[clusterKey][]int64)
	var keys []clusterKey
	for _, p := range peaks {
		key := clusterKey{root: component[p], group: forced[p]}
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].root != keys[j].root {
			return keys[i].root < keys[j].root
		}
		return keys[i].group < keys[j].group
	})

	clusters := make([]Cluster, 0, len(keys))
	clusterOf := make(map[int64]int)
	for _, key := range keys {
		members := grouped[key]
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		for _, p := range members {
			clusterOf[p] = len(clusters)
		}
		clusters = append(clusters, Cluster{Peaks: members})
	}

	if err := attachLots(g, clusters, clusterOf, isLot); err != nil {
		return nil, nil, err
	}

	for i := range clusters {
		if len(clusters[i].Lots) == 0 {
			log.Printf("Warning: cluster of %d peaks starting at %d has no trailhead lot",
				len(clusters[i].Peaks), clusters[i].Peaks[0])
		}
	}

	return clusters, disconnected, nil
}

// attachLots assigns each lot to the clusters whose peaks it can reach
// without crossing another lot or passing over an unrelated peak first.
func attachLots(g *graph.Graph, clusters []Cluster, clusterOf map[int64]int, isLot map[int64]bool) error {
	peakKind := peakSet(g)
	notLot := func(id int64) bool { return !isLot[id] }

	for _, lot := range g.Lots() {
		tree, err := g.ShortestFrom(lot, notLot)
		if err != nil {
			return err
		}
		seen := make(map[int]bool)
		for peak, ci := range clusterOf {
			if seen[ci] {
				continue
			}
			path := tree.PathTo(peak)
			if path == nil {
				continue
			}
			crossesPeak := false
			for _, n := range path[1 : len(path)-1] {
				if peakKind[n] {
					crossesPeak = true
					break
				}
			}
			if crossesPeak {
				continue
			}
			seen[ci] = true
			clusters[ci].Lots = append(clusters[ci].Lots, lot)
		}
	}

	for i := range clusters {
		sort.Slice(clusters[i].Lots, func(a, b int) bool {
			return clusters[i].Lots[a] < clusters[i].Lots[b]
		})
	}
	return nil
}

// forcedGroups maps peak ids to their forced-cluster index, or -1 when the
// region spec leaves them free.
func forcedGroups(g *graph.Graph, reg *region.Region) (map[int64]int, error) {
	forced := make(map[int64]int)
	for _, id := range g.Peaks() {
		forced[id] = -1
	}
	if reg == nil {
		return forced, nil
	}

	codeToID := make(map[string]int64)
	for _, id := range g.Peaks() {
		v, _ := g.Vertex(id)
		if v.Code != "" {
			codeToID[v.Code] = id
		}
	}
	for gi, codes := range reg.ForcedClusters {
		for _, code := range codes {
			id, ok := codeToID[code]
			if !ok {
				return nil, fmt.Errorf("forced cluster references unknown peak code %q", code)
			}
			forced[id] = gi
		}
	}
	return forced, nil
}

func lotSet(g *graph.Graph) map[int64]bool {
	set := make(map[int64]bool)
	for _, id := range g.Lots() {
		set[id] = true
	}
	return set
}

func peakSet(g *graph.Graph) map[int64]bool {
	set := make(map[int64]bool)
	for _, id := range g.Peaks() {
		set[id] = true
	}
	return set
}
