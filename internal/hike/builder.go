// Package hike turns plausible peak sequences into complete hikes by
// attaching parking lots to their ends, and annotates finished hikes with
// cumulative elevation gain.
package hike

import (
	"math"

	"github.com/peakplanner/peakplanner_core/internal/cluster"
	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/models"
)

// Builder attaches a cluster's lots to peak sequences, producing loop and
// through hikes.
type Builder struct {
	g    *graph.Graph
	cl   cluster.Cluster
	comp *graph.Complete
	peak map[int64]bool
}

// NewBuilder projects the cluster's peaks and lots onto a complete graph
// over the full network, which the lot-attachment queries run against.
func NewBuilder(g *graph.Graph, cl cluster.Cluster) (*Builder, error) {
	ids := make([]int64, 0, len(cl.Peaks)+len(cl.Lots))
	ids = append(ids, cl.Peaks...)
	ids = append(ids, cl.Lots...)
	comp, err := g.CompleteOver(ids, nil)
	if err != nil {
		return nil, err
	}
	peak := make(map[int64]bool)
	for _, id := range g.Peaks() {
		peak[id] = true
	}
	return &Builder{g: g, cl: cl, comp: comp, peak: peak}, nil
}

// Build produces at most one loop hike and at most one through hike per
// sequence: the cheapest lot (or ordered lot pair) whose connecting paths
// do not stray over a peak outside the sequence. A kind is omitted when no
// candidate passes that filter. Empty sequences yield nothing, and a
// single-lot cluster yields no through hikes.
func (b *Builder) Build(seqs []models.PeakSequence) []models.Hike {
	var hikes []models.Hike
	for _, s := range seqs {
		if len(s.Peaks) == 0 {
			continue
		}
		support := make(map[int64]bool, len(s.Peaks))
		for _, p := range s.Peaks {
			support[p] = true
		}
		first := s.Peaks[0]
		last := s.Peaks[len(s.Peaks)-1]

		if h, ok := b.bestLoop(s, first, last, support); ok {
			hikes = append(hikes, h)
		}
		if h, ok := b.bestThrough(s, first, last, support); ok {
			hikes = append(hikes, h)
		}
	}
	return hikes
}

func (b *Builder) bestLoop(s models.PeakSequence, first, last int64, support map[int64]bool) (models.Hike, bool) {
	bestD := math.Inf(1)
	var bestLot int64
	for _, lot := range b.cl.Lots {
		total := b.comp.Dist(lot, first) + s.DKm + b.comp.Dist(last, lot)
		if math.IsInf(total, 1) || total >= bestD {
			continue
		}
		if !b.approachOK(lot, first, support) || !b.approachOK(last, lot, support) {
			continue
		}
		bestD = total
		bestLot = lot
	}
	if math.IsInf(bestD, 1) {
		return models.Hike{}, false
	}
	return b.makeHike(bestD, bestLot, s.Peaks, bestLot), true
}

func (b *Builder) bestThrough(s models.PeakSequence, first, last int64, support map[int64]bool) (models.Hike, bool) {
	bestD := math.Inf(1)
	var bestFrom, bestTo int64
	for _, from := range b.cl.Lots {
		dIn := b.comp.Dist(from, first)
		if math.IsInf(dIn, 1) {
			continue
		}
		for _, to := range b.cl.Lots {
			if to == from {
				continue
			}
			total := dIn + s.DKm + b.comp.Dist(last, to)
			if math.IsInf(total, 1) || total >= bestD {
				continue
			}
			if !b.approachOK(from, first, support) || !b.approachOK(last, to, support) {
				continue
			}
			bestD = total
			bestFrom, bestTo = from, to
		}
	}
	if math.IsInf(bestD, 1) {
		return models.Hike{}, false
	}
	return b.makeHike(bestD, bestFrom, s.Peaks, bestTo), true
}

// approachOK rejects a lot approach that passes over a peak the sequence
// does not visit.
func (b *Builder) approachOK(from, to int64, support map[int64]bool) bool {
	path := b.comp.Path(from, to)
	if path == nil {
		return false
	}
	for _, n := range path[1 : len(path)-1] {
		if b.peak[n] && !support[n] {
			return false
		}
	}
	return true
}

func (b *Builder) makeHike(d float64, from int64, peaks []int64, to int64) models.Hike {
	nodes := make([]int64, 0, len(peaks)+2)
	nodes = append(nodes, from)
	nodes = append(nodes, peaks...)
	nodes = append(nodes, to)
	return models.Hike{DKm: d, Nodes: nodes, Cost: d}
}
