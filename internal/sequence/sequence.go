// Package sequence enumerates every plausible ordered peak sequence within
// one cluster. A sequence is plausible when the hiker never walks over a
// peak they did not set out to bag: for every consecutive pair, the peaks
// on the underlying shortest path between them all belong to the sequence.
package sequence

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/models"
)

// ErrClusterTooLarge is returned when enumeration exceeds its budget
// before completing.
var ErrClusterTooLarge = errors.New("cluster too large")

// DefaultMaxLength caps the number of peaks in one sequence. Longer hikes
// are truncated away, not reported as errors.
const DefaultMaxLength = 8

// DefaultBudget bounds how many sequences a single cluster may produce.
const DefaultBudget = 500000

const maxClusterPeaks = 64 // subsets are tracked as one uint64 bitset

// Index is the cluster-local pre-computation: pairwise shortest distances
// between the cluster's peaks and, for each pair, the set of peaks that
// lie on the connecting shortest path.
type Index struct {
	peaks   []int64
	pos     map[int64]int
	dist    [][]float64
	between [][]uint64 // peaks strictly inside the a->b shortest path
	blocked [][]bool   // a non-cluster peak sits on the path
}

// BuildIndex projects the graph onto the cluster's peaks and records, for
// every unordered pair, the distance and the in-between peak set. Paths
// are evaluated on the lot-free subgraph: a hiker moving between peaks of
// one cluster never walks through a parking lot.
func BuildIndex(g *graph.Graph, peaks []int64) (*Index, error) {
	if len(peaks) > maxClusterPeaks {
		return nil, fmt.Errorf("%w: %d peaks, max %d", ErrClusterTooLarge, len(peaks), maxClusterPeaks)
	}

	sorted := append([]int64(nil), peaks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	isLot := make(map[int64]bool)
	for _, id := range g.Lots() {
		isLot[id] = true
	}
	allPeaks := make(map[int64]bool)
	for _, id := range g.Peaks() {
		allPeaks[id] = true
	}

	comp, err := g.CompleteOver(sorted, func(id int64) bool { return !isLot[id] })
	if err != nil {
		return nil, err
	}

	n := len(sorted)
	idx := &Index{
		peaks:   sorted,
		pos:     make(map[int64]int, n),
		dist:    make([][]float64, n),
		between: make([][]uint64, n),
		blocked: make([][]bool, n),
	}
	for i, id := range sorted {
		idx.pos[id] = i
	}
	for i := range sorted {
		idx.dist[i] = make([]float64, n)
		idx.between[i] = make([]uint64, n)
		idx.blocked[i] = make([]bool, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			idx.dist[i][j] = comp.Dist(sorted[i], sorted[j])
			path := comp.Path(sorted[i], sorted[j])
			if path == nil {
				idx.blocked[i][j] = true
				continue
			}
			for _, node := range path[1 : len(path)-1] {
				if !allPeaks[node] {
					continue
				}
				k, inCluster := idx.pos[node]
				if !inCluster {
					// The shortest path crosses a peak outside this
					// cluster; the pair can never be consecutive.
					idx.blocked[i][j] = true
					break
				}
				idx.between[i][j] |= 1 << uint(k)
			}
		}
	}
	return idx, nil
}

// Peaks returns the indexed peak ids, sorted.
func (idx *Index) Peaks() []int64 { return idx.peaks }

// Dist returns the peak-to-peak hiking distance by peak id.
func (idx *Index) Dist(a, b int64) float64 {
	if a == b {
		return 0
	}
	i, ok := idx.pos[a]
	if !ok {
		return math.Inf(1)
	}
	j, ok := idx.pos[b]
	if !ok {
		return math.Inf(1)
	}
	return idx.dist[i][j]
}

// Between returns the cluster peaks strictly inside the shortest a->b
// path, and whether the pair is blocked by a peak outside the cluster.
func (idx *Index) Between(a, b int64) ([]int64, bool) {
	i, ok := idx.pos[a]
	if !ok {
		return nil, true
	}
	j, ok := idx.pos[b]
	if !ok {
		return nil, true
	}
	if idx.blocked[i][j] {
		return nil, true
	}
	var out []int64
	for set := idx.between[i][j]; set != 0; set &= set - 1 {
		out = append(out, idx.peaks[bits.TrailingZeros64(set)])
	}
	return out, false
}

// seq is an internal sequence over peak indices.
type seq struct {
	d     float64
	peaks []uint8
}

// enumerator owns the DP cache for one cluster run. The cache is keyed by
// (length budget, peak subset) because a bounded-length enumeration is a
// strict subset of the unbounded one.
type enumerator struct {
	idx      *Index
	maxLen   int
	budget   int
	produced int
	memo     map[memoKey][]seq
}

type memoKey struct {
	maxLen int
	set    uint64
}

// Enumerate produces every plausible sequence over every subset of the
// cluster's peaks, up to maxLen peaks per sequence. The result always
// contains the empty sequence and each single-peak sequence, both at cost
// zero, and is closed under reversal. For a given endpoint pair and inner
// peak set only the cheapest plausible ordering survives.
func Enumerate(idx *Index, maxLen, budget int) ([]models.PeakSequence, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	if budget <= 0 {
		budget = DefaultBudget
	}
	e := &enumerator{idx: idx, maxLen: maxLen, budget: budget, memo: make(map[memoKey][]seq)}

	n := len(idx.peaks)
	var out []models.PeakSequence
	out = append(out, models.PeakSequence{DKm: 0, Peaks: []int64{}})

	// Visit every peak subset of size 1..maxLen exactly once.
	var walk func(start int, set uint64, size int) error
	walk = func(start int, set uint64, size int) error {
		if set != 0 {
			seqs, err := e.fullSequences(set)
			if err != nil {
				return err
			}
			for _, s := range seqs {
				out = append(out, models.PeakSequence{DKm: s.d, Peaks: e.ids(s.peaks)})
			}
		}
		if size == maxLen {
			return nil
		}
		for i := start; i < n; i++ {
			if err := walk(i+1, set|1<<uint(i), size+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, 0, 0); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DKm != b.DKm {
			return a.DKm < b.DKm
		}
		if len(a.Peaks) != len(b.Peaks) {
			return len(a.Peaks) < len(b.Peaks)
		}
		for k := range a.Peaks {
			if a.Peaks[k] != b.Peaks[k] {
				return a.Peaks[k] < b.Peaks[k]
			}
		}
		return false
	})
	return out, nil
}

// fullSequences returns the plausible sequences whose support is exactly
// the given subset, one per (start, end) pair, plus reverses.
func (e *enumerator) fullSequences(set uint64) ([]seq, error) {
	key := memoKey{maxLen: e.maxLen, set: set}
	if cached, ok := e.memo[key]; ok {
		return cached, nil
	}

	count := bits.OnesCount64(set)
	if count > e.maxLen {
		e.memo[key] = nil
		return nil, nil
	}

	var result []seq
	switch count {
	case 0:
		result = []seq{{d: 0, peaks: nil}}
	case 1:
		p := uint8(bits.TrailingZeros64(set))
		result = []seq{{d: 0, peaks: []uint8{p}}}
	default:
		members := setMembers(set)
		for ai := 0; ai < len(members); ai++ {
			for bi := ai + 1; bi < len(members); bi++ {
				s, t := members[ai], members[bi]
				best, ok, err := e.bestBetween(set, s, t)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				result = append(result, best, reverse(best))
			}
		}
	}

	e.produced += len(result)
	if e.produced > e.budget {
		return nil, fmt.Errorf("%w: more than %d sequences", ErrClusterTooLarge, e.budget)
	}
	e.memo[key] = result
	return result, nil
}

// bestBetween finds the cheapest plausible sequence over the subset that
// starts at s and ends at t. Ties break toward the lexicographically
// smaller inner ordering so results are stable.
func (e *enumerator) bestBetween(set uint64, s, t uint8) (seq, bool, error) {
	inner := set &^ (1 << uint(s)) &^ (1 << uint(t))
	innerSeqs, err := e.fullSequences(inner)
	if err != nil {
		return seq{}, false, err
	}

	var best seq
	found := false
	for _, mid := range innerSeqs {
		var d float64
		if len(mid.peaks) == 0 {
			if !e.pairOK(s, t, set) {
				continue
			}
			d = e.idx.dist[s][t]
		} else {
			first, last := mid.peaks[0], mid.peaks[len(mid.peaks)-1]
			if !e.pairOK(s, first, set) || !e.pairOK(last, t, set) {
				continue
			}
			d = e.idx.dist[s][first] + mid.d + e.idx.dist[last][t]
		}
		cand := seq{d: d, peaks: make([]uint8, 0, len(mid.peaks)+2)}
		cand.peaks = append(cand.peaks, s)
		cand.peaks = append(cand.peaks, mid.peaks...)
		cand.peaks = append(cand.peaks, t)
		if !found || cand.d < best.d || (cand.d == best.d && lessPeaks(cand.peaks, best.peaks)) {
			best = cand
			found = true
		}
	}
	return best, found, nil
}

// pairOK applies the plausibility predicate to one consecutive pair: the
// peaks between a and b must all belong to the sequence's support.
func (e *enumerator) pairOK(a, b uint8, support uint64) bool {
	if e.idx.blocked[a][b] {
		return false
	}
	return e.idx.between[a][b]&^support == 0
}

func (e *enumerator) ids(peaks []uint8) []int64 {
	out := make([]int64, len(peaks))
	for i, p := range peaks {
		out[i] = e.idx.peaks[p]
	}
	return out
}

func reverse(s seq) seq {
	rev := seq{d: s.d, peaks: make([]uint8, len(s.peaks))}
	for i, p := range s.peaks {
		rev.peaks[len(s.peaks)-1-i] = p
	}
	return rev
}

func lessPeaks(a, b []uint8) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func setMembers(set uint64) []uint8 {
	var members []uint8
	for s := set; s != 0; s &= s - 1 {
		members = append(members, uint8(bits.TrailingZeros64(s)))
	}
	return members
}
