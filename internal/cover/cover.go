// Package cover selects a low-cost subset of hikes whose peaks cover the
// required set. The workhorse is a Lagrangian-relaxation heuristic with
// greedy repair; a plain greedy pass provides the initial incumbent and a
// baseline the relaxation must never lose to.
package cover

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/peakplanner/peakplanner_core/internal/models"
)

// ErrInfeasibleCover indicates that some required peak is not visited by
// any candidate hike.
var ErrInfeasibleCover = errors.New("infeasible cover")

// DefaultMaxIterations bounds the outer Lagrangian passes.
const DefaultMaxIterations = 100

// Options configures the solver. NonLoopPenaltyKm is added to a hike's
// solver cost when its endpoints differ; it never contaminates the
// reported distance. MaxHikeKm filters by true distance before solving.
type Options struct {
	MaxIterations    int
	NonLoopPenaltyKm float64
	MaxHikeKm        float64
	LoopsOnly        bool
}

// Solve picks a near-minimal-cost set of hikes covering every required
// peak. The result is deterministic for identical inputs.
func Solve(hikes []models.Hike, required []int64, opts Options) (models.Plan, error) {
	maxIters := opts.MaxIterations
	if maxIters <= 0 {
		maxIters = DefaultMaxIterations
	}

	cands := filter(hikes, opts)
	prob, err := newProblem(cands, required)
	if err != nil {
		return models.Plan{}, err
	}
	if len(prob.peaks) == 0 {
		return models.Plan{}, nil
	}

	greedySel := prob.greedy()
	bestSel := greedySel
	bestUB := prob.cost(greedySel)

	sel, ub := prob.lagrangian(maxIters, bestUB, bestSel)
	if ub < bestUB {
		bestSel, bestUB = sel, ub
	}

	return prob.plan(bestSel), nil
}

// Greedy runs only the greedy baseline: repeatedly pick the hike with the
// lowest cost per newly covered peak.
func Greedy(hikes []models.Hike, required []int64, opts Options) (models.Plan, error) {
	cands := filter(hikes, opts)
	prob, err := newProblem(cands, required)
	if err != nil {
		return models.Plan{}, err
	}
	if len(prob.peaks) == 0 {
		return models.Plan{}, nil
	}
	return prob.plan(prob.greedy()), nil
}

// filter applies the categorical pre-solve filters and computes solver
// costs. MaxHikeKm compares against the true distance, not the penalized
// cost.
func filter(hikes []models.Hike, opts Options) []models.Hike {
	var out []models.Hike
	for _, h := range hikes {
		if opts.LoopsOnly && !h.IsLoop() {
			continue
		}
		if opts.MaxHikeKm > 0 && h.DKm > opts.MaxHikeKm {
			continue
		}
		h.Cost = h.DKm
		if !h.IsLoop() {
			h.Cost += opts.NonLoopPenaltyKm
		}
		out = append(out, h)
	}
	return out
}

// problem is the prepared covering instance: a boolean matrix in sparse
// form plus median-normalized costs.
type problem struct {
	hikes  []models.Hike
	peaks  []int64
	covers [][]int   // hike -> required peak indices it visits
	costs  []float64 // normalized solver costs
	median float64
}

func newProblem(hikes []models.Hike, required []int64) (*problem, error) {
	peakIdx := make(map[int64]int, len(required))
	peaks := make([]int64, 0, len(required))
	for _, id := range required {
		if _, ok := peakIdx[id]; ok {
			continue
		}
		peakIdx[id] = len(peaks)
		peaks = append(peaks, id)
	}

	covers := make([][]int, len(hikes))
	costs := make([]float64, len(hikes))
	coverCount := make([]int, len(peaks))
	for j, h := range hikes {
		seen := make(map[int]bool)
		for _, p := range h.Peaks() {
			if i, ok := peakIdx[p]; ok && !seen[i] {
				covers[j] = append(covers[j], i)
				coverCount[i]++
				seen[i] = true
			}
		}
		costs[j] = h.Cost
	}

	var uncoverable []int64
	for i, c := range coverCount {
		if c == 0 {
			uncoverable = append(uncoverable, peaks[i])
		}
	}
	if len(uncoverable) > 0 {
		return nil, fmt.Errorf("%w: no hike covers peaks %v", ErrInfeasibleCover, uncoverable)
	}

	// Normalize by the median cost to keep multiplier magnitudes sane.
	median := medianOf(costs)
	if median <= 0 {
		median = 1
	}
	norm := make([]float64, len(costs))
	for j, c := range costs {
		norm[j] = c / median
	}

	return &problem{hikes: hikes, peaks: peaks, covers: covers, costs: norm, median: median}, nil
}

// greedy builds a feasible cover by cost-per-new-peak, then drops
// redundant picks most expensive first.
func (p *problem) greedy() []int {
	covered := make([]bool, len(p.peaks))
	remaining := len(p.peaks)
	var sel []int
	inSel := make([]bool, len(p.hikes))

	for remaining > 0 {
		best := -1
		bestRatio := math.Inf(1)
		for j := range p.hikes {
			if inSel[j] {
				continue
			}
			newPeaks := 0
			for _, i := range p.covers[j] {
				if !covered[i] {
					newPeaks++
				}
			}
			if newPeaks == 0 {
				continue
			}
			ratio := p.costs[j] / float64(newPeaks)
			if ratio < bestRatio {
				bestRatio = ratio
				best = j
			}
		}
		if best < 0 {
			break // unreachable: feasibility was checked up front
		}
		inSel[best] = true
		sel = append(sel, best)
		for _, i := range p.covers[best] {
			if !covered[i] {
				covered[i] = true
				remaining--
			}
		}
	}

	return p.prune(sel)
}

// prune removes hikes whose peaks are all covered by the rest of the
// selection, trying the most expensive first.
func (p *problem) prune(sel []int) []int {
	order := append([]int(nil), sel...)
	sort.Slice(order, func(a, b int) bool {
		if p.costs[order[a]] != p.costs[order[b]] {
			return p.costs[order[a]] > p.costs[order[b]]
		}
		return order[a] > order[b]
	})

	keep := make(map[int]bool, len(sel))
	for _, j := range sel {
		keep[j] = true
	}
	count := make([]int, len(p.peaks))
	for j := range keep {
		for _, i := range p.covers[j] {
			count[i]++
		}
	}
	for _, j := range order {
		redundant := true
		for _, i := range p.covers[j] {
			if count[i] <= 1 {
				redundant = false
				break
			}
		}
		if redundant {
			delete(keep, j)
			for _, i := range p.covers[j] {
				count[i]--
			}
		}
	}

	out := make([]int, 0, len(keep))
	for _, j := range sel {
		if keep[j] {
			out = append(out, j)
		}
	}
	return out
}

// lagrangian runs subgradient optimization on the relaxed problem,
// repairing each pricing solution to feasibility and keeping the best
// incumbent. Hitting the iteration cap is not an error; the incumbent is
// simply returned.
func (p *problem) lagrangian(maxIters int, bestUB float64, bestSel []int) ([]int, float64) {
	nPeaks := len(p.peaks)
	u := make([]float64, nPeaks)

	// Start multipliers at each peak's cheapest per-peak price.
	for i := range u {
		u[i] = math.Inf(1)
	}
	for j := range p.hikes {
		if len(p.covers[j]) == 0 {
			continue
		}
		share := p.costs[j] / float64(len(p.covers[j]))
		for _, i := range p.covers[j] {
			if share < u[i] {
				u[i] = share
			}
		}
	}

	lambda := 2.0
	noImprove := 0
	reduced := make([]float64, len(p.hikes))
	coverHits := make([]int, nPeaks)

	for it := 0; it < maxIters; it++ {
		// Pricing: select every hike with negative reduced cost.
		for j := range p.hikes {
			r := p.costs[j]
			for _, i := range p.covers[j] {
				r -= u[i]
			}
			reduced[j] = r
		}
		var priced []int
		lb := 0.0
		for _, ui := range u {
			lb += ui
		}
		for j, r := range reduced {
			if r < 0 {
				priced = append(priced, j)
				lb += r
			}
		}

		// Repair: extend the priced selection to a feasible cover, then
		// prune and score it.
		sel := p.repair(priced)
		ub := p.cost(sel)
		if ub < bestUB-1e-12 {
			bestUB = ub
			bestSel = sel
			noImprove = 0
		} else {
			noImprove++
		}

		// Subgradient step on the pricing solution.
		for i := range coverHits {
			coverHits[i] = 0
		}
		for _, j := range priced {
			for _, i := range p.covers[j] {
				coverHits[i]++
			}
		}
		norm := 0.0
		for i := range u {
			gi := 1 - float64(coverHits[i])
			norm += gi * gi
		}
		if norm == 0 {
			break
		}
		step := lambda * (bestUB - lb) / norm
		if step <= 0 {
			break
		}
		for i := range u {
			gi := 1 - float64(coverHits[i])
			u[i] = math.Max(0, u[i]+step*gi)
		}
		if noImprove >= 10 {
			lambda /= 2
			noImprove = 0
		}
	}

	return bestSel, bestUB
}

// repair completes a partial selection into a feasible cover greedily.
func (p *problem) repair(partial []int) []int {
	covered := make([]bool, len(p.peaks))
	remaining := len(p.peaks)
	inSel := make([]bool, len(p.hikes))
	sel := append([]int(nil), partial...)
	for _, j := range partial {
		inSel[j] = true
		for _, i := range p.covers[j] {
			if !covered[i] {
				covered[i] = true
				remaining--
			}
		}
	}

	for remaining > 0 {
		best := -1
		bestRatio := math.Inf(1)
		for j := range p.hikes {
			if inSel[j] {
				continue
			}
			newPeaks := 0
			for _, i := range p.covers[j] {
				if !covered[i] {
					newPeaks++
				}
			}
			if newPeaks == 0 {
				continue
			}
			ratio := p.costs[j] / float64(newPeaks)
			if ratio < bestRatio {
				bestRatio = ratio
				best = j
			}
		}
		if best < 0 {
			break
		}
		inSel[best] = true
		sel = append(sel, best)
		for _, i := range p.covers[best] {
			if !covered[i] {
				covered[i] = true
				remaining--
			}
		}
	}

	sort.Ints(sel)
	return p.prune(sel)
}

// cost sums the normalized costs of a selection.
func (p *problem) cost(sel []int) float64 {
	total := 0.0
	for _, j := range sel {
		total += p.costs[j]
	}
	return total
}

// plan materializes a selection in input order with true totals.
func (p *problem) plan(sel []int) models.Plan {
	sorted := append([]int(nil), sel...)
	sort.Ints(sorted)
	plan := models.Plan{}
	for _, j := range sorted {
		h := p.hikes[j]
		plan.Hikes = append(plan.Hikes, h)
		plan.TotalKm += h.DKm
		plan.TotalCost += h.Cost
	}
	return plan
}

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	tmp := append([]float64(nil), xs...)
	sort.Float64s(tmp)
	mid := len(tmp) / 2
	if len(tmp)%2 == 1 {
		return tmp[mid]
	}
	return (tmp[mid-1] + tmp[mid]) / 2
}
