// Package planner orchestrates the enumeration pipeline: cluster
// discovery, per-cluster sequence enumeration and hike building. Clusters
// are independent, so they run on a fixed worker pool; each worker owns
// its own DP cache and results merge by cluster index, which keeps the
// output identical to a single-threaded run.
package planner

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"

	"github.com/peakplanner/peakplanner_core/internal/cluster"
	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/hike"
	"github.com/peakplanner/peakplanner_core/internal/models"
	"github.com/peakplanner/peakplanner_core/internal/region"
	"github.com/peakplanner/peakplanner_core/internal/sequence"
)

// Options tunes the enumeration.
type Options struct {
	MaxSequenceLength int // peaks per hike; 0 = sequence.DefaultMaxLength
	SequenceBudget    int // per-cluster sequence cap; 0 = sequence.DefaultBudget
	Workers           int // 0 = GOMAXPROCS
}

// Planner enumerates every reasonable hike over the required peaks.
type Planner struct {
	g    *graph.Graph
	reg  *region.Region
	opts Options
}

// New creates a planner over a frozen graph.
func New(g *graph.Graph, reg *region.Region, opts Options) *Planner {
	return &Planner{g: g, reg: reg, opts: opts}
}

// BuildAllHikes enumerates hikes for every cluster of the required peaks.
// A nil required list means every peak in the graph. Cancellation is
// cooperative at cluster boundaries: on a canceled context the hikes of
// completed clusters are returned along with the context error.
func (p *Planner) BuildAllHikes(ctx context.Context, required []int64) ([]models.Hike, error) {
	if required == nil {
		required = p.g.Peaks()
	}
	clusters, _, err := cluster.Discover(p.g, required, p.reg)
	if err != nil {
		return nil, err
	}
	log.Printf("Found %d clusters over %d peaks", len(clusters), len(required))

	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(clusters) {
		workers = len(clusters)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	results := make([][]models.Hike, len(clusters))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ci := range jobs {
				results[ci] = p.clusterHikes(clusters[ci], ci)
			}
		}()
	}

	dispatch := 0
	var ctxErr error
loop:
	for ; dispatch < len(clusters); dispatch++ {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break loop
		case jobs <- dispatch:
		}
	}
	close(jobs)
	wg.Wait()

	var hikes []models.Hike
	for _, rs := range results {
		hikes = append(hikes, rs...)
	}
	log.Printf("Enumerated %d hikes", len(hikes))
	return hikes, ctxErr
}

// clusterHikes runs the full per-cluster pipeline. The DP cache lives in
// the enumeration call and dies with it. Oversized clusters are skipped,
// not fatal: the cover may still be feasible through other clusters.
func (p *Planner) clusterHikes(cl cluster.Cluster, ci int) []models.Hike {
	if len(cl.Lots) == 0 {
		log.Printf("Cluster %d: no trailhead lots, skipping %d peaks", ci, len(cl.Peaks))
		return nil
	}

	idx, err := sequence.BuildIndex(p.g, cl.Peaks)
	if err != nil {
		log.Printf("Warning: cluster %d: %v", ci, err)
		return nil
	}
	seqs, err := sequence.Enumerate(idx, p.opts.MaxSequenceLength, p.opts.SequenceBudget)
	if err != nil {
		if errors.Is(err, sequence.ErrClusterTooLarge) {
			log.Printf("Warning: cluster %d: %v, skipping", ci, err)
			return nil
		}
		log.Printf("Warning: cluster %d enumeration failed: %v", ci, err)
		return nil
	}

	builder, err := hike.NewBuilder(p.g, cl)
	if err != nil {
		log.Printf("Warning: cluster %d builder failed: %v", ci, err)
		return nil
	}
	hikes := builder.Build(seqs)
	log.Printf("Cluster %d: %d peaks, %d lots, %d sequences, %d hikes",
		ci, len(cl.Peaks), len(cl.Lots), len(seqs), len(hikes))
	return hikes
}
