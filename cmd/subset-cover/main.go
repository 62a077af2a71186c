package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/peakplanner/peakplanner_core/internal/cover"
	"github.com/peakplanner/peakplanner_core/internal/geo"
	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/output"
	"github.com/peakplanner/peakplanner_core/internal/region"
)

func main() {
	regionPath := flag.String("region", "", "Path to region spec JSON (optional)")
	outPath := flag.String("o", "", "Output path for the plan GeoJSON (default stdout)")
	maxIters := flag.Int("max-iterations", cover.DefaultMaxIterations, "Cap on Lagrangian passes")
	maxDayHikeMi := flag.Float64("max-day-hike-mi", 0, "Drop hikes longer than this many miles")
	nonLoopPenaltyKm := flag.Float64("non-loop-penalty-km", 0, "Solver cost added to through-hikes")
	loopsOnly := flag.Bool("loops-only", false, "Consider loop hikes only")
	greedyOnly := flag.Bool("greedy", false, "Use the greedy baseline instead of the Lagrangian solver")
	peakCodes := flag.String("peaks", "", "Comma-separated peak codes to cover (default: all peaks)")

	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Println("Usage: subset-cover [flags] <network.geojson> <hikes.json>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var reg *region.Region
	if *regionPath != "" {
		var err error
		reg, err = region.Load(*regionPath)
		if err != nil {
			log.Fatalf("Failed to load region spec: %v", err)
		}
	}

	g, err := graph.LoadNetwork(flag.Arg(0), reg)
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}
	hikes, err := output.ReadHikeList(flag.Arg(1))
	if err != nil {
		log.Fatalf("Failed to load hikes: %v", err)
	}

	required := g.Peaks()
	if *peakCodes != "" {
		required, err = resolveCodes(g, *peakCodes)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	opts := cover.Options{
		MaxIterations:    *maxIters,
		NonLoopPenaltyKm: *nonLoopPenaltyKm,
		LoopsOnly:        *loopsOnly,
	}
	if *maxDayHikeMi > 0 {
		opts.MaxHikeKm = *maxDayHikeMi / geo.MiPerKm
	}

	log.Printf("Covering %d peaks with %d candidate hikes", len(required), len(hikes))
	log.Printf("Max iterations: %d", opts.MaxIterations)
	if opts.MaxHikeKm > 0 {
		log.Printf("Max day hike length: %.1f mi", *maxDayHikeMi)
	}

	startTime := time.Now()
	solve := cover.Solve
	if *greedyOnly {
		solve = cover.Greedy
	}
	plan, err := solve(hikes, required, opts)
	if err != nil {
		log.Fatalf("Cover failed: %v", err)
	}
	log.Printf("Solved in %v", time.Since(startTime))
	log.Printf("  %d hikes: %.2f km = %.2f mi", len(plan.Hikes), plan.TotalKm, plan.TotalKm*geo.MiPerKm)

	fc, err := output.NewAssembler(g).PlanFeatureCollection(plan)
	if err != nil {
		log.Fatalf("Failed to assemble plan: %v", err)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("Failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}
	if err := json.NewEncoder(out).Encode(fc); err != nil {
		log.Fatalf("Failed to write plan: %v", err)
	}
}

func resolveCodes(g *graph.Graph, codes string) ([]int64, error) {
	codeToID := make(map[string]int64)
	for _, id := range g.Peaks() {
		v, _ := g.Vertex(id)
		if v.Code != "" {
			codeToID[v.Code] = id
		}
	}
	var out []int64
	for _, code := range strings.Split(codes, ",") {
		id, ok := codeToID[strings.TrimSpace(code)]
		if !ok {
			return nil, fmt.Errorf("unknown peak code %q", code)
		}
		out = append(out, id)
	}
	return out, nil
}
