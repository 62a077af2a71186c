package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/output"
	"github.com/peakplanner/peakplanner_core/internal/planner"
	"github.com/peakplanner/peakplanner_core/internal/region"
)

func main() {
	regionPath := flag.String("region", "", "Path to region spec JSON (optional)")
	outPath := flag.String("o", "", "Output path for the hike list (default stdout)")
	maxLength := flag.Int("max-length", 0, "Max peaks per hike (default 8)")
	budget := flag.Int("budget", 0, "Per-cluster sequence budget")
	workers := flag.Int("workers", 0, "Cluster worker pool size (default GOMAXPROCS)")

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: build-hikes [flags] <network.geojson>")
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
	log.Printf("Network: %d vertices / %d edges", g.NumVertices(), g.NumEdges())
	log.Printf("  Peaks: %d", len(g.Peaks()))
	log.Printf("  Parking lots: %d", len(g.Lots()))

	// An interrupt between clusters still writes the hikes enumerated so
	// far.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := planner.New(g, reg, planner.Options{
		MaxSequenceLength: *maxLength,
		SequenceBudget:    *budget,
		Workers:           *workers,
	})

	startTime := time.Now()
	hikes, err := p.BuildAllHikes(ctx, nil)
	if err != nil {
		log.Printf("Warning: enumeration interrupted: %v", err)
	}
	log.Printf("Enumerated %d hikes in %v", len(hikes), time.Since(startTime))

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("Failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}
	if err := output.WriteHikeList(out, hikes); err != nil {
		log.Fatalf("Failed to write hike list: %v", err)
	}
}
