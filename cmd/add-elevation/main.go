package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/hike"
	"github.com/peakplanner/peakplanner_core/internal/output"
)

func main() {
	outPath := flag.String("o", "", "Output path for the annotated hike list (default stdout)")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Println("Usage: add-elevation [flags] <network.geojson> <hikes.json>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	g, err := graph.LoadNetwork(flag.Arg(0), nil)
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}

	hikes, err := output.ReadHikeList(flag.Arg(1))
	if err != nil {
		log.Fatalf("Failed to load hikes: %v", err)
	}
	log.Printf("Annotating %d hikes", len(hikes))

	startTime := time.Now()
	annotated, err := hike.NewAnnotator(g).AnnotateAll(hikes)
	if err != nil {
		log.Fatalf("Failed to annotate hikes: %v", err)
	}
	log.Printf("Annotated in %v", time.Since(startTime))

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("Failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}
	if err := output.WriteHikeList(out, annotated); err != nil {
		log.Fatalf("Failed to write hike list: %v", err)
	}
}
