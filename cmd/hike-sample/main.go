package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/models"
	"github.com/peakplanner/peakplanner_core/internal/output"

	geojson "github.com/paulmach/go.geojson"
)

func main() {
	format := flag.String("format", "geojson", "Output format: geojson or gpx")
	seqFlag := flag.String("seq", "", "Comma-separated lot/peak ids to extract")
	index := flag.Int("index", -1, "Extract the hike at this index in the list")

	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Println("Usage: hike-sample [flags] <network.geojson> <hikes.json>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	g, err := graph.LoadNetwork(flag.Arg(0), nil)
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}

	var h models.Hike
	switch {
	case *seqFlag != "":
		for _, part := range strings.Split(*seqFlag, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				log.Fatalf("Invalid id %q in --seq", part)
			}
			h.Nodes = append(h.Nodes, id)
		}
	case *index >= 0:
		hikes, err := output.ReadHikeList(flag.Arg(1))
		if err != nil {
			log.Fatalf("Failed to load hikes: %v", err)
		}
		if *index >= len(hikes) {
			log.Fatalf("Index %d out of range: %d hikes", *index, len(hikes))
		}
		h = hikes[*index]
		log.Printf("Hike %d: %.2f km, +%d m, %d waypoints", *index, h.DKm, h.EleGainM, len(h.Nodes))
	default:
		log.Fatalf("One of --seq or --index is required")
	}

	asm := output.NewAssembler(g)

	switch *format {
	case "geojson":
		f, err := asm.HikeFeature(h)
		if err != nil {
			log.Fatalf("Failed to build hike feature: %v", err)
		}
		fc := geojson.NewFeatureCollection()
		fc.AddFeature(f)
		if err := json.NewEncoder(os.Stdout).Encode(fc); err != nil {
			log.Fatalf("Failed to write GeoJSON: %v", err)
		}
	case "gpx":
		name := fmt.Sprintf("Hike %d", *index)
		if *seqFlag != "" {
			name = fmt.Sprintf("Hike %s", *seqFlag)
		}
		data, err := asm.HikeGPX(h, name)
		if err != nil {
			log.Fatalf("Failed to build GPX: %v", err)
		}
		os.Stdout.Write(data)
		fmt.Println()
	default:
		log.Fatalf("Unknown format %q", *format)
	}
}
