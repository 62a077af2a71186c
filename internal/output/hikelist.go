// Package output materializes hikes and plans into their external
// formats: the compact hike-list JSON, the plan FeatureCollection and GPX
// tracks for a single hike.
package output

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/goccy/go-json"

	"github.com/peakplanner/peakplanner_core/internal/models"
)

// WriteHikeList writes the ordered hike list as a JSON array of
// [d_km, ele_gain_m, [node ids]] entries, d_km rounded to 3 decimals.
func WriteHikeList(w io.Writer, hikes []models.Hike) error {
	records := make([][]interface{}, len(hikes))
	for i, h := range hikes {
		records[i] = []interface{}{round3(h.DKm), h.EleGainM, h.Nodes}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// ReadHikeList parses a hike list. Entries may be [d, nodes] pairs (before
// elevation annotation) or [d, ele, nodes] triples.
func ReadHikeList(path string) ([]models.Hike, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hike list: %w", err)
	}
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse hike list %s: %w", path, err)
	}

	hikes := make([]models.Hike, len(raw))
	for i, entry := range raw {
		if len(entry) != 2 && len(entry) != 3 {
			return nil, fmt.Errorf("hike %d: expected 2 or 3 fields, got %d", i, len(entry))
		}
		var d float64
		if err := json.Unmarshal(entry[0], &d); err != nil {
			return nil, fmt.Errorf("hike %d: bad distance: %w", i, err)
		}
		h := models.Hike{DKm: d, Cost: d}
		nodesRaw := entry[len(entry)-1]
		if len(entry) == 3 {
			var ele float64
			if err := json.Unmarshal(entry[1], &ele); err != nil {
				return nil, fmt.Errorf("hike %d: bad elevation: %w", i, err)
			}
			h.EleGainM = int(ele)
		}
		if err := json.Unmarshal(nodesRaw, &h.Nodes); err != nil {
			return nil, fmt.Errorf("hike %d: bad node list: %w", i, err)
		}
		if len(h.Nodes) < 2 {
			return nil, fmt.Errorf("hike %d: node list too short", i)
		}
		hikes[i] = h
	}
	return hikes, nil
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
