// Package region holds the declarative side-input that tailors the planner
// to one mountain region: the bounding box, the required peak count, and
// the map-cleanup overrides (edges to delete, lot walks to ban, forced
// cluster splits). It is data, not code; the graph itself stays generic.
package region

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// BBox is a WGS84 bounding box.
type BBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Region is the per-region specification record.
type Region struct {
	BBox               BBox       `json:"bbox"`
	NumPeaks           int        `json:"num_peaks"`
	ForcedClusters     [][]string `json:"forced_clusters,omitempty"`
	EdgesToToss        [][2]int64 `json:"edges_to_toss,omitempty"`
	BadLotWalks        [][2]int64 `json:"bad_lot_walks,omitempty"`
	RoadsThatAreTrails []string   `json:"roads_that_are_trails,omitempty"`
	InvalidParkingIDs  []int64    `json:"invalid_parking_ids,omitempty"`
}

// Load reads a region spec from a JSON file.
func Load(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region spec: %w", err)
	}
	var r Region
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse region spec %s: %w", path, err)
	}
	if r.BBox.North < r.BBox.South {
		return nil, fmt.Errorf("region spec %s: north < south", path)
	}
	return &r, nil
}

// InBBox reports whether a point lies inside the region's bounding box.
func (r *Region) InBBox(lon, lat float64) bool {
	return r.BBox.South <= lat && lat <= r.BBox.North &&
		r.BBox.West <= lon && lon <= r.BBox.East
}

// IsInvalidParking reports whether a lot id is excluded by the spec.
func (r *Region) IsInvalidParking(id int64) bool {
	for _, bad := range r.InvalidParkingIDs {
		if bad == id {
			return true
		}
	}
	return false
}

// IsBadLotWalk reports whether the unordered lot pair is banned.
func (r *Region) IsBadLotWalk(a, b int64) bool {
	for _, p := range r.BadLotWalks {
		if (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a) {
			return true
		}
	}
	return false
}

// ShouldToss reports whether the edge between the two vertices must be
// deleted from the graph.
func (r *Region) ShouldToss(a, b int64) bool {
	for _, p := range r.EdgesToToss {
		if (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a) {
			return true
		}
	}
	return false
}

// IsRoadTrail reports whether a named road way should be treated as a
// trail when the network is assembled.
func (r *Region) IsRoadTrail(name string) bool {
	for _, n := range r.RoadsThatAreTrails {
		if n == name {
			return true
		}
	}
	return false
}
