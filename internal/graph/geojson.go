package graph

import (
	"fmt"
	"log"
	"os"

	geojson "github.com/paulmach/go.geojson"

	"github.com/peakplanner/peakplanner_core/internal/models"
	"github.com/peakplanner/peakplanner_core/internal/region"
)

// LoadNetwork reads an annotated network FeatureCollection from disk and
// builds the hiking graph, applying the region spec's overrides.
func LoadNetwork(path string, reg *region.Region) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse network %s: %w", path, err)
	}
	return FromFeatureCollection(fc, reg)
}

// FromFeatureCollection builds a graph from point features (vertices) and
// LineString features (edges). Line features must carry a d_km length and
// a nodes list whose first and last entries are the line's endpoints;
// interior nodes are geometry-only and are contracted away.
func FromFeatureCollection(fc *geojson.FeatureCollection, reg *region.Region) (*Graph, error) {
	g := New()

	// Pass 1: point features become typed vertices.
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsPoint() {
			continue
		}
		id, ok := featureID(f)
		if !ok {
			return nil, fmt.Errorf("%w: point feature without id", ErrMalformedGraph)
		}
		kind := vertexKind(stringProp(f, "type"))
		if kind == models.KindLot && reg != nil && reg.IsInvalidParking(id) {
			log.Printf("Excluding invalid parking lot %d", id)
			continue
		}
		v := models.Vertex{
			ID:   id,
			Kind: kind,
			Name: stringProp(f, "name"),
			Code: stringProp(f, "code"),
			Lon:  f.Geometry.Point[0],
			Lat:  f.Geometry.Point[1],
		}
		if err := g.AddVertex(v); err != nil {
			return nil, err
		}
	}

	// Pass 2: line features become edges.
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsLineString() {
			continue
		}
		nodes, err := int64SliceProp(f, "nodes")
		if err != nil {
			return nil, fmt.Errorf("%w: line feature nodes: %v", ErrMalformedGraph, err)
		}
		if len(nodes) < 2 {
			return nil, fmt.Errorf("%w: line feature with %d nodes", ErrMalformedGraph, len(nodes))
		}
		from, to := nodes[0], nodes[len(nodes)-1]
		dKm, ok := floatProp(f, "d_km")
		if !ok {
			return nil, fmt.Errorf("%w: line %d-%d without d_km", ErrMalformedGraph, from, to)
		}

		if reg != nil && (reg.IsInvalidParking(from) || reg.IsInvalidParking(to)) {
			continue
		}

		coords := f.Geometry.LineString
		kind, walkable := edgeKind(stringProp(f, "type"))
		if !walkable {
			// Road ways are for driving, not hiking, unless the region
			// spec promotes them by name.
			if reg == nil || !reg.IsRoadTrail(stringProp(f, "name")) {
				continue
			}
			log.Printf("Treating road %q (%d-%d) as a trail per region spec", stringProp(f, "name"), from, to)
			kind = models.EdgeTrail
		}

		// Endpoints without a point feature are implicit junctions.
		for i, id := range []int64{from, to} {
			if _, ok := g.Vertex(id); ok {
				continue
			}
			pt := coords[0]
			if i == 1 {
				pt = coords[len(coords)-1]
			}
			v := models.Vertex{ID: id, Kind: models.KindJunction, Lon: pt[0], Lat: pt[1]}
			if err := g.AddVertex(v); err != nil {
				return nil, err
			}
		}

		if reg != nil && reg.ShouldToss(from, to) {
			log.Printf("Tossing edge %d-%d per region spec", from, to)
			continue
		}

		gain, _ := floatProp(f, "ele_gain")
		loss, _ := floatProp(f, "ele_loss")

		e := models.Edge{
			From:     from,
			To:       to,
			DKm:      dKm,
			GainM:    gain,
			LossM:    loss,
			Kind:     kind,
			Polyline: coords,
		}
		if kind == models.EdgeLotWalk && reg != nil && reg.IsBadLotWalk(from, to) {
			e.Disallowed = true
		}
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func vertexKind(s string) models.VertexKind {
	switch s {
	case string(models.KindPeak):
		return models.KindPeak
	case string(models.KindTrailhead):
		return models.KindTrailhead
	case string(models.KindLot):
		return models.KindLot
	default:
		return models.KindJunction
	}
}

// edgeKind classifies a line feature and reports whether it is walkable
// as-is. Road ways are not, but the region spec may promote them.
func edgeKind(s string) (models.EdgeKind, bool) {
	switch s {
	case "lot-to-trailhead", "lot-to-lot", string(models.EdgeLotWalk):
		return models.EdgeLotWalk, true
	case "road":
		return models.EdgeTrail, false
	default:
		return models.EdgeTrail, true
	}
}

func featureID(f *geojson.Feature) (int64, bool) {
	if v, ok := f.Properties["id"]; ok {
		if n, ok := toInt64(v); ok {
			return n, true
		}
	}
	if n, ok := toInt64(f.ID); ok {
		return n, true
	}
	return 0, false
}

func stringProp(f *geojson.Feature, key string) string {
	if v, ok := f.Properties[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func floatProp(f *geojson.Feature, key string) (float64, bool) {
	if v, ok := f.Properties[key]; ok {
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		}
	}
	return 0, false
}

func int64SliceProp(f *geojson.Feature, key string) ([]int64, error) {
	v, ok := f.Properties[key]
	if !ok {
		return nil, fmt.Errorf("missing %s property", key)
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s is not a list", key)
	}
	out := make([]int64, len(raw))
	for i, item := range raw {
		n, ok := toInt64(item)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not an integer", key, i)
		}
		out[i] = n
	}
	return out, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
