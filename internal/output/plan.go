package output

import (
	"fmt"
	"math"

	geojson "github.com/paulmach/go.geojson"

	"github.com/peakplanner/peakplanner_core/internal/geo"
	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/models"
)

// Assembler resolves chosen hikes into geometric features. Node chains are
// expanded to full vertex paths and each edge polyline is oriented so the
// geometry is traversed monotonically.
type Assembler struct {
	g     *graph.Graph
	trees map[int64]*graph.ShortestTree
}

// NewAssembler creates an assembler over the network graph.
func NewAssembler(g *graph.Graph) *Assembler {
	return &Assembler{g: g, trees: make(map[int64]*graph.ShortestTree)}
}

// PlanFeatureCollection emits the plan: a point feature per summited peak,
// a point feature per lot used, and a MultiLineString feature per hike.
func (a *Assembler) PlanFeatureCollection(plan models.Plan) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()

	peakSeen := make(map[int64]bool)
	lotSeen := make(map[int64]bool)
	for _, h := range plan.Hikes {
		for _, p := range h.Peaks() {
			if peakSeen[p] {
				continue
			}
			peakSeen[p] = true
			v, ok := a.g.Vertex(p)
			if !ok {
				return nil, fmt.Errorf("%w: peak %d", graph.ErrMissingVertex, p)
			}
			f := geojson.NewPointFeature([]float64{v.Lon, v.Lat})
			f.SetProperty("type", string(models.KindPeak))
			f.SetProperty("id", v.ID)
			f.SetProperty("name", v.Name)
			if v.Code != "" {
				f.SetProperty("code", v.Code)
			}
			fc.AddFeature(f)
		}
		for _, lot := range []int64{h.Nodes[0], h.Nodes[len(h.Nodes)-1]} {
			if lotSeen[lot] {
				continue
			}
			lotSeen[lot] = true
			v, ok := a.g.Vertex(lot)
			if !ok {
				return nil, fmt.Errorf("%w: lot %d", graph.ErrMissingVertex, lot)
			}
			f := geojson.NewPointFeature([]float64{v.Lon, v.Lat})
			f.SetProperty("type", string(models.KindLot))
			f.SetProperty("id", v.ID)
			if v.Name != "" {
				f.SetProperty("name", v.Name)
			}
			fc.AddFeature(f)
		}
	}

	for _, h := range plan.Hikes {
		f, err := a.HikeFeature(h)
		if err != nil {
			return nil, err
		}
		fc.AddFeature(f)
	}
	return fc, nil
}

// HikeFeature resolves one hike to a MultiLineString feature with its
// metrics. The cost property appears only when it differs from the true
// distance (a penalized through-hike).
func (a *Assembler) HikeFeature(h models.Hike) (*geojson.Feature, error) {
	coords, err := a.hikeGeometry(h)
	if err != nil {
		return nil, err
	}
	f := geojson.NewMultiLineStringFeature(coords...)
	f.SetProperty("d_km", round2(h.DKm))
	f.SetProperty("d_mi", round2(h.DKm*geo.MiPerKm))
	f.SetProperty("ele_m", h.EleGainM)
	f.SetProperty("ele_ft", int(float64(h.EleGainM)*geo.FtPerM))
	f.SetProperty("nodes", h.Nodes)

	var names []string
	for _, p := range h.Peaks() {
		v, ok := a.g.Vertex(p)
		if !ok {
			return nil, fmt.Errorf("%w: peak %d", graph.ErrMissingVertex, p)
		}
		names = append(names, v.Name)
	}
	f.SetProperty("peaks", names)

	if h.Cost != h.DKm {
		f.SetProperty("cost", round2(h.Cost))
	}
	return f, nil
}

// HikeCoordinates returns the hike geometry flattened to one point list,
// for GPX export.
func (a *Assembler) HikeCoordinates(h models.Hike) ([][]float64, error) {
	segments, err := a.hikeGeometry(h)
	if err != nil {
		return nil, err
	}
	var coords [][]float64
	for _, seg := range segments {
		coords = append(coords, seg...)
	}
	return coords, nil
}

// hikeGeometry expands the waypoint chain to underlying edges and orients
// each polyline to start at its from-vertex.
func (a *Assembler) hikeGeometry(h models.Hike) ([][][]float64, error) {
	var segments [][][]float64
	for i := 1; i < len(h.Nodes); i++ {
		path, err := a.pathBetween(h.Nodes[i-1], h.Nodes[i])
		if err != nil {
			return nil, err
		}
		for j := 1; j < len(path); j++ {
			u, v := path[j-1], path[j]
			e, ok := a.g.EdgeBetween(u, v)
			if !ok {
				return nil, fmt.Errorf("missing edge %d-%d on hike path", u, v)
			}
			uv, _ := a.g.Vertex(u)
			vv, _ := a.g.Vertex(v)
			line := e.Polyline
			if len(line) == 0 {
				line = [][]float64{{uv.Lon, uv.Lat}, {vv.Lon, vv.Lat}}
			}
			segments = append(segments, geo.Orient(line, []float64{uv.Lon, uv.Lat}))
		}
	}
	return segments, nil
}

func (a *Assembler) pathBetween(from, to int64) ([]int64, error) {
	if from == to {
		return []int64{from}, nil
	}
	tree, ok := a.trees[from]
	if !ok {
		var err error
		tree, err = a.g.ShortestFrom(from, nil)
		if err != nil {
			return nil, err
		}
		a.trees[from] = tree
	}
	path := tree.PathTo(to)
	if path == nil {
		return nil, fmt.Errorf("no path from %d to %d", from, to)
	}
	return path, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
