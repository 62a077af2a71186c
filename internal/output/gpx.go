package output

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/peakplanner/peakplanner_core/internal/models"
)

// HikeGPX renders a single hike as a GPX track.
func (a *Assembler) HikeGPX(h models.Hike, name string) ([]byte, error) {
	coords, err := a.HikeCoordinates(h)
	if err != nil {
		return nil, err
	}

	points := make([]gpx.GPXPoint, len(coords))
	for i, c := range coords {
		points[i] = gpx.GPXPoint{Point: gpx.Point{Longitude: c[0], Latitude: c[1]}}
	}

	doc := &gpx.GPX{
		Creator:     "peakplanner",
		Name:        name,
		Description: fmt.Sprintf("%.2f km, +%d m", h.DKm, h.EleGainM),
		Tracks: []gpx.GPXTrack{{
			Name:     name,
			Segments: []gpx.GPXTrackSegment{{Points: points}},
		}},
	}
	return doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}
