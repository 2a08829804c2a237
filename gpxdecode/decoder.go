// Package gpxdecode turns GPX 1.0/1.1 XML into normalized track points.
//
// Heart rate and cadence live in vendor extensions (Garmin TrackPointExtension,
// Strava, Suunto, ...) or as plain children of <trkpt>. They are located by
// element local name through ordered matcher tables, so namespace prefixes and
// nesting depth do not matter.
package gpxdecode

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/lucasjlepore/workout-ingest/geo"
	"github.com/lucasjlepore/workout-ingest/track"
)

var numberToken = regexp.MustCompile(`[-+]?(\d+(\.\d*)?|\.\d+)`)

// DefaultHeartRateTags are the extension element names searched for heart rate.
var DefaultHeartRateTags = []string{"hr", "heartrate", "heart_rate", "HeartRateBpm"}

// DefaultCadenceTags are the extension element names searched for cadence.
var DefaultCadenceTags = []string{"cad", "cadence", "RunCadence"}

// Decoder holds the matcher tables. Earlier entries win when a point carries
// more than one matching element. A Decoder is read-only after construction
// and safe for concurrent use.
type Decoder struct {
	HeartRateTags []string
	CadenceTags   []string
}

// NewDecoder returns a Decoder loaded with the default matcher tables.
func NewDecoder() *Decoder {
	return &Decoder{
		HeartRateTags: append([]string(nil), DefaultHeartRateTags...),
		CadenceTags:   append([]string(nil), DefaultCadenceTags...),
	}
}

// Decode parses xml with the default matcher tables.
func Decode(xml string) ([]track.Point, error) {
	return NewDecoder().Decode(xml)
}

// Decode parses xml and returns every timed track point in document order.
func (d *Decoder) Decode(xml string) ([]track.Point, error) {
	doc, err := gpx.ParseBytes([]byte(xml))
	if err != nil {
		return nil, track.Wrap(err, track.KindCorruptFile, "parse gpx")
	}

	raws, err := rawTrackPoints(xml)
	if err != nil {
		return nil, track.Wrap(err, track.KindCorruptFile, "parse gpx track points")
	}

	hrTags := normalizeTags(d.HeartRateTags)
	cadTags := normalizeTags(d.CadenceTags)

	var (
		points []track.Point
		i      int
	)
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, gp := range seg.Points {
				var raw *rawPoint
				if i < len(raws) {
					raw = &raws[i]
				}
				i++
				p, ok := convertPoint(gp, raw, hrTags, cadTags)
				if !ok {
					continue
				}
				points = append(points, p)
			}
		}
	}
	if i != len(raws) {
		return nil, track.Errorf(track.KindCorruptFile, "gpx track point count mismatch: %d vs %d", i, len(raws))
	}

	if len(points) < 2 {
		return nil, track.Errorf(track.KindInsufficientTrackPoints, "gpx has %d timed track points, need at least 2", len(points))
	}
	return points, nil
}

// convertPoint merges gpxgo's view of a point with the raw element. A point
// whose lat or lon attribute is missing is dropped rather than placed at 0.
func convertPoint(gp gpx.GPXPoint, raw *rawPoint, hrTags, cadTags []string) (track.Point, bool) {
	if gp.Timestamp.IsZero() {
		return track.Point{}, false
	}
	if raw == nil || !raw.hasCoordinates() {
		return track.Point{}, false
	}
	if !geo.ValidCoordinate(gp.Latitude, gp.Longitude) {
		return track.Point{}, false
	}

	p := track.Point{
		Latitude:  gp.Latitude,
		Longitude: gp.Longitude,
		Timestamp: gp.Timestamp.UTC(),
	}
	if gp.Elevation.NotNull() {
		if ele := gp.Elevation.Value(); !math.IsNaN(ele) && !math.IsInf(ele, 0) {
			p.Elevation = track.Float64(ele)
		}
	}
	if p.Elevation == nil {
		if ele, ok := raw.elevation(); ok {
			p.Elevation = track.Float64(ele)
		}
	}

	// Extensions first, then sensor elements written directly under <trkpt>.
	if v, ok := findCount(gp.Extensions.Nodes, hrTags); ok {
		p.HeartRate = track.Uint32(v)
	} else if v, ok := findCount(raw.Extra, hrTags); ok {
		p.HeartRate = track.Uint32(v)
	}
	if v, ok := findCount(gp.Extensions.Nodes, cadTags); ok {
		p.Cadence = track.Uint32(v)
	} else if v, ok := findCount(raw.Extra, cadTags); ok {
		p.Cadence = track.Uint32(v)
	}
	return p, true
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if i := strings.LastIndex(tag, ":"); i >= 0 {
			tag = tag[i+1:]
		}
		if tag == "" {
			continue
		}
		out = append(out, strings.ToLower(tag))
	}
	return out
}

// findCount tries each tag in table order and returns the first element whose
// text holds a usable non-negative count.
func findCount(nodes []gpx.ExtensionNode, tags []string) (uint32, bool) {
	for _, tag := range tags {
		node, ok := findNode(nodes, tag)
		if !ok {
			continue
		}
		if v, ok := nodeCount(node); ok {
			return v, true
		}
	}
	return 0, false
}

// findNode is a depth-first search in document order.
func findNode(nodes []gpx.ExtensionNode, tag string) (gpx.ExtensionNode, bool) {
	for _, node := range nodes {
		if strings.ToLower(node.XMLName.Local) == tag {
			return node, true
		}
		if len(node.Nodes) > 0 {
			if found, ok := findNode(node.Nodes, tag); ok {
				return found, true
			}
		}
	}
	return gpx.ExtensionNode{}, false
}

// nodeCount reads the element's own text, falling back to its children for
// wrappers such as <HeartRateBpm><Value>142</Value></HeartRateBpm>.
func nodeCount(node gpx.ExtensionNode) (uint32, bool) {
	if v, ok := parseCount(node.Data); ok {
		return v, true
	}
	for _, child := range node.Nodes {
		if v, ok := nodeCount(child); ok {
			return v, true
		}
	}
	return 0, false
}

// parseCount reads the first numeric token in text and rounds it. Some
// exporters write "142.000000" or "142 bpm".
func parseCount(text string) (uint32, bool) {
	token := firstNumber(text)
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	v = math.Round(v)
	if v < 0 || v > math.MaxUint32 {
		return 0, false
	}
	return uint32(v), true
}

func firstNumber(text string) string {
	return numberToken.FindString(text)
}
