package gpxdecode

import (
	"encoding/xml"
	"math"
	"strconv"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"
	"golang.org/x/net/html/charset"
)

// rawPoint is the part of a <trkpt> that gpxgo does not keep: whether the
// coordinate attributes were written at all, the verbatim <ele> text, and
// child elements outside the GPX schema (sensor values some exporters put
// directly under the point).
type rawPoint struct {
	Lat   *string             `xml:"lat,attr"`
	Lon   *string             `xml:"lon,attr"`
	Ele   *string             `xml:"ele"`
	Extra []gpx.ExtensionNode `xml:",any"`
}

type rawDocument struct {
	Tracks []struct {
		Segments []struct {
			Points []rawPoint `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

// rawTrackPoints returns every <trkpt> in document order, which is the order
// gpxgo flattens tracks and segments in.
func rawTrackPoints(xmlText string) ([]rawPoint, error) {
	dec := xml.NewDecoder(strings.NewReader(xmlText))
	dec.CharsetReader = charset.NewReaderLabel

	var doc rawDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	var points []rawPoint
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			points = append(points, seg.Points...)
		}
	}
	return points, nil
}

// hasCoordinates reports whether both lat and lon were written with a
// numeric value.
func (r rawPoint) hasCoordinates() bool {
	return parseAttrFloat(r.Lat) && parseAttrFloat(r.Lon)
}

// elevation reads the first numeric token of <ele>, so "12.5 m" is accepted.
func (r rawPoint) elevation() (float64, bool) {
	if r.Ele == nil {
		return 0, false
	}
	token := firstNumber(*r.Ele)
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseAttrFloat(s *string) bool {
	if s == nil {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	return err == nil
}
