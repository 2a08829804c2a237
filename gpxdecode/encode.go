package gpxdecode

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/lucasjlepore/workout-ingest/track"
)

const (
	creator = "workout-ingest"

	trackPointExtensionNS  = "http://www.garmin.com/xmlschemas/TrackPointExtension/v1"
	trackPointExtensionTag = "TrackPointExtension"

	schemaLocation = "http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd " +
		"http://www.garmin.com/xmlschemas/TrackPointExtension/v1 http://www.garmin.com/xmlschemas/TrackPointExtensionv1.xsd"
)

// Encode writes points as a single-track GPX 1.1 document. Heart rate and
// cadence go into a Garmin TrackPointExtension so Decode reads them back.
func Encode(points []track.Point) ([]byte, error) {
	seg := gpx.GPXTrackSegment{}
	for _, p := range points {
		gp := gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  p.Latitude,
				Longitude: p.Longitude,
			},
			Timestamp:  p.Timestamp.UTC(),
			Extensions: sensorExtension(p),
		}
		if p.Elevation != nil {
			gp.Elevation = *gpx.NewNullableFloat64(*p.Elevation)
		}
		seg.AppendPoint(&gp)
	}

	nsAttrs := []xml.Attr{{
		Name:  xml.Name{Space: "xmlns", Local: "gpxtpx"},
		Value: trackPointExtensionNS,
	}}
	doc := gpx.GPX{
		XmlSchemaLoc: schemaLocation,
		Attrs:        gpx.NewGPXAttributes(nsAttrs),
		Version:      "1.1",
		Creator:      creator,
		Tracks:       []gpx.GPXTrack{{Segments: []gpx.GPXTrackSegment{seg}}},
	}

	out, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("encode gpx: %w", err)
	}
	return out, nil
}

func sensorExtension(p track.Point) gpx.Extension {
	var children []gpx.ExtensionNode
	if p.HeartRate != nil {
		children = append(children, gpx.ExtensionNode{
			XMLName: xml.Name{Space: trackPointExtensionNS, Local: "hr"},
			Data:    strconv.FormatUint(uint64(*p.HeartRate), 10),
		})
	}
	if p.Cadence != nil {
		children = append(children, gpx.ExtensionNode{
			XMLName: xml.Name{Space: trackPointExtensionNS, Local: "cad"},
			Data:    strconv.FormatUint(uint64(*p.Cadence), 10),
		})
	}
	if len(children) == 0 {
		return gpx.Extension{}
	}
	return gpx.Extension{Nodes: []gpx.ExtensionNode{{
		XMLName: xml.Name{Space: trackPointExtensionNS, Local: trackPointExtensionTag},
		Nodes:   children,
	}}}
}
