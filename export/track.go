// Package export renders decoded workouts as files: a JSON summary plus the
// GPS track as JSON, CSV, Parquet or GPX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lucasjlepore/workout-ingest/track"
)

// TrackFormat selects the GPS track encoding.
type TrackFormat string

const (
	TrackJSON    TrackFormat = "json"
	TrackCSV     TrackFormat = "csv"
	TrackParquet TrackFormat = "parquet"
	TrackGPX     TrackFormat = "gpx"
)

// ParseTrackFormat accepts json|csv|parquet|gpx, case-insensitive. Empty
// means json.
func ParseTrackFormat(s string) (TrackFormat, error) {
	switch f := TrackFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return TrackJSON, nil
	case TrackJSON, TrackCSV, TrackParquet, TrackGPX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported track format %q (expected json|csv|parquet|gpx)", s)
	}
}

// MarshalTrackJSON renders points as a compact JSON array. Absent sensor
// fields are omitted per point.
func MarshalTrackJSON(points []track.Point) ([]byte, error) {
	if points == nil {
		points = []track.Point{}
	}
	return json.Marshal(points)
}

// UnmarshalTrackJSON is the inverse of MarshalTrackJSON.
func UnmarshalTrackJSON(data []byte) ([]track.Point, error) {
	var points []track.Point
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("decode track json: %w", err)
	}
	return points, nil
}

var csvHeader = []string{"time_utc", "elapsed_s", "lat", "lon", "ele_m", "hr_bpm", "cadence"}

// WriteTrackCSV writes one row per point. Absent sensor values are empty
// cells, so a recorded zero stays distinguishable.
func WriteTrackCSV(w io.Writer, points []track.Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	var start time.Time
	if len(points) > 0 {
		start = points[0].Timestamp
	}
	for _, p := range points {
		row := []string{
			p.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(p.Timestamp.Sub(start).Seconds(), 3),
			formatFloat(p.Latitude, 7),
			formatFloat(p.Longitude, 7),
			formatFloatPtr(p.Elevation, 2),
			formatUintPtr(p.HeartRate),
			formatUintPtr(p.Cadence),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatFloatPtr(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v, prec)
}

func formatUintPtr(v *uint32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}
