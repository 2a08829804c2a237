//go:build js

package export

import (
	"errors"

	"github.com/lucasjlepore/workout-ingest/track"
)

var errParquetUnavailable = errors.New("parquet export is not available in js builds; use json, csv or gpx")

// MarshalTrackParquet is unavailable in js builds.
func MarshalTrackParquet(points []track.Point) ([]byte, error) {
	return nil, errParquetUnavailable
}

// WriteTrackParquetFile is unavailable in js builds.
func WriteTrackParquetFile(path string, points []track.Point) error {
	return errParquetUnavailable
}
