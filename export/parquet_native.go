//go:build !js

package export

import (
	"time"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/lucasjlepore/workout-ingest/track"
)

type trackParquetRow struct {
	TimeUTC  string   `parquet:"name=time_utc, type=BYTE_ARRAY, convertedtype=UTF8"`
	ElapsedS float64  `parquet:"name=elapsed_s, type=DOUBLE"`
	Lat      float64  `parquet:"name=lat, type=DOUBLE"`
	Lon      float64  `parquet:"name=lon, type=DOUBLE"`
	EleM     *float64 `parquet:"name=ele_m, type=DOUBLE, repetitiontype=OPTIONAL"`
	HRBPM    *int64   `parquet:"name=hr_bpm, type=INT64, repetitiontype=OPTIONAL"`
	Cadence  *int64   `parquet:"name=cadence, type=INT64, repetitiontype=OPTIONAL"`
}

// MarshalTrackParquet renders points as a Snappy-compressed Parquet file in
// memory. Absent sensor values are null.
func MarshalTrackParquet(points []track.Point) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeTrackParquet(fw, points); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// WriteTrackParquetFile writes points as a Parquet file at path.
func WriteTrackParquetFile(path string, points []track.Point) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	return writeTrackParquet(fw, points)
}

func writeTrackParquet(fw source.ParquetFile, points []track.Point) error {
	pw, err := writer.NewParquetWriter(fw, new(trackParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	var start time.Time
	if len(points) > 0 {
		start = points[0].Timestamp
	}
	for _, p := range points {
		row := trackParquetRow{
			TimeUTC:  p.Timestamp.UTC().Format(time.RFC3339),
			ElapsedS: p.Timestamp.Sub(start).Seconds(),
			Lat:      p.Latitude,
			Lon:      p.Longitude,
			EleM:     p.Elevation,
			HRBPM:    int64Ptr(p.HeartRate),
			Cadence:  int64Ptr(p.Cadence),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func int64Ptr(v *uint32) *int64 {
	if v == nil {
		return nil
	}
	out := int64(*v)
	return &out
}
