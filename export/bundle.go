package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ingest "github.com/lucasjlepore/workout-ingest"
	"github.com/lucasjlepore/workout-ingest/fitdecode"
	"github.com/lucasjlepore/workout-ingest/gpxdecode"
)

const summaryFileName = "summary.json"

// Summary is the scalar part of a decode, written next to the track file.
type Summary struct {
	Format              string                `json:"format"`
	StartTime           string                `json:"start_time"`
	EndTime             string                `json:"end_time"`
	DurationSeconds     float64               `json:"duration_seconds"`
	DistanceMeters      float64               `json:"distance_meters"`
	AvgPaceSecPerKm     float64               `json:"avg_pace_sec_per_km"`
	ElevationGainMeters *float64              `json:"elevation_gain_meters,omitempty"`
	AvgHeartRate        *float64              `json:"avg_heart_rate,omitempty"`
	MaxHeartRate        *uint32               `json:"max_heart_rate,omitempty"`
	AvgCadence          *float64              `json:"avg_cadence,omitempty"`
	MaxCadence          *uint32               `json:"max_cadence,omitempty"`
	TrackPoints         int                   `json:"track_points"`
	TrackFile           string                `json:"track_file"`
	Device              *fitdecode.FileIDInfo `json:"device,omitempty"`
	Warnings            []string              `json:"warnings,omitempty"`
}

// NewSummary projects res into a Summary that references trackFile.
func NewSummary(res *ingest.Result, trackFile string) Summary {
	m := res.Metrics
	return Summary{
		Format:              string(res.Format),
		StartTime:           m.StartTime.UTC().Format(time.RFC3339),
		EndTime:             m.EndTime.UTC().Format(time.RFC3339),
		DurationSeconds:     m.DurationSeconds,
		DistanceMeters:      m.DistanceMeters,
		AvgPaceSecPerKm:     m.AvgPaceSecPerKm,
		ElevationGainMeters: m.ElevationGainMeters,
		AvgHeartRate:        m.AvgHeartRate,
		MaxHeartRate:        m.MaxHeartRate,
		AvgCadence:          m.AvgCadence,
		MaxCadence:          m.MaxCadence,
		TrackPoints:         len(m.GPSTrack),
		TrackFile:           trackFile,
		Device:              res.Device,
		Warnings:            res.Warnings,
	}
}

// TrackFileName is the track artifact name for format.
func TrackFileName(format TrackFormat) string {
	return "gps_track." + string(format)
}

// Files renders the summary and the track into named in-memory artifacts.
func Files(res *ingest.Result, format TrackFormat) (map[string][]byte, error) {
	if res == nil || res.Metrics == nil {
		return nil, fmt.Errorf("no decoded workout to export")
	}
	trackName := TrackFileName(format)

	var (
		trackBytes []byte
		err        error
	)
	points := res.Metrics.GPSTrack
	switch format {
	case TrackJSON:
		trackBytes, err = MarshalTrackJSON(points)
	case TrackCSV:
		var buf bytes.Buffer
		err = WriteTrackCSV(&buf, points)
		trackBytes = buf.Bytes()
	case TrackParquet:
		trackBytes, err = MarshalTrackParquet(points)
	case TrackGPX:
		trackBytes, err = gpxdecode.Encode(points)
	default:
		return nil, fmt.Errorf("unsupported track format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", trackName, err)
	}

	summary, err := marshalJSON(NewSummary(res, trackName))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", summaryFileName, err)
	}
	return map[string][]byte{
		summaryFileName: summary,
		trackName:       trackBytes,
	}, nil
}

// BundleOptions controls WriteBundle.
type BundleOptions struct {
	OutDir      string
	TrackFormat TrackFormat
	Overwrite   bool
}

// BundleResult lists the written artifacts.
type BundleResult struct {
	OutputDir   string
	SummaryPath string
	TrackPath   string
}

// WriteBundle writes summary.json and gps_track.<format> into opts.OutDir.
func WriteBundle(res *ingest.Result, opts BundleOptions) (*BundleResult, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format := opts.TrackFormat
	if format == "" {
		format = TrackJSON
	}
	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}

	out := &BundleResult{
		OutputDir:   opts.OutDir,
		SummaryPath: filepath.Join(opts.OutDir, summaryFileName),
		TrackPath:   filepath.Join(opts.OutDir, TrackFileName(format)),
	}

	// Parquet streams straight to disk; everything else is rendered in memory.
	if format == TrackParquet {
		if res == nil || res.Metrics == nil {
			return nil, fmt.Errorf("no decoded workout to export")
		}
		if err := WriteTrackParquetFile(out.TrackPath, res.Metrics.GPSTrack); err != nil {
			return nil, fmt.Errorf("write %s: %w", TrackFileName(format), err)
		}
		if err := writeJSON(out.SummaryPath, NewSummary(res, TrackFileName(format))); err != nil {
			return nil, fmt.Errorf("write %s: %w", summaryFileName, err)
		}
		return out, nil
	}

	files, err := Files(res, format)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(opts.OutDir, name), files[name], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return out, nil
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}

func writeJSON(path string, v any) error {
	out, err := marshalJSON(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func marshalJSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
