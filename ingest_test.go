package ingest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tormoder/fit"

	"github.com/lucasjlepore/workout-ingest/track"
)

const seoulGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="Strava" xmlns="http://www.topografix.com/GPX/1/1"
  xmlns:gpxtpx="http://www.garmin.com/xmlschemas/TrackPointExtension/v1">
  <trk><trkseg>
    <trkpt lat="37.5665" lon="126.9780">
      <ele>20</ele><time>2024-05-01T06:00:00Z</time>
      <extensions><gpxtpx:TrackPointExtension><gpxtpx:hr>140</gpxtpx:hr></gpxtpx:TrackPointExtension></extensions>
    </trkpt>
    <trkpt lat="37.5675" lon="126.9790">
      <ele>25</ele><time>2024-05-01T06:01:00Z</time>
      <extensions><gpxtpx:TrackPointExtension><gpxtpx:hr>150</gpxtpx:hr></gpxtpx:TrackPointExtension></extensions>
    </trkpt>
  </trkseg></trk>
</gpx>`

func TestParseGPXSeoulScenario(t *testing.T) {
	m, err := ParseGPX(seoulGPX)
	if err != nil {
		t.Fatalf("ParseGPX error: %v", err)
	}
	if m.DurationSeconds != 60 {
		t.Fatalf("duration = %v, want 60", m.DurationSeconds)
	}
	if m.DistanceMeters < 100 || m.DistanceMeters > 200 {
		t.Fatalf("distance = %v, want roughly 140 m", m.DistanceMeters)
	}
	if m.ElevationGainMeters == nil || *m.ElevationGainMeters != 5 {
		t.Fatalf("elevation gain = %v, want 5", m.ElevationGainMeters)
	}
	if m.AvgHeartRate == nil || *m.AvgHeartRate != 145 {
		t.Fatalf("avg heart rate = %v, want 145", m.AvgHeartRate)
	}
	if m.MaxHeartRate == nil || *m.MaxHeartRate != 150 {
		t.Fatalf("max heart rate = %v, want 150", m.MaxHeartRate)
	}
	if m.AvgCadence != nil {
		t.Fatal("cadence must be absent")
	}
	if len(m.GPSTrack) != 2 {
		t.Fatalf("track length = %d", len(m.GPSTrack))
	}
}

func TestParseGPXSeoulScenarioPlainSensorElements(t *testing.T) {
	doc := `<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>
<trkpt lat="37.5665" lon="126.9780"><ele>20</ele><time>2024-05-01T06:00:00Z</time><hr>140</hr><cad>80</cad></trkpt>
<trkpt lat="37.5675" lon="126.9790"><ele>25</ele><time>2024-05-01T06:01:00Z</time><hr>150</hr><cad>90</cad></trkpt>
</trkseg></trk></gpx>`

	m, err := ParseGPX(doc)
	if err != nil {
		t.Fatalf("ParseGPX error: %v", err)
	}
	if m.DurationSeconds != 60 || m.DistanceMeters < 100 || m.DistanceMeters > 200 {
		t.Fatalf("duration = %v distance = %v", m.DurationSeconds, m.DistanceMeters)
	}
	if m.ElevationGainMeters == nil || *m.ElevationGainMeters != 5 {
		t.Fatalf("elevation gain = %v, want 5", m.ElevationGainMeters)
	}
	if m.AvgHeartRate == nil || *m.AvgHeartRate != 145 || m.MaxHeartRate == nil || *m.MaxHeartRate != 150 {
		t.Fatalf("heart rate = %v / %v, want 145 / 150", m.AvgHeartRate, m.MaxHeartRate)
	}
	if m.AvgCadence == nil || *m.AvgCadence != 85 || m.MaxCadence == nil || *m.MaxCadence != 90 {
		t.Fatalf("cadence = %v / %v, want 85 / 90", m.AvgCadence, m.MaxCadence)
	}
}

func TestParseGPXMissingLatitudeIsNotZero(t *testing.T) {
	doc := `<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>
<trkpt lon="126.9780"><time>2024-05-01T05:59:00Z</time></trkpt>
<trkpt lat="37.5665" lon="126.9780"><time>2024-05-01T06:00:00Z</time></trkpt>
<trkpt lat="37.5675" lon="126.9790"><time>2024-05-01T06:01:00Z</time></trkpt>
</trkseg></trk></gpx>`

	m, err := ParseGPX(doc)
	if err != nil {
		t.Fatalf("ParseGPX error: %v", err)
	}
	if m.GPSTrack[0].Latitude != 37.5665 || m.DistanceMeters > 200 {
		t.Fatalf("point without lat must be dropped: first=%+v distance=%v", m.GPSTrack[0], m.DistanceMeters)
	}
}

func TestParseFITActivity(t *testing.T) {
	data := buildFIT(t)
	m, err := ParseFIT(data)
	if err != nil {
		t.Fatalf("ParseFIT error: %v", err)
	}
	if m.DurationSeconds != 60 {
		t.Fatalf("duration = %v, want 60", m.DurationSeconds)
	}
	if m.DistanceMeters <= 0 {
		t.Fatalf("distance = %v", m.DistanceMeters)
	}
	if m.AvgHeartRate == nil || math.Abs(*m.AvgHeartRate-145) > 1e-9 {
		t.Fatalf("avg heart rate = %v, want 145", m.AvgHeartRate)
	}
	if m.AvgCadence == nil || *m.MaxCadence != 84 {
		t.Fatalf("cadence not aggregated: %v %v", m.AvgCadence, m.MaxCadence)
	}
}

func TestParserAutoDetectsAndProjectsDevice(t *testing.T) {
	p := New(Options{})

	res, err := p.Parse(FormatAuto, buildFIT(t))
	if err != nil {
		t.Fatalf("Parse FIT error: %v", err)
	}
	if res.Format != FormatFIT || res.Device == nil {
		t.Fatalf("unexpected result: format=%s device=%+v", res.Format, res.Device)
	}

	res, err = p.Parse(FormatAuto, []byte(seoulGPX))
	if err != nil {
		t.Fatalf("Parse GPX error: %v", err)
	}
	if res.Format != FormatGPX || res.Device != nil {
		t.Fatalf("unexpected result: format=%s device=%+v", res.Format, res.Device)
	}
}

func TestParseErrors(t *testing.T) {
	data := buildFIT(t)
	tests := []struct {
		name   string
		opts   Options
		format Format
		data   []byte
		want   error
	}{
		{name: "unknown content", format: FormatAuto, data: []byte("hello"), want: track.ErrUnsupportedFormat},
		{name: "unknown declared format", format: Format("tcx"), data: []byte(seoulGPX), want: track.ErrUnsupportedFormat},
		{name: "gpx bytes declared as fit", format: FormatFIT, data: []byte(seoulGPX), want: track.ErrCorruptFile},
		{name: "truncated fit", format: FormatFIT, data: data[:len(data)-10], want: track.ErrCorruptFile},
		{name: "size limit", opts: Options{MaxInputBytes: 64}, format: FormatGPX, data: []byte(seoulGPX), want: track.ErrInputTooLarge},
		{
			name:   "one point",
			format: FormatGPX,
			data: []byte(`<gpx version="1.1" creator="x" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>
<trkpt lat="1" lon="1"><time>2024-01-01T00:00:00Z</time></trkpt></trkseg></trk></gpx>`),
			want: track.ErrInsufficientTrackPoints,
		},
		{
			name:   "reversed time",
			format: FormatGPX,
			data: []byte(`<gpx version="1.1" creator="x" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>
<trkpt lat="1" lon="1"><time>2024-01-01T00:10:00Z</time></trkpt>
<trkpt lat="1.001" lon="1"><time>2024-01-01T00:00:00Z</time></trkpt></trkseg></trk></gpx>`),
			want: track.ErrInvalidTimeOrdering,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.opts).Parse(tc.format, tc.data)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParserCustomTags(t *testing.T) {
	doc := strings.ReplaceAll(seoulGPX, "gpxtpx:hr", "gpxtpx:pulse")
	m, err := ParseGPX(doc)
	if err != nil {
		t.Fatalf("ParseGPX error: %v", err)
	}
	if m.AvgHeartRate != nil {
		t.Fatal("unknown tag must not match with default tables")
	}

	res, err := New(Options{HeartRateTags: []string{"pulse"}}).ParseGPX(doc)
	if err != nil {
		t.Fatalf("ParseGPX error: %v", err)
	}
	if res.Metrics.AvgHeartRate == nil || *res.Metrics.AvgHeartRate != 145 {
		t.Fatalf("custom tag not used: %v", res.Metrics.AvgHeartRate)
	}
}

func TestParserLogsSoftWarnings(t *testing.T) {
	data := buildFIT(t)
	data[len(data)-1] ^= 0xFF

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	res, err := New(Options{Logger: logger}).ParseFIT(data)
	if err != nil {
		t.Fatalf("ParseFIT error: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected crc warning in result")
	}
	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "crc mismatch") {
		t.Fatalf("expected warning log, got %s", out)
	}
	if !strings.Contains(out, "fit decoded") {
		t.Fatalf("expected debug statistics, got %s", out)
	}

	if _, err := New(Options{StrictCRC: true}).ParseFIT(data); !errors.Is(err, track.ErrCorruptFile) {
		t.Fatalf("strict crc: expected CorruptFile, got %v", err)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	for _, input := range [][]byte{[]byte(seoulGPX), buildFIT(t)} {
		a, err := New(Options{}).Parse(FormatAuto, input)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		b, err := New(Options{}).Parse(FormatAuto, input)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("%s: results differ between runs", a.Format)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":                        FormatAuto,
		"AUTO":                    FormatAuto,
		"gpx":                     FormatGPX,
		".GPX":                    FormatGPX,
		"application/gpx+xml":     FormatGPX,
		" fit ":                   FormatFIT,
		"application/vnd.ant.fit": FormatFIT,
		"application/fit; q=1":    FormatFIT,
	}
	for tag, want := range tests {
		got, err := ParseFormat(tag)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", tag, got, err, want)
		}
	}
	if _, err := ParseFormat("tcx"); !errors.Is(err, track.ErrUnsupportedFormat) {
		t.Fatalf("expected UnsupportedFormat, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{name: "fit", data: buildFIT(t), want: FormatFIT},
		{name: "gpx", data: []byte(seoulGPX), want: FormatGPX},
		{name: "gpx with bom", data: append([]byte("\xef\xbb\xbf  "), []byte(seoulGPX)...), want: FormatGPX},
	}
	for _, tc := range tests {
		got, err := DetectFormat(tc.data)
		if err != nil || got != tc.want {
			t.Fatalf("%s: DetectFormat = %q, %v", tc.name, got, err)
		}
	}
	if _, err := DetectFormat([]byte("<html><body></body></html>")); !errors.Is(err, track.ErrUnsupportedFormat) {
		t.Fatalf("expected UnsupportedFormat for html, got %v", err)
	}
}

func buildFIT(t *testing.T) []byte {
	t.Helper()

	file, err := fit.NewFile(fit.FileTypeActivity, fit.NewHeader(fit.V20, true))
	if err != nil {
		t.Fatalf("new fit file: %v", err)
	}
	file.FileId.Manufacturer = fit.ManufacturerGarmin

	activity, err := file.Activity()
	if err != nil {
		t.Fatalf("activity accessor: %v", err)
	}

	start := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	samples := []struct {
		offset  time.Duration
		lat     float64
		lon     float64
		hr      uint8
		cadence uint8
	}{
		{0, 37.5665, 126.9780, 140, 80},
		{30 * time.Second, 37.5670, 126.9785, 145, 84},
		{60 * time.Second, 37.5675, 126.9790, 150, 82},
	}
	for _, s := range samples {
		r := fit.NewRecordMsg()
		r.Timestamp = start.Add(s.offset)
		r.PositionLat = fit.NewLatitudeDegrees(s.lat)
		r.PositionLong = fit.NewLongitudeDegrees(s.lon)
		r.HeartRate = s.hr
		r.Cadence = s.cadence
		activity.Records = append(activity.Records, r)
	}

	var buf bytes.Buffer
	if err := fit.Encode(&buf, file, binary.LittleEndian); err != nil {
		t.Fatalf("encode fit: %v", err)
	}
	return buf.Bytes()
}
