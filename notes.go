package ingest

import (
	"fmt"
	"math"
	"strings"
)

// BuildSummaryText renders a decoded workout as a short human-readable
// report. Metrics the recording did not carry are left out.
func BuildSummaryText(res *Result) string {
	if res == nil || res.Metrics == nil {
		return ""
	}
	m := res.Metrics

	var b strings.Builder
	fmt.Fprintf(&b, "Format: %s | %d track points\n", strings.ToUpper(string(res.Format)), len(m.GPSTrack))
	if res.Device != nil {
		fmt.Fprintf(&b, "Device: %s %s (%s)\n", res.Device.Manufacturer, res.Device.Product, res.Device.Type)
	}
	fmt.Fprintf(&b, "Start: %s\n", m.StartTime.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(
		&b,
		"Duration %s | Distance %.2f km | Pace %s /km\n",
		formatDuration(m.DurationSeconds),
		m.DistanceMeters/1000.0,
		formatPace(m.AvgPaceSecPerKm),
	)

	var sensors []string
	if m.ElevationGainMeters != nil {
		sensors = append(sensors, fmt.Sprintf("Elevation +%.0f m", *m.ElevationGainMeters))
	}
	if m.AvgHeartRate != nil && m.MaxHeartRate != nil {
		sensors = append(sensors, fmt.Sprintf("HR %.0f avg / %d max bpm", *m.AvgHeartRate, *m.MaxHeartRate))
	}
	if m.AvgCadence != nil && m.MaxCadence != nil {
		sensors = append(sensors, fmt.Sprintf("Cadence %.0f avg / %d max", *m.AvgCadence, *m.MaxCadence))
	}
	if len(sensors) > 0 {
		b.WriteString(strings.Join(sensors, " | "))
		b.WriteByte('\n')
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	s := int(math.Round(seconds))
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, sec)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}

// formatPace renders seconds per kilometer as m:ss. A stationary recording
// has no pace.
func formatPace(secPerKm float64) string {
	if secPerKm <= 0 || math.IsNaN(secPerKm) || math.IsInf(secPerKm, 0) {
		return "-"
	}
	s := int(math.Round(secPerKm))
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
