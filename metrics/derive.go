// Package metrics turns an ordered sequence of track points into a
// WorkoutMetrics summary. It is format-agnostic and has no side effects.
package metrics

import (
	"math"

	"github.com/lucasjlepore/workout-ingest/geo"
	"github.com/lucasjlepore/workout-ingest/track"
)

const metersPerKilometer = 1000.0

// MinPoints is the smallest track that can yield distance, duration and pace.
const MinPoints = 2

// Derive computes the summary for points, which must already be in source
// order. The engine never sorts: a last timestamp earlier than the first is
// reported as InvalidTimeOrdering.
func Derive(points []track.Point) (*track.WorkoutMetrics, error) {
	if len(points) < MinPoints {
		return nil, track.Errorf(track.KindInsufficientTrackPoints, "need at least %d track points, got %d", MinPoints, len(points))
	}

	first := points[0]
	last := points[len(points)-1]
	if last.Timestamp.Before(first.Timestamp) {
		return nil, track.Errorf(
			track.KindInvalidTimeOrdering,
			"last timestamp %s precedes first timestamp %s",
			last.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			first.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		)
	}

	duration := last.Timestamp.Sub(first.Timestamp).Seconds()
	distance := totalDistance(points)

	m := &track.WorkoutMetrics{
		DistanceMeters:      distance,
		DurationSeconds:     duration,
		StartTime:           first.Timestamp,
		EndTime:             last.Timestamp,
		AvgPaceSecPerKm:     pace(duration, distance),
		ElevationGainMeters: elevationGain(points),
		GPSTrack:            make([]track.Point, 0, len(points)),
	}

	hr := newSeries(len(points))
	cad := newSeries(len(points))
	for _, p := range points {
		if p.HeartRate != nil {
			hr.add(*p.HeartRate)
		}
		if p.Cadence != nil {
			cad.add(*p.Cadence)
		}
		m.GPSTrack = append(m.GPSTrack, p.Sparse())
	}
	m.AvgHeartRate, m.MaxHeartRate = hr.summary()
	m.AvgCadence, m.MaxCadence = cad.summary()

	return m, nil
}

func totalDistance(points []track.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		total += geo.HaversineDistance(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
	}
	return total
}

// pace is seconds per kilometer. A stationary recording is valid and yields 0.
func pace(durationSec, distanceMeters float64) float64 {
	if distanceMeters <= 0 || !isFinite(distanceMeters) {
		return 0
	}
	return durationSec / (distanceMeters / metersPerKilometer)
}

// elevationGain sums rises between consecutive elevation readings; descents
// never offset gain. Points without elevation are skipped rather than
// treated as zero.
func elevationGain(points []track.Point) *float64 {
	var (
		gain     float64
		readings int
		prev     float64
	)
	for _, p := range points {
		if p.Elevation == nil || !isFinite(*p.Elevation) {
			continue
		}
		ele := *p.Elevation
		if readings > 0 && ele > prev {
			gain += ele - prev
		}
		prev = ele
		readings++
	}
	if readings < 2 {
		return nil
	}
	return track.Float64(gain)
}

type series struct {
	values []uint32
}

func newSeries(capacity int) *series {
	return &series{values: make([]uint32, 0, capacity)}
}

func (s *series) add(v uint32) {
	s.values = append(s.values, v)
}

func (s *series) summary() (*float64, *uint32) {
	if len(s.values) == 0 {
		return nil, nil
	}
	return track.Float64(average(s.values)), track.Uint32(maxValue(s.values))
}

func average(values []uint32) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += float64(v)
	}
	return total / float64(len(values))
}

func maxValue(values []uint32) uint32 {
	var max uint32
	for i, v := range values {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
