// Package track defines the normalized sample and metrics shapes shared by
// the GPX and FIT decoders and the metrics engine.
package track

import "time"

// Point is one recorded sample. Optional sensor fields are nil when the source
// did not carry them; zero is a legitimate recorded value.
type Point struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Timestamp time.Time `json:"time"`
	Elevation *float64  `json:"ele,omitempty"`
	HeartRate *uint32   `json:"hr,omitempty"`
	Cadence   *uint32   `json:"cad,omitempty"`
}

// HasElevation reports whether the sample carried an elevation reading.
func (p Point) HasElevation() bool { return p.Elevation != nil }

// HasHeartRate reports whether the sample carried a heart-rate reading.
func (p Point) HasHeartRate() bool { return p.HeartRate != nil }

// HasCadence reports whether the sample carried a cadence reading.
func (p Point) HasCadence() bool { return p.Cadence != nil }

// Sparse returns a copy of p that owns its optional fields.
func (p Point) Sparse() Point {
	out := Point{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Timestamp: p.Timestamp,
	}
	if p.Elevation != nil {
		out.Elevation = Float64(*p.Elevation)
	}
	if p.HeartRate != nil {
		out.HeartRate = Uint32(*p.HeartRate)
	}
	if p.Cadence != nil {
		out.Cadence = Uint32(*p.Cadence)
	}
	return out
}

// WorkoutMetrics is the normalized summary of one decoded recording.
type WorkoutMetrics struct {
	DistanceMeters      float64   `json:"distance_meters"`
	DurationSeconds     float64   `json:"duration_seconds"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	AvgPaceSecPerKm     float64   `json:"avg_pace_sec_per_km"`
	ElevationGainMeters *float64  `json:"elevation_gain_meters,omitempty"`
	AvgHeartRate        *float64  `json:"avg_heart_rate,omitempty"`
	MaxHeartRate        *uint32   `json:"max_heart_rate,omitempty"`
	AvgCadence          *float64  `json:"avg_cadence,omitempty"`
	MaxCadence          *uint32   `json:"max_cadence,omitempty"`
	GPSTrack            []Point   `json:"gps_track"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	out := v
	return &out
}

// Uint32 returns a pointer to v.
func Uint32(v uint32) *uint32 {
	out := v
	return &out
}
