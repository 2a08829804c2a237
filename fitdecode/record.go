package fitdecode

import (
	"encoding/binary"
	"math"

	"github.com/lucasjlepore/workout-ingest/geo"
	"github.com/lucasjlepore/workout-ingest/track"
)

const (
	recordMesgNum = 20

	timestampFieldNum        = 253
	positionLatFieldNum      = 0
	positionLongFieldNum     = 1
	altitudeFieldNum         = 2
	heartRateFieldNum        = 3
	cadenceFieldNum          = 4
	enhancedAltitudeFieldNum = 78

	altitudeScale  = 5
	altitudeOffset = 500
)

var semicirclesToDegrees = 180 / math.Pow(2, 31)

// recordFields collects the record message fields the track needs. Each
// value is accompanied by a flag; invalid sentinels leave the flag unset.
type recordFields struct {
	timestamp    uint32
	hasTimestamp bool

	lat, lon       float64
	hasLat, hasLon bool

	altitude, enhancedAltitude       float64
	hasAltitude, hasEnhancedAltitude bool

	heartRate    uint32
	hasHeartRate bool
	cadence      uint32
	hasCadence   bool
}

func (r *recordFields) setTimestamp(ts uint32) {
	r.timestamp = ts
	r.hasTimestamp = true
}

func (r *recordFields) set(f fieldDef, raw []byte, arch binary.ByteOrder) {
	v, ok := scalar(raw, f.base, arch)
	if !ok {
		return
	}
	switch f.number {
	case timestampFieldNum:
		r.setTimestamp(uint32(v))
	case positionLatFieldNum:
		r.lat, r.hasLat = v*semicirclesToDegrees, true
	case positionLongFieldNum:
		r.lon, r.hasLon = v*semicirclesToDegrees, true
	case altitudeFieldNum:
		r.altitude, r.hasAltitude = v/altitudeScale-altitudeOffset, true
	case enhancedAltitudeFieldNum:
		r.enhancedAltitude, r.hasEnhancedAltitude = v/altitudeScale-altitudeOffset, true
	case heartRateFieldNum:
		r.heartRate, r.hasHeartRate = sensorCount(v, f.base)
	case cadenceFieldNum:
		r.cadence, r.hasCadence = sensorCount(v, f.base)
	}
}

// sensorCount converts a heart rate or cadence reading. The profile stores
// both as uint8; a signed or float redefinition can carry values that do not
// fit a count.
func sensorCount(v float64, bt baseType) (uint32, bool) {
	switch bt {
	case baseSint8, baseSint16, baseSint32, baseSint64, baseFloat32, baseFloat64:
		v = math.Round(v)
		if v < 0 || v > math.MaxUint32 {
			return 0, false
		}
	}
	return uint32(v), true
}

// point projects the record. Records without a timestamp or a usable
// position cannot be placed on the track.
func (r *recordFields) point() (track.Point, bool) {
	if !r.hasTimestamp || !r.hasLat || !r.hasLon {
		return track.Point{}, false
	}
	if !geo.ValidCoordinate(r.lat, r.lon) {
		return track.Point{}, false
	}

	p := track.Point{
		Latitude:  r.lat,
		Longitude: r.lon,
		Timestamp: fitTime(r.timestamp),
	}
	switch {
	case r.hasEnhancedAltitude:
		p.Elevation = track.Float64(r.enhancedAltitude)
	case r.hasAltitude:
		p.Elevation = track.Float64(r.altitude)
	}
	if r.hasHeartRate {
		p.HeartRate = track.Uint32(r.heartRate)
	}
	if r.hasCadence {
		p.Cadence = track.Uint32(r.cadence)
	}
	return p, true
}
