package fitdecode

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/tormoder/fit/dyncrc16"
)

// fitBuilder assembles FIT files byte by byte for layouts the profile
// encoder never emits (compressed timestamps, big-endian definitions,
// redefinitions, developer fields).
type fitBuilder struct {
	version byte
	body    []byte
}

func newFITBuilder() *fitBuilder {
	return &fitBuilder{version: 0x20}
}

var (
	fTimestamp = [3]byte{253, 4, 0x86}
	fLat       = [3]byte{0, 4, 0x85}
	fLon       = [3]byte{1, 4, 0x85}
	fAltitude  = [3]byte{2, 2, 0x84}
	fHeartRate = [3]byte{3, 1, 0x02}
	fCadence   = [3]byte{4, 1, 0x02}
	fEvent     = [3]byte{0, 1, 0x00}
	fEventType = [3]byte{1, 1, 0x00}
)

func (b *fitBuilder) define(local uint8, global uint16, order binary.AppendByteOrder, fields ...[3]byte) *fitBuilder {
	return b.defineWithDev(local, global, order, nil, fields...)
}

func (b *fitBuilder) defineWithDev(local uint8, global uint16, order binary.AppendByteOrder, devFields [][3]byte, fields ...[3]byte) *fitBuilder {
	header := byte(0x40) | local
	if len(devFields) > 0 {
		header |= 0x20
	}
	arch := byte(0)
	if order == binary.BigEndian {
		arch = 1
	}
	b.body = append(b.body, header, 0, arch)
	b.body = order.AppendUint16(b.body, global)
	b.body = append(b.body, byte(len(fields)))
	for _, f := range fields {
		b.body = append(b.body, f[:]...)
	}
	if len(devFields) > 0 {
		b.body = append(b.body, byte(len(devFields)))
		for _, f := range devFields {
			b.body = append(b.body, f[:]...)
		}
	}
	return b
}

func (b *fitBuilder) data(header byte, payload ...[]byte) *fitBuilder {
	b.body = append(b.body, header)
	for _, p := range payload {
		b.body = append(b.body, p...)
	}
	return b
}

func (b *fitBuilder) raw(p ...byte) *fitBuilder {
	b.body = append(b.body, p...)
	return b
}

func (b *fitBuilder) bytes() []byte {
	out := make([]byte, 14, 14+len(b.body)+2)
	out[0] = 14
	out[1] = b.version
	binary.LittleEndian.PutUint16(out[2:4], 2132)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(b.body)))
	copy(out[8:12], ".FIT")
	binary.LittleEndian.PutUint16(out[12:14], dyncrc16.Checksum(out[:12]))
	out = append(out, b.body...)
	return binary.LittleEndian.AppendUint16(out, dyncrc16.Checksum(out))
}

func u8(v uint8) []byte { return []byte{v} }

func u16(order binary.AppendByteOrder, v uint16) []byte { return order.AppendUint16(nil, v) }

func u32(order binary.AppendByteOrder, v uint32) []byte { return order.AppendUint32(nil, v) }

func semicircles(order binary.AppendByteOrder, deg float64) []byte {
	return order.AppendUint32(nil, uint32(int32(math.Round(deg*math.Pow(2, 31)/180))))
}

func fitSeconds(t time.Time) uint32 {
	return uint32(t.Sub(fitEpoch) / time.Second)
}
