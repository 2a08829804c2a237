// Package fitdecode decodes Garmin FIT activity files into normalized track
// points. It is a streaming parser over the raw message layout: definition
// messages describe the layout of subsequent data messages for a local
// message type, and only the record message is projected into points.
package fitdecode

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/tormoder/fit/dyncrc16"

	"github.com/lucasjlepore/workout-ingest/track"
)

const (
	compressedHeaderMask       = 0x80
	compressedLocalMesgNumMask = 0x60
	compressedTimeMask         = 0x1F
	mesgDefinitionMask         = 0x40
	devDataMask                = 0x20
	localMesgNumMask           = 0x0F

	headerSizeNoCRC = 12
	headerSizeCRC   = 14
	fileCRCSize     = 2

	fitSignature = ".FIT"
)

// fitEpoch is the zero point of FIT timestamps.
var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

type fieldDef struct {
	number uint8
	size   uint8
	base   baseType
}

type definition struct {
	local     uint8
	global    uint16
	arch      binary.ByteOrder
	archLabel string
	fields    []fieldDef
	devCount  int
	devSize   int
	dataSize  int
}

// decoder is the per-call parse state. The definition table lives here, so
// concurrent decodes never share anything.
type decoder struct {
	data           []byte
	dataOffset     int
	definitions    map[uint8]definition
	lastTimestamp  uint32
	lastTimeOffset uint32
	haveTimestamp  bool

	result    *Result
	summaries []DefinitionSummary
}

// Decode parses data with default options.
func Decode(data []byte) (*Result, error) {
	return DecodeWithOptions(data, Options{})
}

// DecodeWithOptions parses data and returns its track points. A file with
// fewer than two usable record messages fails with InsufficientTrackPoints.
func DecodeWithOptions(data []byte, opts Options) (*Result, error) {
	d, err := decode(data, opts)
	if err != nil {
		return nil, err
	}
	if n := len(d.result.Points); n < 2 {
		return nil, track.Errorf(track.KindInsufficientTrackPoints, "fit has %d usable record messages, need at least 2", n)
	}
	return d.result, nil
}

func decode(data []byte, opts Options) (*decoder, error) {
	header, headerCRC, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	dataStart := int(header.Size)
	dataEnd := dataStart + int(header.DataSize)
	required := dataEnd + fileCRCSize
	if len(data) < required {
		return nil, track.Errorf(track.KindCorruptFile, "fit file truncated: have %d bytes, need at least %d", len(data), required)
	}

	stored := binary.LittleEndian.Uint16(data[dataEnd:required])
	computed := dyncrc16.Checksum(data[:dataEnd])
	fileCRC := CRCCheck{
		Present:  true,
		Stored:   stored,
		Computed: computed,
		Valid:    stored == computed,
	}

	res := &Result{
		Header:        header,
		HeaderCRC:     headerCRC,
		FileCRC:       fileCRC,
		MessageCounts: make(map[uint16]int),
		LeftoverBytes: len(data) - required,
	}

	if !headerCRC.Valid {
		if opts.StrictCRC {
			return nil, track.Errorf(track.KindCorruptFile, "header crc mismatch: stored 0x%04X computed 0x%04X", headerCRC.Stored, headerCRC.Computed)
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf("header crc mismatch: stored 0x%04X computed 0x%04X", headerCRC.Stored, headerCRC.Computed))
	}
	if !fileCRC.Valid {
		if opts.StrictCRC {
			return nil, track.Errorf(track.KindCorruptFile, "file crc mismatch: stored 0x%04X computed 0x%04X", stored, computed)
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf("file crc mismatch: stored 0x%04X computed 0x%04X", stored, computed))
	}

	d := &decoder{
		data:        data[dataStart:dataEnd],
		dataOffset:  dataStart,
		definitions: make(map[uint8]definition),
		result:      res,
	}
	if err := d.parseMessages(); err != nil {
		return nil, err
	}

	if res.DroppedRecords > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d record messages without timestamp or position were skipped", res.DroppedRecords))
	}
	if res.LeftoverBytes > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d bytes after the file crc were ignored", res.LeftoverBytes))
	}
	return d, nil
}

func parseHeader(data []byte) (Header, CRCCheck, error) {
	if len(data) == 0 {
		return Header{}, CRCCheck{}, track.Errorf(track.KindCorruptFile, "empty fit input")
	}
	size := data[0]
	if size != headerSizeNoCRC && size != headerSizeCRC {
		return Header{}, CRCCheck{}, track.Errorf(track.KindCorruptFile, "invalid fit header size: %d", size)
	}
	if len(data) < int(size) {
		return Header{}, CRCCheck{}, track.Errorf(track.KindCorruptFile, "truncated fit header: have %d bytes, need %d", len(data), size)
	}

	h := Header{
		Size:            size,
		ProtocolVersion: data[1],
		ProfileVersion:  binary.LittleEndian.Uint16(data[2:4]),
		DataSize:        binary.LittleEndian.Uint32(data[4:8]),
		DataType:        string(data[8:12]),
	}
	if h.DataType != fitSignature {
		return Header{}, CRCCheck{}, track.Errorf(track.KindCorruptFile, "invalid fit data type in header: %q", h.DataType)
	}
	if major := h.ProtocolMajor(); major != 1 && major != 2 {
		return Header{}, CRCCheck{}, track.Errorf(track.KindUnsupportedFormatVersion, "fit protocol version %d.%d is not supported", major, h.ProtocolVersion&0x0F)
	}

	crc := CRCCheck{Present: size == headerSizeCRC, Valid: true}
	if crc.Present {
		crc.Stored = binary.LittleEndian.Uint16(data[12:14])
		// A zero header CRC means the encoder did not compute one.
		if crc.Stored != 0 {
			crc.Computed = dyncrc16.Checksum(data[:12])
			crc.Valid = crc.Stored == crc.Computed
		}
	}
	return h, crc, nil
}

func (d *decoder) parseMessages() error {
	pos := 0
	for pos < len(d.data) {
		headerByte := d.data[pos]
		next := pos + 1

		var err error
		switch {
		case headerByte&compressedHeaderMask == compressedHeaderMask:
			local := (headerByte & compressedLocalMesgNumMask) >> 5
			def, ok := d.definitions[local]
			if !ok {
				return track.Errorf(track.KindCorruptFile, "compressed timestamp message at byte %d references undefined local type %d", d.dataOffset+pos, local)
			}
			next, err = d.parseData(pos, next, headerByte, def, true)
		case headerByte&mesgDefinitionMask == mesgDefinitionMask:
			var def definition
			def, next, err = d.parseDefinition(pos, next, headerByte)
			if err == nil {
				d.definitions[def.local] = def
			}
		default:
			local := headerByte & localMesgNumMask
			def, ok := d.definitions[local]
			if !ok {
				return track.Errorf(track.KindCorruptFile, "data message at byte %d references undefined local type %d", d.dataOffset+pos, local)
			}
			next, err = d.parseData(pos, next, headerByte, def, false)
		}
		if err != nil {
			return err
		}
		pos = next
	}
	return nil
}

func (d *decoder) parseDefinition(start, pos int, headerByte uint8) (definition, int, error) {
	read := func(n int) ([]byte, error) {
		if pos+n > len(d.data) {
			return nil, track.Errorf(track.KindCorruptFile, "definition message at byte %d truncated", d.dataOffset+start)
		}
		out := d.data[pos : pos+n]
		pos += n
		return out, nil
	}

	fixed, err := read(5) // reserved, architecture, global number, field count
	if err != nil {
		return definition{}, 0, err
	}

	def := definition{local: headerByte & localMesgNumMask}
	switch fixed[1] {
	case 0:
		def.arch, def.archLabel = binary.LittleEndian, "little"
	case 1:
		def.arch, def.archLabel = binary.BigEndian, "big"
	default:
		return definition{}, 0, track.Errorf(track.KindCorruptFile, "definition message at byte %d has invalid architecture %d", d.dataOffset+start, fixed[1])
	}
	def.global = def.arch.Uint16(fixed[2:4])

	numFields := int(fixed[4])
	def.fields = make([]fieldDef, 0, numFields)
	for i := 0; i < numFields; i++ {
		raw, err := read(3)
		if err != nil {
			return definition{}, 0, err
		}
		def.fields = append(def.fields, fieldDef{number: raw[0], size: raw[1], base: normalizeBaseType(raw[2])})
		def.dataSize += int(raw[1])
	}

	if headerByte&devDataMask == devDataMask {
		countRaw, err := read(1)
		if err != nil {
			return definition{}, 0, err
		}
		def.devCount = int(countRaw[0])
		for i := 0; i < def.devCount; i++ {
			raw, err := read(3)
			if err != nil {
				return definition{}, 0, err
			}
			def.devSize += int(raw[1])
		}
		def.dataSize += def.devSize
	}

	d.result.DefinitionCount++
	d.summaries = append(d.summaries, DefinitionSummary{
		LocalMessageType: def.local,
		GlobalMessageNum: def.global,
		MessageName:      messageName(def.global),
		Architecture:     def.archLabel,
		FieldCount:       len(def.fields),
		DeveloperFields:  def.devCount,
		DataSize:         def.dataSize,
	})
	return def, pos, nil
}

func (d *decoder) parseData(start, pos int, headerByte uint8, def definition, compressed bool) (int, error) {
	end := pos + def.dataSize
	if end > len(d.data) {
		return 0, track.Errorf(track.KindCorruptFile, "data message at byte %d truncated: need %d bytes, have %d", d.dataOffset+start, def.dataSize, len(d.data)-pos)
	}

	var rec *recordFields
	if def.global == recordMesgNum {
		rec = &recordFields{}
	}

	if compressed && d.haveTimestamp {
		offset := uint32(headerByte & compressedTimeMask)
		d.lastTimestamp += (offset - d.lastTimeOffset) & compressedTimeMask
		d.lastTimeOffset = offset
		if rec != nil {
			rec.setTimestamp(d.lastTimestamp)
		}
	}

	for _, f := range def.fields {
		raw := d.data[pos : pos+int(f.size)]
		pos += int(f.size)

		if f.number == timestampFieldNum {
			if v, ok := scalar(raw, f.base, def.arch); ok {
				ts := uint32(v)
				d.lastTimestamp = ts
				d.lastTimeOffset = ts & compressedTimeMask
				d.haveTimestamp = true
			}
		}
		if rec != nil {
			rec.set(f, raw, def.arch)
		}
	}
	// Developer fields carry no track data; skip their bytes.
	pos += def.devSize

	d.result.DataMessageCount++
	d.result.MessageCounts[def.global]++
	if rec != nil {
		if p, ok := rec.point(); ok {
			d.result.Points = append(d.result.Points, p)
		} else {
			d.result.DroppedRecords++
		}
	}
	return pos, nil
}

func fitTime(ts uint32) time.Time {
	return fitEpoch.Add(time.Duration(ts) * time.Second)
}
