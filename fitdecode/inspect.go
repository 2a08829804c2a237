package fitdecode

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tormoder/fit"
)

// Inspection is a structural view of a FIT file: header, CRCs, the
// definition stream and per-message counts.
type Inspection struct {
	Header           Header              `json:"header"`
	HeaderCRC        CRCCheck            `json:"header_crc"`
	FileCRC          CRCCheck            `json:"file_crc"`
	FileID           *FileIDInfo         `json:"file_id,omitempty"`
	Definitions      []DefinitionSummary `json:"definitions"`
	Messages         []MessageCount      `json:"messages"`
	DefinitionCount  int                 `json:"definition_count"`
	DataMessageCount int                 `json:"data_message_count"`
	TrackPoints      int                 `json:"track_points"`
	DroppedRecords   int                 `json:"dropped_records"`
	LeftoverBytes    int                 `json:"leftover_bytes"`
	Warnings         []string            `json:"warnings,omitempty"`
}

// Inspect walks the whole file without requiring any track points. CRC
// mismatches are reported, not fatal.
func Inspect(data []byte) (*Inspection, error) {
	d, err := decode(data, Options{})
	if err != nil {
		return nil, err
	}
	res := d.result

	messages := make([]MessageCount, 0, len(res.MessageCounts))
	for global, count := range res.MessageCounts {
		messages = append(messages, MessageCount{
			GlobalMessageNum: global,
			MessageName:      messageName(global),
			Count:            count,
		})
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].GlobalMessageNum < messages[j].GlobalMessageNum
	})

	return &Inspection{
		Header:           res.Header,
		HeaderCRC:        res.HeaderCRC,
		FileCRC:          res.FileCRC,
		FileID:           FileID(data),
		Definitions:      d.summaries,
		Messages:         messages,
		DefinitionCount:  res.DefinitionCount,
		DataMessageCount: res.DataMessageCount,
		TrackPoints:      len(res.Points),
		DroppedRecords:   res.DroppedRecords,
		LeftoverBytes:    res.LeftoverBytes,
		Warnings:         res.Warnings,
	}, nil
}

// FileID projects the file_id message, or returns nil when the file has none
// or cannot be read that far.
func FileID(data []byte) *FileIDInfo {
	_, id, err := fit.DecodeHeaderAndFileID(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	info := &FileIDInfo{
		Type:         fmt.Sprint(id.Type),
		Manufacturer: fmt.Sprint(id.Manufacturer),
		Product:      fmt.Sprint(id.GetProduct()),
		SerialNumber: id.SerialNumber,
	}
	if !id.TimeCreated.IsZero() {
		info.TimeCreated = id.TimeCreated.UTC().Format(time.RFC3339)
	}
	return info
}

func messageName(global uint16) string {
	name := fmt.Sprint(fit.MesgNum(global))
	if strings.HasPrefix(name, "MesgNum(") {
		return fmt.Sprintf("global_%d", global)
	}
	return name
}
