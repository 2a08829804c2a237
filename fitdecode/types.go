package fitdecode

import "github.com/lucasjlepore/workout-ingest/track"

// Options controls integrity policy.
type Options struct {
	// StrictCRC turns header and file CRC mismatches into CorruptFile errors.
	// By default a mismatch is only reported in Result.Warnings.
	StrictCRC bool
}

// Header stores parsed FIT header values.
type Header struct {
	Size            uint8  `json:"size"`
	ProtocolVersion uint8  `json:"protocol_version"`
	ProfileVersion  uint16 `json:"profile_version"`
	DataSize        uint32 `json:"data_size"`
	DataType        string `json:"data_type"`
}

// ProtocolMajor is the major protocol version (1 or 2 for supported files).
func (h Header) ProtocolMajor() uint8 { return h.ProtocolVersion >> 4 }

// CRCCheck describes one CRC validation.
type CRCCheck struct {
	Present  bool   `json:"present"`
	Stored   uint16 `json:"stored"`
	Computed uint16 `json:"computed"`
	Valid    bool   `json:"valid"`
}

// Result is the outcome of decoding one FIT file.
type Result struct {
	Header    Header
	HeaderCRC CRCCheck
	FileCRC   CRCCheck

	// Points holds one entry per record message with a timestamp and a
	// valid position, in file order.
	Points []track.Point

	// MessageCounts counts data messages by global message number.
	MessageCounts    map[uint16]int
	DefinitionCount  int
	DataMessageCount int
	DroppedRecords   int
	LeftoverBytes    int
	Warnings         []string
}

// FileIDInfo is a projection of the file_id message.
type FileIDInfo struct {
	Type         string `json:"type"`
	Manufacturer string `json:"manufacturer"`
	Product      string `json:"product"`
	TimeCreated  string `json:"time_created,omitempty"`
	SerialNumber uint32 `json:"serial_number,omitempty"`
}

// DefinitionSummary describes one definition message as it appeared in the
// stream.
type DefinitionSummary struct {
	LocalMessageType uint8  `json:"local_message_type"`
	GlobalMessageNum uint16 `json:"global_message_num"`
	MessageName      string `json:"message_name"`
	Architecture     string `json:"architecture"`
	FieldCount       int    `json:"field_count"`
	DeveloperFields  int    `json:"developer_field_count"`
	DataSize         int    `json:"data_size"`
}

// MessageCount is the number of data messages seen for one global message.
type MessageCount struct {
	GlobalMessageNum uint16 `json:"global_message_num"`
	MessageName      string `json:"message_name"`
	Count            int    `json:"count"`
}
