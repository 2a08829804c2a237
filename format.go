package ingest

import (
	"bytes"
	"strings"

	"github.com/lucasjlepore/workout-ingest/track"
)

// Format names a recording container.
type Format string

const (
	FormatAuto Format = "auto"
	FormatGPX  Format = "gpx"
	FormatFIT  Format = "fit"
)

var formatAliases = map[string]Format{
	"":                        FormatAuto,
	"auto":                    FormatAuto,
	"gpx":                     FormatGPX,
	".gpx":                    FormatGPX,
	"application/gpx+xml":     FormatGPX,
	"application/gpx":         FormatGPX,
	"fit":                     FormatFIT,
	".fit":                    FormatFIT,
	"application/vnd.ant.fit": FormatFIT,
	"application/fit":         FormatFIT,
}

// ParseFormat normalizes a declared format tag: a name, a file extension or
// a MIME type. Matching is case-insensitive.
func ParseFormat(tag string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexByte(key, ';'); i >= 0 {
		key = strings.TrimSpace(key[:i])
	}
	if f, ok := formatAliases[key]; ok {
		return f, nil
	}
	return "", track.Errorf(track.KindUnsupportedFormat, "unsupported format %q", tag)
}

// DetectFormat sniffs the container from content.
func DetectFormat(data []byte) (Format, error) {
	if len(data) >= 12 && string(data[8:12]) == ".FIT" {
		return FormatFIT, nil
	}
	if looksLikeGPX(data) {
		return FormatGPX, nil
	}
	return "", track.Errorf(track.KindUnsupportedFormat, "content is neither FIT nor GPX")
}

func looksLikeGPX(data []byte) bool {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.TrimSpace(head)
	if !bytes.HasPrefix(head, []byte("<")) {
		return false
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<gpx"))
}
