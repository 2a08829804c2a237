package track

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestPointJSONIsSparse(t *testing.T) {
	p := Point{
		Latitude:  37.5665,
		Longitude: 126.978,
		Timestamp: time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC),
		HeartRate: Uint32(0),
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal point: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "ele") || strings.Contains(s, "cad") {
		t.Fatalf("absent fields must be omitted, got %s", s)
	}
	if !strings.Contains(s, `"hr":0`) {
		t.Fatalf("zero heart rate must be kept, got %s", s)
	}

	var back Point
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal point: %v", err)
	}
	if back.HasElevation() || back.HasCadence() || !back.HasHeartRate() || *back.HeartRate != 0 {
		t.Fatalf("sparsity not preserved: %+v", back)
	}
}

func TestSparseCopiesOptionalFields(t *testing.T) {
	p := Point{Elevation: Float64(12.5), Cadence: Uint32(88)}
	c := p.Sparse()
	*p.Elevation = 99
	*p.Cadence = 1
	if *c.Elevation != 12.5 || *c.Cadence != 88 {
		t.Fatalf("copy shares storage with source: %+v", c)
	}
	if c.HeartRate != nil {
		t.Fatal("absent heart rate must stay nil")
	}
}

func TestParseErrorMatchesSentinelByKind(t *testing.T) {
	err := fmt.Errorf("decode upload: %w", Errorf(KindCorruptFile, "record truncated at byte %d", 42))

	if !errors.Is(err, ErrCorruptFile) {
		t.Fatal("expected errors.Is to match the corrupt-file sentinel")
	}
	if errors.Is(err, ErrInsufficientTrackPoints) {
		t.Fatal("kinds must not cross-match")
	}
	if got := KindOf(err); got != KindCorruptFile {
		t.Fatalf("KindOf = %q", got)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("KindOf must be empty for foreign errors")
	}
}

func TestParseErrorUnwrapAndMessage(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(cause, KindCorruptFile, "parse gpx")
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if !strings.Contains(err.Error(), "CORRUPT_FILE") || !strings.Contains(err.Error(), "unexpected EOF") {
		t.Fatalf("unexpected error text: %s", err.Error())
	}

	tests := map[Kind]string{
		KindInsufficientTrackPoints:  "insufficient data",
		KindUnsupportedFormatVersion: "newer format",
		KindCorruptFile:              "re-export",
	}
	for kind, want := range tests {
		msg := (&ParseError{Kind: kind}).UserMessage()
		if !strings.Contains(msg, want) {
			t.Fatalf("UserMessage(%s) = %q, want substring %q", kind, msg, want)
		}
	}
}
