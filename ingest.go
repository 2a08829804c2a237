// Package ingest decodes GPX and FIT workout recordings into a normalized
// WorkoutMetrics summary.
//
// Decoding is pure and synchronous: the same bytes always produce the same
// metrics or the same error, and a Parser may be shared across goroutines.
package ingest

import (
	"log/slog"

	"github.com/lucasjlepore/workout-ingest/fitdecode"
	"github.com/lucasjlepore/workout-ingest/gpxdecode"
	"github.com/lucasjlepore/workout-ingest/metrics"
	"github.com/lucasjlepore/workout-ingest/track"
)

// Options configures a Parser. The zero value is usable.
type Options struct {
	// StrictCRC rejects FIT files whose header or file CRC does not match.
	StrictCRC bool
	// MaxInputBytes rejects larger inputs with InputTooLarge when > 0.
	MaxInputBytes int64
	// HeartRateTags and CadenceTags replace the GPX extension matcher tables
	// when non-empty.
	HeartRateTags []string
	CadenceTags   []string
	// Logger receives decode statistics and soft warnings. Nil discards.
	Logger *slog.Logger
}

// Result is a successful decode.
type Result struct {
	Format   Format                `json:"format"`
	Metrics  *track.WorkoutMetrics `json:"metrics"`
	Warnings []string              `json:"warnings,omitempty"`
	// Device is the FIT file_id projection; nil for GPX.
	Device *fitdecode.FileIDInfo `json:"device,omitempty"`
}

// Parser dispatches raw recordings to the matching decoder and derives
// metrics from the resulting points.
type Parser struct {
	strictCRC bool
	maxBytes  int64
	gpx       *gpxdecode.Decoder
	logger    *slog.Logger
}

// New builds a Parser. Matcher tables are copied, so later changes to opts
// have no effect.
func New(opts Options) *Parser {
	gpx := gpxdecode.NewDecoder()
	if len(opts.HeartRateTags) > 0 {
		gpx.HeartRateTags = append([]string(nil), opts.HeartRateTags...)
	}
	if len(opts.CadenceTags) > 0 {
		gpx.CadenceTags = append([]string(nil), opts.CadenceTags...)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{
		strictCRC: opts.StrictCRC,
		maxBytes:  opts.MaxInputBytes,
		gpx:       gpx,
		logger:    logger,
	}
}

var defaultParser = New(Options{})

// ParseGPX decodes a GPX document with default options.
func ParseGPX(xml string) (*track.WorkoutMetrics, error) {
	res, err := defaultParser.ParseGPX(xml)
	if err != nil {
		return nil, err
	}
	return res.Metrics, nil
}

// ParseFIT decodes a FIT file with default options.
func ParseFIT(data []byte) (*track.WorkoutMetrics, error) {
	res, err := defaultParser.ParseFIT(data)
	if err != nil {
		return nil, err
	}
	return res.Metrics, nil
}

// Parse decodes data declared as format. FormatAuto sniffs the content.
func (p *Parser) Parse(format Format, data []byte) (*Result, error) {
	if err := p.checkSize(len(data)); err != nil {
		return nil, err
	}
	if format == FormatAuto || format == "" {
		detected, err := DetectFormat(data)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	switch format {
	case FormatGPX:
		return p.parseGPX(string(data))
	case FormatFIT:
		return p.parseFIT(data)
	default:
		return nil, track.Errorf(track.KindUnsupportedFormat, "unsupported format %q", string(format))
	}
}

// ParseGPX decodes a GPX document.
func (p *Parser) ParseGPX(xml string) (*Result, error) {
	if err := p.checkSize(len(xml)); err != nil {
		return nil, err
	}
	return p.parseGPX(xml)
}

// ParseFIT decodes a FIT file.
func (p *Parser) ParseFIT(data []byte) (*Result, error) {
	if err := p.checkSize(len(data)); err != nil {
		return nil, err
	}
	return p.parseFIT(data)
}

func (p *Parser) parseGPX(xml string) (*Result, error) {
	points, err := p.gpx.Decode(xml)
	if err != nil {
		p.logger.Debug("gpx decode failed", "kind", track.KindOf(err), "error", err)
		return nil, err
	}
	p.logger.Debug("gpx decoded", "points", len(points))
	return p.finish(FormatGPX, points, nil, nil)
}

func (p *Parser) parseFIT(data []byte) (*Result, error) {
	decoded, err := fitdecode.DecodeWithOptions(data, fitdecode.Options{StrictCRC: p.strictCRC})
	if err != nil {
		p.logger.Debug("fit decode failed", "kind", track.KindOf(err), "error", err)
		return nil, err
	}
	p.logger.Debug("fit decoded",
		"points", len(decoded.Points),
		"definitions", decoded.DefinitionCount,
		"data_messages", decoded.DataMessageCount,
		"dropped_records", decoded.DroppedRecords,
	)
	return p.finish(FormatFIT, decoded.Points, decoded.Warnings, fitdecode.FileID(data))
}

func (p *Parser) finish(format Format, points []track.Point, warnings []string, device *fitdecode.FileIDInfo) (*Result, error) {
	for _, w := range warnings {
		p.logger.Warn("decode warning", "format", string(format), "warning", w)
	}
	m, err := metrics.Derive(points)
	if err != nil {
		return nil, err
	}
	return &Result{
		Format:   format,
		Metrics:  m,
		Warnings: warnings,
		Device:   device,
	}, nil
}

func (p *Parser) checkSize(n int) error {
	if p.maxBytes > 0 && int64(n) > p.maxBytes {
		return track.Errorf(track.KindInputTooLarge, "input is %d bytes, limit is %d", n, p.maxBytes)
	}
	return nil
}
