package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ingest "github.com/lucasjlepore/workout-ingest"
	"github.com/lucasjlepore/workout-ingest/export"
	"github.com/lucasjlepore/workout-ingest/track"
)

func main() {
	var (
		formatTag = flag.String("format", "", "Input format: gpx|fit|auto (default: from file extension, then content)")
		outDir    = flag.String("out", "", "Write summary.json and gps_track.<export> into this directory")
		exportFmt = flag.String("export", "json", "Track export format: json|csv|parquet|gpx")
		overwrite = flag.Bool("overwrite", false, "Allow writing into non-empty output directories")
		strictCRC = flag.Bool("strict-crc", false, "Reject FIT files with CRC mismatches")
		maxBytes  = flag.Int64("max-bytes", 64<<20, "Reject inputs larger than this many bytes (0 disables)")
		jsonOut   = flag.Bool("json", false, "Emit the full result as JSON")
		verbose   = flag.Bool("v", false, "Debug logging on stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <path-to-gpx-or-fit-file>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	format, err := resolveFormat(*formatTag, inputPath)
	if err != nil {
		fail(err)
	}
	trackFormat, err := export.ParseTrackFormat(*exportFmt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}

	parser := ingest.New(ingest.Options{
		StrictCRC:     *strictCRC,
		MaxInputBytes: *maxBytes,
		Logger:        logger.With("input", filepath.Base(inputPath)),
	})
	result, err := parser.Parse(format, data)
	if err != nil {
		fail(err)
	}

	if strings.TrimSpace(*outDir) != "" {
		bundle, err := export.WriteBundle(result, export.BundleOptions{
			OutDir:      *outDir,
			TrackFormat: trackFormat,
			Overwrite:   *overwrite,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
		logger.Info("export complete", "summary", bundle.SummaryPath, "track", bundle.TrackPath)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println(ingest.BuildSummaryText(result))
}

// resolveFormat prefers an explicit flag, then the file extension, then
// content sniffing.
func resolveFormat(tag, path string) (ingest.Format, error) {
	if strings.TrimSpace(tag) != "" {
		return ingest.ParseFormat(tag)
	}
	if f, err := ingest.ParseFormat(filepath.Ext(path)); err == nil {
		return f, nil
	}
	return ingest.FormatAuto, nil
}

func fail(err error) {
	var pe *track.ParseError
	if errors.As(err, &pe) {
		fmt.Fprintf(os.Stderr, "parse failed (%s): %s\n%v\n", pe.Kind, pe.UserMessage(), err)
	} else {
		fmt.Fprintf(os.Stderr, "parse failed: %v\n", err)
	}
	os.Exit(1)
}
