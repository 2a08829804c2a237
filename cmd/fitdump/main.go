package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasjlepore/workout-ingest/fitdecode"
)

func main() {
	jsonOut := flag.Bool("json", false, "Emit the inspection as JSON")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [--json] <path-to-fit-file>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read fit file: %v\n", err)
		os.Exit(1)
	}
	in, err := fitdecode.Inspect(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fitdump failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(in); err != nil {
			fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	h := in.Header
	fmt.Printf("header:              %d bytes, protocol %d.%d, profile %d, data %d bytes\n",
		h.Size, h.ProtocolMajor(), h.ProtocolVersion&0x0F, h.ProfileVersion, h.DataSize)
	fmt.Printf("header crc:          %s\n", crcLine(in.HeaderCRC))
	fmt.Printf("file crc:            %s\n", crcLine(in.FileCRC))
	if in.FileID != nil {
		fmt.Printf("file id:             %s by %s (%s)\n", in.FileID.Type, in.FileID.Manufacturer, in.FileID.Product)
		if in.FileID.TimeCreated != "" {
			fmt.Printf("created:             %s\n", in.FileID.TimeCreated)
		}
	}
	fmt.Printf("definitions:         %d\n", in.DefinitionCount)
	for _, d := range in.Definitions {
		fmt.Printf("  local %-2d -> %-20s global %-5d %s, %d fields, %d dev fields, %d bytes\n",
			d.LocalMessageType, d.MessageName, d.GlobalMessageNum, d.Architecture, d.FieldCount, d.DeveloperFields, d.DataSize)
	}
	fmt.Printf("data messages:       %d\n", in.DataMessageCount)
	for _, m := range in.Messages {
		fmt.Printf("  %-24s %d\n", m.MessageName, m.Count)
	}
	fmt.Printf("track points:        %d (%d records dropped)\n", in.TrackPoints, in.DroppedRecords)
	if in.LeftoverBytes > 0 {
		fmt.Printf("leftover bytes:      %d\n", in.LeftoverBytes)
	}
	for _, w := range in.Warnings {
		fmt.Printf("warning:             %s\n", w)
	}
}

func crcLine(c fitdecode.CRCCheck) string {
	if !c.Present {
		return "absent"
	}
	status := "ok"
	if !c.Valid {
		status = "MISMATCH"
	}
	return fmt.Sprintf("0x%04X (computed 0x%04X) %s", c.Stored, c.Computed, status)
}
