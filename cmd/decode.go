// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Thermoquad/sondestat/pkg/config"
	"github.com/Thermoquad/sondestat/pkg/sonde"
	"github.com/spf13/cobra"
)

var (
	decodeFormat      string
	decodeShowRejects bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode records and print them as they arrive",
	Long: `Continuously decode and display sonde telemetry records as they arrive.

Each record is printed on the byte that completes it, with its decode time,
kind, sequence counter and stream position.

Output formats:
  text - human-readable (default)
  json - one JSON object per line
  cbor - a stream of CBOR messages [kind, {field map}]

With --show-rejects, dropped packets (header mismatches, CRC failures) are
reported on stderr. Sentinel bytes inside payloads produce header rejects
during normal operation.

Supports serial, WebSocket and capture file sources.`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeFormat, "format", config.FormatText, "Output format: text, json or cbor")
	decodeCmd.Flags().BoolVar(&decodeShowRejects, "show-rejects", false, "Report rejected packets on stderr")
}

// jsonRecord is the line format of --format json
type jsonRecord struct {
	Kind   string       `json:"kind"`
	Record sonde.Record `json:"record"`
}

// writeRecord writes one record in the given output format
func writeRecord(w io.Writer, format string, r sonde.Record) error {
	switch format {
	case config.FormatJSON:
		data, err := json.Marshal(jsonRecord{Kind: sonde.FormatKind(r.Kind()), Record: r})
		if err != nil {
			return fmt.Errorf("failed to encode JSON record: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case config.FormatCBOR:
		data, err := sonde.MarshalRecordCBOR(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	default:
		_, err := fmt.Fprint(w, sonde.FormatRecord(r))
		return err
	}
}

func runDecode(cmd *cobra.Command, args []string) error {
	output := settings.Output
	if cmd.Flags().Changed("format") {
		output.Format = decodeFormat
	}
	if cmd.Flags().Changed("show-rejects") {
		output.ShowRejects = decodeShowRejects
	}
	switch output.Format {
	case config.FormatText, config.FormatJSON, config.FormatCBOR:
	default:
		return fmt.Errorf("unknown output format %q (use text, json or cbor)", output.Format)
	}

	conn, connInfo, err := OpenConnection(settings.Connection)
	if err != nil {
		return err
	}

	// Banners go to stderr so json and cbor output stay clean
	banner := os.Stdout
	if output.Format != config.FormatText {
		banner = os.Stderr
	}
	fmt.Fprintf(banner, "Sondestat - Record Decode\n")
	fmt.Fprintf(banner, "Connection: %s\n", connInfo)
	fmt.Fprintf(banner, "Press Ctrl+C to exit\n\n")

	sink := sonde.SinkFunc(func(r sonde.Record) {
		if err := writeRecord(os.Stdout, output.Format, r); err != nil {
			log.Printf("Output error: %v", err)
		}
	})

	var opts []sonde.Option
	if output.ShowRejects {
		opts = append(opts, sonde.WithRejectHandler(func(r sonde.Rejection) {
			fmt.Fprintf(os.Stderr, "[REJECT] %s", sonde.FormatRejection(r))
		}))
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := runSession(ctx, conn, newDecoder(sink, opts...)); err != nil {
		return err
	}
	log.Printf("Connection closed")
	return nil
}
