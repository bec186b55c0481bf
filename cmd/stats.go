// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/sondestat/pkg/sonde"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Track rejected packets and anomalous values with statistics",
	Long: `Track packet rejections and anomalous values with periodic statistics.

This command validates each record and detects:
  - Header mismatches (unknown size/type, often sentinels inside payloads)
  - CRC-32 failures from corrupted packets
  - Anomalous values (non-finite floats, temperature outside -80 to 125°C,
    humidity outside 0 to 100%, non-positive pressure)
  - Statistics and trends (byte rate, record rate, error rate)

By default, only records with anomalies are displayed. Use --show-all to
display valid records too.

Statistics summaries are printed at a configurable interval and once more
when the stream ends.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all records (not just anomalies)")
	statsCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
}

// printValidationErrors prints the anomalies found in a CRC-valid record
func printValidationErrors(w io.Writer, r sonde.Record, errors []sonde.ValidationError) {
	meta := r.Meta()
	timestamp := meta.Time.Format("15:04:05.000")

	fmt.Fprintf(w, "[%s] \033[1;33mVALIDATION ERROR:\033[0m %s seq=%d @%d\n", timestamp, sonde.FormatKind(r.Kind()), meta.Sequence, meta.Start)
	fmt.Fprintf(w, "  CRC: \033[1;32mOK\033[0m\n")

	for i, err := range errors {
		switch err.Type {
		case sonde.AnomalyNonFinite:
			fmt.Fprintf(w, "  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case sonde.AnomalyInvalidTemp, sonde.AnomalyInvalidHumidity:
			fmt.Fprintf(w, "  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if value, ok := err.Details["value"].(float32); ok {
				fmt.Fprintf(w, "    value=%.2f (valid: %v to %v)\n", value, err.Details["min"], err.Details["max"])
			}

		default:
			fmt.Fprintf(w, "  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Fprintf(w, "  >>> RECORD FLAGGED <<<\n\n")
}

// printRejection prints a dropped packet in highlighted format
func printRejection(w io.Writer, r sonde.Rejection) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(w, "[%s] \033[1;31m%s\033[0m", timestamp, sonde.FormatRejection(r))
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be > 0")
	}

	conn, connInfo, err := OpenConnection(settings.Connection)
	if err != nil {
		return err
	}

	fmt.Printf("Sondestat - Statistics Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All records\n")
	} else {
		fmt.Printf("Mode: Anomalies only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, cancel := signalContext()
	defer cancel()

	// Records and rejections are printed from this goroutine only
	records := make(chan sonde.Record, 64)
	rejections := make(chan sonde.Rejection, 64)

	sink := sonde.SinkFunc(func(r sonde.Record) {
		select {
		case records <- r:
		case <-ctx.Done():
		}
	})
	onReject := func(r sonde.Rejection) {
		select {
		case rejections <- r:
		case <-ctx.Done():
		}
	}

	stats := sonde.NewStatistics()
	decoder := newDecoder(sink, sonde.WithStatistics(stats), sonde.WithRejectHandler(onReject))

	done := make(chan error, 1)
	go func() {
		done <- runSession(ctx, conn, decoder)
	}()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	synchronized := false
	handleRecord := func(r sonde.Record) {
		if !synchronized {
			synchronized = true
			if skipped := r.Meta().Start - 1; skipped > 0 {
				fmt.Printf("[SYNC] Synchronized after skipping %d bytes\n\n", skipped)
			} else {
				fmt.Printf("[SYNC] Synchronized\n\n")
			}
		}

		validationErrors := sonde.ValidateRecord(r)
		stats.AddAnomalies(len(validationErrors))

		if len(validationErrors) > 0 {
			printValidationErrors(os.Stdout, r, validationErrors)
		} else if showAll {
			fmt.Print(sonde.FormatRecord(r))
		}
	}
	handleRejection := func(r sonde.Rejection) {
		// Header mismatches are expected from sentinels inside payloads
		if synchronized && r.Kind != sonde.KindPending {
			printRejection(os.Stdout, r)
		}
	}

	for {
		select {
		case r := <-records:
			handleRecord(r)

		case r := <-rejections:
			handleRejection(r)

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case err := <-done:
			// The session has stopped; print whatever it queued
			for len(records) > 0 || len(rejections) > 0 {
				select {
				case r := <-records:
					handleRecord(r)
				case r := <-rejections:
					handleRejection(r)
				}
			}
			fmt.Println()
			fmt.Print(stats.String())
			return err
		}
	}
}
