// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/sondestat/pkg/sonde"
	"github.com/spf13/cobra"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid record",
	Long: `Wait for a valid sonde record on the connection until timeout.

This command connects to a serial port, WebSocket or capture file and waits
for any packet that passes its header and CRC-32 checks. Noise and rejected
candidates are counted but otherwise ignored.

Exit codes:
  0 - Record received before timeout
  1 - Timeout reached without receiving a valid record
  2 - Connection error

Useful for testing connectivity to a receiver or WebSocket bridge.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a record")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(settings.Connection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Sondestat - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid record...\n\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(packetTestTimeout)*time.Second)
	defer cancel()

	recordChan := make(chan sonde.Record, 1)
	sink := sonde.SinkFunc(func(r sonde.Record) {
		select {
		case recordChan <- r:
		default:
		}
	})

	stats := sonde.NewStatistics()
	decoder := newDecoder(sink, sonde.WithStatistics(stats))

	errChan := make(chan error, 1)
	go func() {
		errChan <- runSession(ctx, conn, decoder)
	}()

	select {
	case r := <-recordChan:
		cancel()
		<-errChan
		snap := stats.Snapshot()
		if skipped := r.Meta().Start - 1; skipped > 0 {
			fmt.Printf("(skipped %d bytes before sync)\n", skipped)
		}
		fmt.Printf("SUCCESS: Received valid record\n")
		fmt.Printf("  Kind: %s\n", sonde.FormatKind(r.Kind()))
		fmt.Printf("  Sequence: %d\n", r.Meta().Sequence)
		fmt.Printf("  Stream position: %d\n", r.Meta().Start)
		fmt.Printf("  Rejected candidates: %d\n", snap.TotalErrors())
		os.Exit(0)

	case err := <-errChan:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)
		}
		// The stream ended, or the timeout closed it
		select {
		case <-recordChan:
			fmt.Printf("SUCCESS: Received valid record\n")
			os.Exit(0)
		default:
		}
		if ctx.Err() == context.DeadlineExceeded {
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid record received within %d seconds\n", packetTestTimeout)
		} else {
			fmt.Fprintf(os.Stderr, "FAILED: Stream ended without a valid record\n")
		}
		os.Exit(1)
	}

	return nil
}
