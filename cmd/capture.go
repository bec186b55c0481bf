// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	captureDuration int
	captureOutput   string
	captureHex      bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record the raw link to a capture file",
	Long: `Record raw bytes from the connection without decoding them.

The capture can be replayed later with --file, so a flight can be decoded
again with different settings. With --hex each read is also dumped to stdout,
which is useful for debugging link stability.

Exit codes:
  0 - Capture completed normally
  1 - Connection failed during the capture
  2 - Connection error`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().IntVar(&captureDuration, "duration", 30, "Capture duration in seconds")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "", "Capture file to write")
	captureCmd.Flags().BoolVar(&captureHex, "hex", false, "Dump every read as hex")
}

// captureResult summarizes a capture
type captureResult struct {
	reads int
	bytes int64
	err   error // set when the connection failed
}

// captureStream copies src to dst until the deadline, reporting progress
// once per second on log. A read error ends the capture.
func captureStream(src io.Reader, dst io.Writer, log io.Writer, until time.Time, hex bool) captureResult {
	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	var result captureResult
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()
	deadline := time.NewTimer(time.Until(until))
	defer deadline.Stop()

	write := func(data []byte) bool {
		result.reads++
		result.bytes += int64(len(data))
		if hex {
			fmt.Fprintf(log, "[%s] Received %d bytes: %x\n", time.Now().Format("15:04:05.000"), len(data), data)
		}
		if _, err := dst.Write(data); err != nil {
			result.err = fmt.Errorf("write failed: %w", err)
			return false
		}
		return true
	}

	for {
		select {
		case data := <-readChan:
			if !write(data) {
				return result
			}

		case err := <-errChan:
			// Flush what was read before the error
			for len(readChan) > 0 {
				if !write(<-readChan) {
					return result
				}
			}
			if err != io.EOF {
				result.err = err
			}
			return result

		case <-heartbeat.C:
			if !hex {
				fmt.Fprintf(log, "[%s] %d bytes captured (%.0fs remaining)\n",
					time.Now().Format("15:04:05.000"), result.bytes, time.Until(until).Seconds())
			}

		case <-deadline.C:
			return result
		}
	}
}

func runCapture(cmd *cobra.Command, args []string) error {
	if captureOutput == "" {
		return fmt.Errorf("--output is required")
	}

	conn, connInfo, err := OpenConnection(settings.Connection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	out, err := CreateFileConnection(captureOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Fprintf(os.Stderr, "Sondestat - Link Capture\n")
	fmt.Fprintf(os.Stderr, "Connection: %s\n", connInfo)
	fmt.Fprintf(os.Stderr, "Output: %s\n", captureOutput)
	fmt.Fprintf(os.Stderr, "Duration: %d seconds\n\n", captureDuration)

	start := time.Now()
	result := captureStream(conn, out, os.Stderr, start.Add(time.Duration(captureDuration)*time.Second), captureHex)

	fmt.Fprintf(os.Stderr, "\n--- Capture Results ---\n")
	fmt.Fprintf(os.Stderr, "Duration: %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Reads: %d\n", result.reads)
	fmt.Fprintf(os.Stderr, "Bytes captured: %d\n", result.bytes)
	if result.err != nil {
		fmt.Fprintf(os.Stderr, "Result: FAILED (%v)\n", result.err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Result: PASSED\n")
	return nil
}
