// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"time"

	"github.com/Thermoquad/sondestat/pkg/sonde"
	"github.com/spf13/cobra"
)

var (
	simulateRate         float64
	simulateCorruptEvery int
	simulateCount        int
	simulateOutput       string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Emit synthetic sonde telemetry",
	Long: `Generate a synthetic GPS, IMU and environment packet stream.

Packets are written to --output (a capture file, or - for stdout), or to the
configured serial port or WebSocket. The sonde climbs on a slow spiral while
the IMU sways and the air cools with altitude.

With --corrupt-every N, one bit of every Nth packet is flipped so decoders
can be checked against CRC failures. Noise bytes are inserted between
packets, including sentinels, to exercise resynchronization.

Examples:
  # Record a capture file and decode it
  sondestat simulate --output capture.bin --count 300
  sondestat decode --file capture.bin

  # Pipe straight into the decoder
  sondestat simulate --output - --count 100 | sondestat decode --file -`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Float64Var(&simulateRate, "rate", 0, "GPS/IMU/Env cycles per second (default from config, 10)")
	simulateCmd.Flags().IntVar(&simulateCorruptEvery, "corrupt-every", 0, "Flip one bit in every Nth packet (0 disables)")
	simulateCmd.Flags().IntVar(&simulateCount, "count", 0, "Stop after this many packets, rounded up to a full cycle (0 runs until Ctrl+C)")
	simulateCmd.Flags().StringVarP(&simulateOutput, "output", "o", "", "Capture file to write (- for stdout)")
}

// Synthetic flight profile
const (
	simClimbRate    = 5.0    // m/s
	simBurstAlt     = 30000  // m, the flight restarts from the ground
	simSpiralRadius = 0.0005 // degrees
	simSpiralFreqHz = 0.02
	simBaseLat      = 46.81
	simBaseLon      = 8.22
	simSwayFreqHz   = 0.4
	simSwayAmpDeg   = 8.0
	simSeaLevelTemp = 15.0
	simLapseRate    = 0.0065 // °C/m
	simTropopause   = -56.5  // °C
	simSeaLevelHPa  = 1013.25
)

// simulator produces the packet stream for simulate
type simulator struct {
	encoder      *sonde.Encoder
	corruptEvery int
	seq          uint8
	sent         int
}

func newSimulator(corruptEvery int) *simulator {
	return &simulator{
		encoder:      sonde.NewEncoder(nil),
		corruptEvery: corruptEvery,
	}
}

// simRecords returns the GPS, IMU and Env samples at t seconds into the flight
func simRecords(t float64, seq uint8) []sonde.Record {
	alt := math.Mod(simClimbRate*t, simBurstAlt)
	phase := 2.0 * math.Pi * simSpiralFreqHz * t
	sway := simSwayAmpDeg * math.Sin(2.0*math.Pi*simSwayFreqHz*t)
	swayRad := sway * math.Pi / 180.0

	gps := sonde.GPS{
		Header: sonde.Header{Sequence: seq},
		Position: sonde.Vec3{
			X: float32(simBaseLat + simSpiralRadius*math.Cos(phase)),
			Y: float32(simBaseLon + simSpiralRadius*math.Sin(phase)),
			Z: float32(alt),
		},
	}

	imu := sonde.IMU{
		Header:  sonde.Header{Sequence: seq + 1},
		Mag:     sonde.Vec3{X: float32(0.2 * math.Cos(phase)), Y: float32(0.2 * math.Sin(phase)), Z: -0.4},
		Accel:   sonde.Vec3{X: float32(9.81 * math.Sin(swayRad)), Y: 0, Z: float32(9.81 * math.Cos(swayRad))},
		Gyro:    sonde.Vec3{X: float32(sway * 2.0 * math.Pi * simSwayFreqHz), Y: 0, Z: float32(360.0 * simSpiralFreqHz)},
		Horizon: float32(sway),
	}

	temp := math.Max(simSeaLevelTemp-simLapseRate*alt, simTropopause)
	env := sonde.Env{
		Header:      sonde.Header{Sequence: seq + 2},
		Temperature: float32(temp),
		Humidity:    float32(60.0 - 40.0*math.Min(alt/10000.0, 1.0)),
		Pressure:    float32(simSeaLevelHPa * math.Pow(1.0-simLapseRate*alt/288.15, 5.2559)),
	}

	return []sonde.Record{gps, imu, env}
}

// corruptPacket flips one bit in the window of a wire packet, leaving the
// header intact
func corruptPacket(packet []byte, n int) {
	window := packet[1+2:] // after sentinel, size and sequence
	bit := n % (len(window) * 8)
	window[bit/8] ^= 1 << (bit % 8)
}

// next returns the wire bytes of one GPS/IMU/Env cycle at time t
func (s *simulator) next(t float64) ([]byte, error) {
	var out []byte
	for _, r := range simRecords(t, s.seq) {
		packet, err := s.encoder.Encode(r)
		if err != nil {
			return nil, err
		}
		s.sent++
		if s.corruptEvery > 0 && s.sent%s.corruptEvery == 0 {
			corruptPacket(packet, s.sent)
		}
		out = append(out, packet...)
		// Inter-packet noise, sentinel included
		out = append(out, 0x00, sonde.Sentinel, byte(s.sent))
	}
	s.seq += 3
	return out, nil
}

// run writes cycles to w at rate Hz until ctx is done or count packets
// have been written
func (s *simulator) run(ctx context.Context, w io.Writer, rate float64, count int) error {
	interval := time.Duration(float64(time.Second) / rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		if count > 0 && s.sent >= count {
			return nil
		}

		data, err := s.next(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sim := settings.Simulate
	if cmd.Flags().Changed("rate") {
		sim.RateHz = simulateRate
	}
	if cmd.Flags().Changed("corrupt-every") {
		sim.CorruptEvery = simulateCorruptEvery
	}
	if sim.RateHz <= 0 {
		return fmt.Errorf("--rate must be > 0")
	}
	if sim.CorruptEvery < 0 {
		return fmt.Errorf("--corrupt-every must be >= 0")
	}

	var out Connection
	var outInfo string
	if simulateOutput != "" {
		conn, err := CreateFileConnection(simulateOutput)
		if err != nil {
			return err
		}
		out, outInfo = conn, fmt.Sprintf("File: %s", simulateOutput)
	} else {
		conn, info, err := OpenConnection(settings.Connection)
		if err != nil {
			return err
		}
		out, outInfo = conn, info
	}
	defer out.Close()

	// Keep stdout clean when it carries the packet stream
	log.SetOutput(os.Stderr)
	log.Printf("Sondestat - Simulator")
	log.Printf("Output: %s", outInfo)
	log.Printf("Rate: %.1f cycles/sec, corrupt every: %d", sim.RateHz, sim.CorruptEvery)

	ctx, cancel := signalContext()
	defer cancel()

	s := newSimulator(sim.CorruptEvery)
	if err := s.run(ctx, out, sim.RateHz, simulateCount); err != nil {
		return err
	}
	log.Printf("Wrote %d packets", s.sent)
	return nil
}
