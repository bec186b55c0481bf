// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/sondestat/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Capture file flag
	inputFile string

	configPath string

	// settings is the config file merged with explicit flags
	settings = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "sondestat",
	Short: "Sonde Telemetry Link Analyzer",
	Long: `Sondestat - A CLI tool for decoding and analyzing sonde telemetry links.

Reconstructs GPS, IMU and environmental records from a raw byte stream that
carries no framing beyond a start sentinel and a trailing CRC-32. Every
sentinel is tracked as a candidate packet, so the decoder recovers from
corruption, dropped bytes and sentinels inside payloads.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  Capture:   --file capture.bin (or --file - for stdin)

Settings can also be read from a YAML file with --config; explicit flags
override values from the file.

For WebSocket authentication, the password is read from the SONDE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	PersistentPreRunE: loadSettings,
	SilenceUsage:      true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaud, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "Capture file to read (- for stdin)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}

// loadSettings reads the config file, then applies explicitly set flags
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	conn := &cfg.Connection

	// A source given on the command line replaces the one from the file
	if flags.Changed("port") || flags.Changed("url") || flags.Changed("file") {
		conn.Port = portName
		conn.URL = wsURL
		conn.File = inputFile
	}
	if flags.Changed("baud") {
		conn.Baud = baudRate
	}
	if flags.Changed("username") {
		conn.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		conn.NoSSLVerify = wsNoSSLVerify
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	settings = cfg
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
