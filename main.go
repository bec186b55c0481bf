// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Sondestat - Sonde Telemetry Link Analyzer
//
// A CLI tool for decoding sonde telemetry packets from serial ports,
// WebSocket bridges and capture files.

package main

import (
	"os"

	"github.com/Thermoquad/sondestat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
