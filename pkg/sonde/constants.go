// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sonde decodes the telemetry stream of the sonde sensor package.
//
// The link carries GPS, IMU and environmental packets with no framing other
// than a start sentinel. Bytes are fed one at a time into a Decoder, which
// keeps them in a fixed ring buffer and tracks every packet that may start at
// a sentinel until it either validates against its CRC-32 trailer or is
// rejected.
package sonde

// Protocol framing
const (
	Sentinel   = 0x16
	HeaderSize = 3 // declared size, sequence counter, type tag
	CRCSize    = 4
)

// RingCapacity is the number of most recent bytes the decoder can read back.
const RingCapacity = 256

// Type tags
const (
	TagGPS = 0x01
	TagIMU = 0x02
	TagEnv = 0x03
)

// Declared sizes: type tag plus payload, excluding the CRC trailer.
// Some firmware revisions announce 20/48/20 instead; those headers are
// rejected.
const (
	SizeGPS = 13
	SizeIMU = 41
	SizeEnv = 13
)

// tagOffset is the distance from the first header byte to the type tag,
// which is also the first byte of the typed packet window.
const tagOffset = 2
