// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"encoding/binary"
	"fmt"
)

// Encoder builds wire packets for the definitions of a registry
type Encoder struct {
	registry *Registry
}

// NewEncoder creates an encoder. A nil registry uses the default set.
func NewEncoder(reg *Registry) *Encoder {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Encoder{registry: reg}
}

// Encode returns the wire bytes for r: sentinel, header, tag, payload and
// big-endian CRC-32. The sequence counter is taken from r.Meta().
func (e *Encoder) Encode(r Record) ([]byte, error) {
	def, ok := e.registry.ByKind(r.Kind())
	if !ok {
		return nil, fmt.Errorf("no definition registered for kind %d", r.Kind())
	}
	if def.Encode == nil {
		return nil, fmt.Errorf("definition %q has no encoder", def.Name)
	}

	payload, err := def.Encode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", def.Name, err)
	}
	if len(payload) != def.Size-1 {
		return nil, fmt.Errorf("%s payload is %d bytes (expected %d)", def.Name, len(payload), def.Size-1)
	}

	// sentinel + size + sequence, then the CRC'd window (tag + payload)
	packet := make([]byte, 0, 1+tagOffset+def.Size+CRCSize)
	packet = append(packet, Sentinel, byte(def.Size), r.Meta().Sequence)
	windowStart := len(packet)
	packet = append(packet, def.Tag)
	packet = append(packet, payload...)

	crc := CalculateCRC(packet[windowStart:])
	packet = binary.BigEndian.AppendUint32(packet, crc)

	return packet, nil
}

// EncodePacket encodes a built-in record with the default definitions.
// Panics on encoding error (use Encoder.Encode for error handling).
func EncodePacket(r Record) []byte {
	data, err := NewEncoder(nil).Encode(r)
	if err != nil {
		panic(fmt.Sprintf("sonde: encode error: %v", err))
	}
	return data
}
