// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import "fmt"

// PendingPacket tracks a sentinel until its header can be classified
type PendingPacket struct {
	Start    uint64 // stream position of the byte after the sentinel
	Status   Status
	Sequence uint8
	Err      error // set once Status is StatusRejected
}

// NewPendingPacket creates a pending packet whose header starts at start
func NewPendingPacket(start uint64) *PendingPacket {
	return &PendingPacket{
		Start:  start,
		Status: StatusNotRead,
	}
}

// Classify reads the 3-byte header and matches it against the registry.
// Returns the typed packet to track when the header matches; the pending
// packet is then StatusOK. Mismatching headers are rejected. When the header
// is not fully received yet, the packet stays StatusNotRead and nil is
// returned.
func (p *PendingPacket) Classify(ring *RingBuffer, reg *Registry) *TypedPacket {
	if p.Status != StatusNotRead {
		return nil
	}

	header, err := ring.Read(p.Start, HeaderSize)
	if err == ErrIncomplete {
		return nil
	}
	if err != nil {
		p.reject(err)
		return nil
	}

	size := header[0]
	sequence := header[1]
	tag := header[2]
	p.Sequence = sequence

	def, ok := reg.Lookup(tag)
	if !ok || int(size) != def.Size {
		p.reject(fmt.Errorf("%w: size=%d tag=0x%02X", ErrHeaderMismatch, size, tag))
		return nil
	}

	p.Status = StatusOK
	return NewTypedPacket(def, p.Start+tagOffset, Header{Sequence: sequence, Start: p.Start})
}

func (p *PendingPacket) reject(err error) {
	p.Status = StatusRejected
	p.Err = err
}
