// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

// RingBuffer keeps the most recent RingCapacity bytes of the stream.
//
// Bytes are addressed by absolute stream position: the number of bytes
// appended before them. Positions never wrap, so a reader can always tell
// whether its window is still in the buffer.
type RingBuffer struct {
	storage [RingCapacity]byte
	written uint64
}

// NewRingBuffer creates an empty ring buffer
func NewRingBuffer() *RingBuffer {
	return &RingBuffer{}
}

// Append stores b at the tip, overwriting the oldest byte once full
func (r *RingBuffer) Append(b byte) {
	r.storage[r.written%RingCapacity] = b
	r.written++
}

// Tip returns the storage index that receives the next appended byte
func (r *RingBuffer) Tip() int {
	return int(r.written % RingCapacity)
}

// Written returns the stream position of the next appended byte
func (r *RingBuffer) Written() uint64 {
	return r.written
}

// Oldest returns the stream position of the oldest byte still buffered
func (r *RingBuffer) Oldest() uint64 {
	if r.written < RingCapacity {
		return 0
	}
	return r.written - RingCapacity
}

// Read returns a copy of the n bytes starting at stream position pos.
// Returns ErrIncomplete if part of the window has not been written yet,
// and ErrStale if part of it has already been overwritten.
func (r *RingBuffer) Read(pos uint64, n int) ([]byte, error) {
	if n < 0 || n > RingCapacity {
		return nil, ErrStale
	}
	if pos < r.Oldest() {
		return nil, ErrStale
	}
	if pos+uint64(n) > r.written {
		return nil, ErrIncomplete
	}

	result := make([]byte, n)
	idx := int(pos % RingCapacity)
	copied := copy(result, r.storage[idx:])
	if copied < n {
		copy(result[copied:], r.storage[:n-copied])
	}
	return result, nil
}

// Reset discards all buffered bytes and rewinds the stream position
func (r *RingBuffer) Reset() {
	r.written = 0
}
