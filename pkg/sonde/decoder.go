// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"errors"
	"time"
)

// Sink receives every record the decoder validates
type Sink interface {
	Publish(r Record)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(r Record)

// Publish implements Sink
func (f SinkFunc) Publish(r Record) {
	f(r)
}

// MultiSink publishes to every sink in order
type MultiSink []Sink

// Publish implements Sink
func (m MultiSink) Publish(r Record) {
	for _, s := range m {
		s.Publish(r)
	}
}

// RejectHandler is called for every dropped packet
type RejectHandler func(r Rejection)

// Option configures a Decoder
type Option func(*Decoder)

// WithRegistry decodes the packet types of reg instead of the default set
func WithRegistry(reg *Registry) Option {
	return func(d *Decoder) {
		if reg != nil {
			d.registry = reg
		}
	}
}

// WithRejectHandler reports rejected packets to h
func WithRejectHandler(h RejectHandler) Option {
	return func(d *Decoder) {
		d.onReject = h
	}
}

// WithStatistics counts bytes, records and rejections into s
func WithStatistics(s *Statistics) Option {
	return func(d *Decoder) {
		d.stats = s
	}
}

// WithMaxAge drops in-flight packets that started more than n bytes ago.
// n is clamped to [longest window, RingCapacity].
func WithMaxAge(n int) Option {
	return func(d *Decoder) {
		d.maxAge = n
	}
}

// WithClock sets the time source used to stamp records
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) {
		if now != nil {
			d.now = now
		}
	}
}

type worklist struct {
	kind    Kind
	packets []*TypedPacket
}

// Decoder reconstructs records from the link one byte at a time.
//
// Every sentinel starts a pending packet; every pending packet whose header
// matches a definition becomes a typed packet. All of them are re-evaluated
// after each byte, so a packet is published on the byte that completes it,
// and any number of candidates can be in flight at once.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	ring     *RingBuffer
	registry *Registry
	sink     Sink
	onReject RejectHandler
	stats    *Statistics
	maxAge   int
	now      func() time.Time

	pending []*PendingPacket
	typed   []worklist
}

// NewDecoder creates a decoder publishing to sink. A nil sink discards
// records.
func NewDecoder(sink Sink, opts ...Option) *Decoder {
	d := &Decoder{
		ring:     NewRingBuffer(),
		registry: DefaultRegistry(),
		sink:     sink,
		maxAge:   RingCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxAge > RingCapacity {
		d.maxAge = RingCapacity
	}
	if longest := d.registry.MaxWindow(); d.maxAge < longest {
		d.maxAge = longest
	}
	for _, def := range d.registry.Definitions() {
		d.typed = append(d.typed, worklist{kind: def.Kind})
	}
	return d
}

// Ring returns the decoder's buffer
func (d *Decoder) Ring() *RingBuffer {
	return d.ring
}

// MaxAge returns the staleness bound in bytes
func (d *Decoder) MaxAge() int {
	return d.maxAge
}

// Pending returns the number of sentinels whose header is not classified yet
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// InFlight returns the number of typed packets waiting for their payload
func (d *Decoder) InFlight() int {
	n := 0
	for _, w := range d.typed {
		n += len(w.packets)
	}
	return n
}

// Reset drops all buffered bytes and in-flight packets
func (d *Decoder) Reset() {
	d.ring.Reset()
	d.pending = d.pending[:0]
	for i := range d.typed {
		d.typed[i].packets = d.typed[i].packets[:0]
	}
}

// Write feeds every byte of p through DecodeByte. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	for _, b := range p {
		d.DecodeByte(b)
	}
	return len(p), nil
}

// DecodeByte appends b to the buffer and advances every in-flight packet
func (d *Decoder) DecodeByte(b byte) {
	d.ring.Append(b)
	if d.stats != nil {
		d.stats.addByte(b == Sentinel)
	}

	if b == Sentinel {
		d.pending = append(d.pending, NewPendingPacket(d.ring.Written()))
	}

	d.sweepPending()
	d.sweepTyped()
}

// sweepPending classifies pending headers and keeps only unresolved ones
func (d *Decoder) sweepPending() {
	kept := d.pending[:0]
	for _, p := range d.pending {
		if p.Status == StatusNotRead {
			if d.expired(p.Start) {
				p.reject(ErrStale)
			} else if tp := p.Classify(d.ring, d.registry); tp != nil {
				d.enqueue(tp)
			}
		}

		switch p.Status {
		case StatusNotRead:
			kept = append(kept, p)
		case StatusRejected:
			d.reject(Rejection{Kind: KindPending, Start: p.Start, Err: p.Err})
		}
	}
	clear(d.pending[len(kept):])
	d.pending = kept
}

// sweepTyped reads every typed packet, publishing the ones that validate
func (d *Decoder) sweepTyped() {
	for i := range d.typed {
		w := &d.typed[i]
		kept := w.packets[:0]
		for _, tp := range w.packets {
			if tp.Status == StatusNotRead {
				if d.expired(tp.Start) {
					tp.reject(ErrStale)
				} else {
					tp.Read(d.ring)
				}
			}

			switch tp.Status {
			case StatusNotRead:
				kept = append(kept, tp)
			case StatusOK:
				d.publish(tp.Record)
			case StatusRejected:
				d.reject(Rejection{Kind: tp.Def.Kind, Start: tp.header.Start, Err: tp.Err})
			}
		}
		clear(w.packets[len(kept):])
		w.packets = kept
	}
}

func (d *Decoder) enqueue(tp *TypedPacket) {
	for i := range d.typed {
		if d.typed[i].kind == tp.Def.Kind {
			d.typed[i].packets = append(d.typed[i].packets, tp)
			return
		}
	}
	// Registered after the decoder was created
	d.typed = append(d.typed, worklist{kind: tp.Def.Kind, packets: []*TypedPacket{tp}})
}

// expired reports whether an entry starting at start is past the age bound
func (d *Decoder) expired(start uint64) bool {
	return d.ring.Written()-start > uint64(d.maxAge)
}

func (d *Decoder) publish(r Record) {
	r = stamp(r, d.now())
	if d.stats != nil {
		d.stats.addRecord(r.Kind())
	}
	if d.sink != nil {
		d.sink.Publish(r)
	}
}

func (d *Decoder) reject(r Rejection) {
	if d.stats != nil {
		d.stats.addRejection(r)
	}
	if d.onReject != nil {
		d.onReject(r)
	}
}

// stamp sets the decode time on the built-in record types
func stamp(r Record, t time.Time) Record {
	switch v := r.(type) {
	case GPS:
		v.Time = t
		return v
	case IMU:
		v.Time = t
		return v
	case Env:
		v.Time = t
		return v
	}
	return r
}

// IsRejection reports whether err is one of the errors that drop a packet
func IsRejection(err error) bool {
	return errors.Is(err, ErrHeaderMismatch) ||
		errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrStale)
}
