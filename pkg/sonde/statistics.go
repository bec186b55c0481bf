// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Statistics tracks decoder throughput and error counts.
// It is safe for concurrent use: the decoder updates it while consumers
// take snapshots.
type Statistics struct {
	mu sync.Mutex

	startTime time.Time
	lastTime  time.Time

	bytes     uint64
	sentinels uint64
	records   map[Kind]uint64

	headerMismatches   uint64
	checksumMismatches uint64
	stale              uint64
	anomalies          uint64
}

// StatsSnapshot is a point-in-time copy of Statistics
type StatsSnapshot struct {
	Elapsed time.Duration
	Last    time.Time // time of the last published record

	Bytes     uint64
	Sentinels uint64
	Records   map[Kind]uint64

	HeaderMismatches   uint64
	ChecksumMismatches uint64
	Stale              uint64
	Anomalies          uint64

	// Rates (per second over Elapsed)
	ByteRate   float64
	RecordRate float64
	ErrorRate  float64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		startTime: now,
		records:   make(map[Kind]uint64),
	}
}

func (s *Statistics) addByte(sentinel bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytes++
	if sentinel {
		s.sentinels++
	}
}

func (s *Statistics) addRecord(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[kind]++
	s.lastTime = time.Now()
}

func (s *Statistics) addRejection(r Rejection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case errors.Is(r.Err, ErrHeaderMismatch):
		s.headerMismatches++
	case errors.Is(r.Err, ErrChecksumMismatch):
		s.checksumMismatches++
	case errors.Is(r.Err, ErrStale):
		s.stale++
	}
}

// AddAnomalies counts validation anomalies found in published records
func (s *Statistics) AddAnomalies(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anomalies += uint64(n)
}

// Snapshot returns the current counters and rates
func (s *Statistics) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Elapsed:            time.Since(s.startTime),
		Last:               s.lastTime,
		Bytes:              s.bytes,
		Sentinels:          s.sentinels,
		Records:            make(map[Kind]uint64, len(s.records)),
		HeaderMismatches:   s.headerMismatches,
		ChecksumMismatches: s.checksumMismatches,
		Stale:              s.stale,
		Anomalies:          s.anomalies,
	}
	for k, v := range s.records {
		snap.Records[k] = v
	}

	if elapsed := snap.Elapsed.Seconds(); elapsed > 0 {
		snap.ByteRate = float64(snap.Bytes) / elapsed
		snap.RecordRate = float64(snap.TotalRecords()) / elapsed
		snap.ErrorRate = float64(snap.TotalErrors()) / elapsed
	}
	return snap
}

// TotalRecords returns the number of published records of all kinds
func (s StatsSnapshot) TotalRecords() uint64 {
	var total uint64
	for _, v := range s.Records {
		total += v
	}
	return total
}

// TotalErrors returns the number of rejected packets.
// Header mismatches from sentinels inside payloads are included.
func (s StatsSnapshot) TotalErrors() uint64 {
	return s.HeaderMismatches + s.ChecksumMismatches + s.Stale
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", snap.Elapsed.Seconds())
	result += fmt.Sprintf("Bytes:           %8d\n", snap.Bytes)
	result += fmt.Sprintf("Sentinels:       %8d\n", snap.Sentinels)
	result += fmt.Sprintf("Records:         %8d\n", snap.TotalRecords())
	for _, kind := range []Kind{KindGPS, KindIMU, KindEnv} {
		if n := snap.Records[kind]; n > 0 {
			result += fmt.Sprintf("  %-4s            %6d\n", FormatKind(kind), n)
		}
	}
	if snap.HeaderMismatches > 0 {
		result += fmt.Sprintf("Header Rejects:  %8d\n", snap.HeaderMismatches)
	}
	if snap.ChecksumMismatches > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d\n", snap.ChecksumMismatches)
	}
	if snap.Stale > 0 {
		result += fmt.Sprintf("Stale Packets:   %8d\n", snap.Stale)
	}
	if snap.Anomalies > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d\n", snap.Anomalies)
	}
	result += fmt.Sprintf("Byte Rate:       %8.1f bytes/sec\n", snap.ByteRate)
	result += fmt.Sprintf("Record Rate:     %8.1f records/sec\n", snap.RecordRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = time.Now()
	s.lastTime = time.Time{}
	s.bytes = 0
	s.sentinels = 0
	s.records = make(map[Kind]uint64)
	s.headerMismatches = 0
	s.checksumMismatches = 0
	s.stale = 0
	s.anomalies = 0
}
