// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/iotest"
	"time"
)

// ============================================================
// Test Transports
// ============================================================

// closingReader tracks Close calls on top of a reader
type closingReader struct {
	io.Reader
	mu     sync.Mutex
	closes int
}

func (c *closingReader) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *closingReader) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// blockingReader blocks in Read until closed, like a serial port with no
// read timeout
type blockingReader struct {
	data   []byte
	closed chan struct{}
	once   sync.Once
}

func newBlockingReader(data []byte) *blockingReader {
	return &blockingReader{data: data, closed: make(chan struct{})}
}

func (b *blockingReader) Read(p []byte) (int, error) {
	if len(b.data) > 0 {
		n := copy(p, b.data)
		b.data = b.data[n:]
		return n, nil
	}
	<-b.closed
	return 0, errors.New("port closed")
}

func (b *blockingReader) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

// zeroReader returns empty reads before handing out its data
type zeroReader struct {
	data  []byte
	zeros int
}

func (z *zeroReader) Read(p []byte) (int, error) {
	if z.zeros > 0 {
		z.zeros--
		return 0, nil
	}
	if len(z.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, z.data)
	z.data = z.data[n:]
	return n, nil
}

func sessionStream() []byte {
	var stream []byte
	stream = append(stream, EncodePacket(sampleGPS(1))...)
	stream = append(stream, 0x00, Sentinel, 0x01)
	stream = append(stream, EncodePacket(sampleIMU(2))...)
	stream = append(stream, EncodePacket(sampleEnv(3))...)
	return stream
}

// ============================================================
// Session Tests
// ============================================================

func TestSession_RunUntilEOF(t *testing.T) {
	src := &closingReader{Reader: bytes.NewReader(sessionStream())}
	d, rec := newTestDecoder()

	if err := NewSession(src, d).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rec.records) != 3 {
		t.Errorf("expected 3 records, got %d", len(rec.records))
	}
	if src.closeCount() != 1 {
		t.Errorf("transport closed %d times, want 1", src.closeCount())
	}
}

func TestSession_OneByteReads(t *testing.T) {
	d, rec := newTestDecoder()
	src := iotest.OneByteReader(bytes.NewReader(sessionStream()))

	if err := NewSession(src, d).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rec.records) != 3 {
		t.Errorf("expected 3 records, got %d", len(rec.records))
	}
}

func TestSession_DataWithEOF(t *testing.T) {
	d, rec := newTestDecoder()
	src := iotest.DataErrReader(bytes.NewReader(EncodePacket(sampleEnv(1))))

	if err := NewSession(src, d).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rec.records) != 1 {
		t.Errorf("bytes returned with EOF were dropped: %d records", len(rec.records))
	}
}

func TestSession_ZeroByteReads(t *testing.T) {
	d, rec := newTestDecoder()
	src := &zeroReader{data: EncodePacket(sampleGPS(1)), zeros: 5}

	if err := NewSession(src, d).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rec.records) != 1 {
		t.Errorf("expected 1 record, got %d", len(rec.records))
	}
}

func TestSession_ReadError(t *testing.T) {
	d, _ := newTestDecoder()
	wantErr := errors.New("device unplugged")
	src := iotest.ErrReader(wantErr)

	err := NewSession(src, d).Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run error = %v, want %v", err, wantErr)
	}
}

func TestSession_CancelledBeforeRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &closingReader{Reader: bytes.NewReader(sessionStream())}
	d, rec := newTestDecoder()

	if err := NewSession(src, d).Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(rec.records) != 0 {
		t.Errorf("expected no records after stop, got %d", len(rec.records))
	}
	if src.closeCount() != 1 {
		t.Errorf("transport closed %d times, want 1", src.closeCount())
	}
}

func TestSession_CancelUnblocksRead(t *testing.T) {
	m := NewMailboxes()
	src := newBlockingReader(EncodePacket(sampleGPS(1)))
	session := NewSession(src, NewDecoder(m))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := m.GPS.Peek(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("GPS record never published")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run error after cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
