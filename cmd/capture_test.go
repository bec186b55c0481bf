// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/Thermoquad/sondestat/pkg/sonde"
)

func TestCaptureStream_CopiesUntilEOF(t *testing.T) {
	data := sonde.EncodePacket(sonde.GPS{Position: sonde.Vec3{X: 1, Y: 2, Z: 3}})
	var out, log bytes.Buffer

	result := captureStream(bytes.NewReader(data), &out, &log, time.Now().Add(5*time.Second), true)

	if result.err != nil {
		t.Fatalf("capture error: %v", result.err)
	}
	if !bytes.Equal(out.Bytes(), data) || result.bytes != int64(len(data)) {
		t.Errorf("captured % X, want % X", out.Bytes(), data)
	}
	if !strings.Contains(log.String(), "Received 20 bytes") {
		t.Errorf("hex log = %q", log.String())
	}
}

func TestCaptureStream_ReadError(t *testing.T) {
	wantErr := errors.New("link dropped")
	src := io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(wantErr))
	var out bytes.Buffer

	result := captureStream(src, &out, io.Discard, time.Now().Add(5*time.Second), false)

	if !errors.Is(result.err, wantErr) {
		t.Fatalf("capture error = %v, want %v", result.err, wantErr)
	}
	if out.String() != "abc" {
		t.Errorf("bytes before the error were lost: %q", out.String())
	}
}

func TestCaptureStream_Deadline(t *testing.T) {
	src := newIdleReader()
	defer src.Close()
	var out bytes.Buffer

	start := time.Now()
	result := captureStream(src, &out, io.Discard, start.Add(50*time.Millisecond), false)

	if result.err != nil {
		t.Fatalf("capture error: %v", result.err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("capture ran %v past its deadline", elapsed)
	}
}

// idleReader never returns data until closed
type idleReader struct {
	closed chan struct{}
}

func newIdleReader() *idleReader {
	return &idleReader{closed: make(chan struct{})}
}

func (r *idleReader) Read(p []byte) (int, error) {
	<-r.closed
	return 0, io.EOF
}

func (r *idleReader) Close() error {
	close(r.closed)
	return nil
}
