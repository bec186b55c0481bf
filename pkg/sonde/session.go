// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultReadSize is the transport read chunk used by Session
const DefaultReadSize = 128

// Session drives a Decoder from a transport. It is the only goroutine that
// touches the decoder; consumers read what it publishes through the sink.
type Session struct {
	src      io.Reader
	decoder  *Decoder
	readSize int

	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a session reading src into dec
func NewSession(src io.Reader, dec *Decoder) *Session {
	return &Session{
		src:      src,
		decoder:  dec,
		readSize: DefaultReadSize,
	}
}

// Decoder returns the session's decoder
func (s *Session) Decoder() *Decoder {
	return s.decoder
}

// Run reads and decodes until ctx is cancelled or the transport reports
// io.EOF, then closes the transport if it is an io.Closer. Both are a
// normal stop and return nil. In-flight packets are dropped.
//
// The stop signal is checked once per read. Cancelling ctx also closes the
// transport so that a blocked read returns.
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.close)
	defer stop()
	defer s.close()

	buf := make([]byte, s.readSize)
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := s.src.Read(buf)
		for i := 0; i < n; i++ {
			s.decoder.DecodeByte(buf[i])
		}

		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("transport read: %w", err)
		}
	}
}

// CloseError returns the error from closing the transport, if any
func (s *Session) CloseError() error {
	return s.closeErr
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		if c, ok := s.src.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})
}
