// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/sondestat/pkg/sonde"
)

// newDecoder builds a decoder with the configured staleness bound
func newDecoder(sink sonde.Sink, opts ...sonde.Option) *sonde.Decoder {
	opts = append([]sonde.Option{sonde.WithMaxAge(settings.Decoder.MaxAge)}, opts...)
	return sonde.NewDecoder(sink, opts...)
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runSession decodes conn until ctx is done or the stream ends
func runSession(ctx context.Context, conn Connection, dec *sonde.Decoder) error {
	session := sonde.NewSession(conn, dec)
	if err := session.Run(ctx); err != nil {
		return err
	}
	if err := session.CloseError(); err != nil {
		log.Printf("Close error: %v", err)
	}
	return nil
}
