// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"errors"
	"fmt"
)

// Status is the decode progress of an in-flight packet
type Status int

// Status values
const (
	StatusNotRead Status = iota
	StatusOK
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusNotRead:
		return "NOT_READ"
	case StatusOK:
		return "OK"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Kind identifies the payload type of a packet
type Kind int

// Kind values
const (
	KindPending Kind = iota // header not classified yet
	KindGPS
	KindIMU
	KindEnv
)

// Errors reported for rejected packets. ErrIncomplete is a retry signal
// and never causes a rejection.
var (
	ErrHeaderMismatch   = errors.New("header mismatch")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrIncomplete       = errors.New("incomplete")
	ErrStale            = errors.New("stale")
)

// Rejection describes a packet dropped by the decoder
type Rejection struct {
	Kind  Kind   // KindPending for header rejections
	Start uint64 // stream position of the first header byte
	Err   error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s @%d: %v", FormatKind(r.Kind), r.Start, r.Err)
}

func (r Rejection) Unwrap() error {
	return r.Err
}
