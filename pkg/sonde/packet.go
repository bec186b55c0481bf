// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Vec3 is a three-axis measurement
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Header holds the fields every decoded record shares
type Header struct {
	Sequence uint8     `json:"seq"`   // sequence counter from the packet header
	Start    uint64    `json:"start"` // stream position of the first header byte
	Time     time.Time `json:"time"`  // decode time
}

// Meta returns the shared record fields
func (h Header) Meta() Header {
	return h
}

// Record is a validated measurement decoded from the link.
// The concrete types are GPS, IMU and Env, plus any registered extension.
type Record interface {
	Kind() Kind
	Meta() Header
}

// GPS is a position fix
type GPS struct {
	Header
	Position Vec3 `json:"position"`
}

// Kind implements Record
func (GPS) Kind() Kind { return KindGPS }

// IMU is an inertial measurement sample
type IMU struct {
	Header
	Mag     Vec3    `json:"mag"`
	Accel   Vec3    `json:"accel"`
	Gyro    Vec3    `json:"gyro"`
	Horizon float32 `json:"horizon"`
}

// Kind implements Record
func (IMU) Kind() Kind { return KindIMU }

// Env is an environmental sample
type Env struct {
	Header
	Temperature float32 `json:"temperature"`
	Humidity    float32 `json:"humidity"`
	Pressure    float32 `json:"pressure"`
}

// Kind implements Record
func (Env) Kind() Kind { return KindEnv }

// TypedPacket is a packet whose header matched a registered definition and
// whose payload has not been validated yet
type TypedPacket struct {
	Def    Definition
	Start  uint64 // stream position of the type tag, first byte of the window
	Status Status
	Record Record // set once Status is StatusOK
	Err    error  // set once Status is StatusRejected

	header Header
}

// NewTypedPacket creates a typed packet whose window starts at start
func NewTypedPacket(def Definition, start uint64, header Header) *TypedPacket {
	return &TypedPacket{
		Def:    def,
		Start:  start,
		Status: StatusNotRead,
		header: header,
	}
}

// Len returns the window length: declared size plus CRC trailer
func (t *TypedPacket) Len() int {
	return t.Def.Size + CRCSize
}

// Read attempts to read and validate the full window.
// The packet stays StatusNotRead while bytes are still missing.
func (t *TypedPacket) Read(ring *RingBuffer) {
	if t.Status != StatusNotRead {
		return
	}

	window, err := ring.Read(t.Start, t.Len())
	if err == ErrIncomplete {
		return
	}
	if err != nil {
		t.reject(err)
		return
	}

	received := binary.BigEndian.Uint32(window[t.Def.Size:])
	calculated := CalculateCRCN(window, t.Def.Size)
	if received != calculated {
		t.reject(fmt.Errorf("%w: expected 0x%08X, got 0x%08X", ErrChecksumMismatch, calculated, received))
		return
	}

	t.Record = t.Def.Decode(t.header, window)
	t.Status = StatusOK
}

func (t *TypedPacket) reject(err error) {
	t.Status = StatusRejected
	t.Err = err
}

// Window field helpers. Window offsets count from the type tag.

func readFloat(window []byte, off int) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(window[off : off+4]))
}

func readVec(window []byte, off int) Vec3 {
	return Vec3{
		X: readFloat(window, off),
		Y: readFloat(window, off+4),
		Z: readFloat(window, off+8),
	}
}

func putFloat(dst []byte, v float32) {
	binary.BigEndian.PutUint32(dst, math.Float32bits(v))
}

func putVec(dst []byte, v Vec3) {
	putFloat(dst[0:], v.X)
	putFloat(dst[4:], v.Y)
	putFloat(dst[8:], v.Z)
}

func decodeGPS(h Header, window []byte) Record {
	return GPS{
		Header:   h,
		Position: readVec(window, 1),
	}
}

func encodeGPS(r Record) ([]byte, error) {
	g, ok := r.(GPS)
	if !ok {
		return nil, fmt.Errorf("expected GPS record, got %T", r)
	}
	payload := make([]byte, SizeGPS-1)
	putVec(payload, g.Position)
	return payload, nil
}

func decodeIMU(h Header, window []byte) Record {
	return IMU{
		Header:  h,
		Mag:     readVec(window, 1),
		Accel:   readVec(window, 13),
		Gyro:    readVec(window, 25),
		Horizon: readFloat(window, 37),
	}
}

func encodeIMU(r Record) ([]byte, error) {
	m, ok := r.(IMU)
	if !ok {
		return nil, fmt.Errorf("expected IMU record, got %T", r)
	}
	payload := make([]byte, SizeIMU-1)
	putVec(payload[0:], m.Mag)
	putVec(payload[12:], m.Accel)
	putVec(payload[24:], m.Gyro)
	putFloat(payload[36:], m.Horizon)
	return payload, nil
}

func decodeEnv(h Header, window []byte) Record {
	return Env{
		Header:      h,
		Temperature: readFloat(window, 1),
		Humidity:    readFloat(window, 5),
		Pressure:    readFloat(window, 9),
	}
}

func encodeEnv(r Record) ([]byte, error) {
	e, ok := r.(Env)
	if !ok {
		return nil, fmt.Errorf("expected Env record, got %T", r)
	}
	payload := make([]byte, SizeEnv-1)
	putFloat(payload[0:], e.Temperature)
	putFloat(payload[4:], e.Humidity)
	putFloat(payload[8:], e.Pressure)
	return payload, nil
}
