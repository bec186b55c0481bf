// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncoder_MatchesHandBuiltPacket(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   []byte
	}{
		{
			name:   "gps",
			record: GPS{Header: Header{Sequence: 0}, Position: Vec3{X: 1, Y: 2, Z: 3}},
			want:   buildPacket(13, 0, TagGPS, beFloats(1, 2, 3)),
		},
		{
			name:   "imu",
			record: sampleIMU(0x42),
			want: buildPacket(41, 0x42, TagIMU, beFloats(
				0.25, -0.5, 0.75,
				0.01, 0.02, 9.81,
				-1, 0, 1,
				123.5,
			)),
		},
		{
			name:   "env",
			record: sampleEnv(0xFF),
			want:   buildPacket(13, 0xFF, TagEnv, beFloats(21.5, 45.25, 1013.25)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEncoder(nil).Encode(tt.record)
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode = % X\nwant     % X", got, tt.want)
			}
		})
	}
}

func TestEncoder_ScenarioBytes(t *testing.T) {
	got := EncodePacket(GPS{Position: Vec3{X: 1, Y: 2, Z: 3}})
	prefix := []byte{0x16, 0x0D, 0x00, 0x01, 0x3F, 0x80, 0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x40, 0x40, 0x00, 0x00}
	if !bytes.HasPrefix(got, prefix) {
		t.Errorf("EncodePacket = % X, want prefix % X", got, prefix)
	}
	if crc := CalculateCRC(got[3:16]); got[16] != byte(crc>>24) || got[19] != byte(crc) {
		t.Errorf("CRC trailer % X does not match 0x%08X", got[16:], crc)
	}
}

func TestEncoder_Errors(t *testing.T) {
	t.Run("unregistered kind", func(t *testing.T) {
		if _, err := NewEncoder(nil).Encode(battery{}); err == nil {
			t.Error("expected error for unregistered kind")
		}
	})

	t.Run("wrong payload length", func(t *testing.T) {
		reg := DefaultRegistry()
		err := reg.Register(Definition{
			Kind:   Kind(11),
			Name:   "SHORT",
			Tag:    0x05,
			Size:   9,
			Decode: func(h Header, window []byte) Record { return nil },
			Encode: func(r Record) ([]byte, error) { return []byte{1, 2}, nil },
		})
		if err != nil {
			t.Fatalf("Register error: %v", err)
		}
		if _, err := NewEncoder(reg).Encode(short{}); err == nil {
			t.Error("expected payload length error")
		}
	})

	t.Run("encoder failure", func(t *testing.T) {
		boom := errors.New("boom")
		reg := DefaultRegistry()
		err := reg.Register(Definition{
			Kind:   Kind(11),
			Name:   "FAILING",
			Tag:    0x05,
			Size:   9,
			Decode: func(h Header, window []byte) Record { return nil },
			Encode: func(r Record) ([]byte, error) { return nil, boom },
		})
		if err != nil {
			t.Fatalf("Register error: %v", err)
		}
		if _, err := NewEncoder(reg).Encode(short{}); !errors.Is(err, boom) {
			t.Errorf("Encode error = %v, want wrapped %v", err, boom)
		}
	})
}

type short struct{ Header }

func (short) Kind() Kind { return Kind(11) }

func TestEncodePacket_PanicsOnError(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	EncodePacket(battery{})
}
