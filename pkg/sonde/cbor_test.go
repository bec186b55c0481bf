// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func TestRecordCBOR_RoundTrip(t *testing.T) {
	stamped := time.Unix(1700000000, 123456789)

	gps := sampleGPS(1)
	gps.Start = 40
	gps.Time = stamped

	imu := sampleIMU(2)
	imu.Start = 1 << 40

	tests := []struct {
		name   string
		record Record
	}{
		{"gps with time", gps},
		{"imu without time", imu},
		{"env", sampleEnv(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalRecordCBOR(tt.record)
			if err != nil {
				t.Fatalf("MarshalRecordCBOR error: %v", err)
			}

			got, err := ParseRecordCBOR(data)
			if err != nil {
				t.Fatalf("ParseRecordCBOR error: %v", err)
			}

			if !sameFields(got, tt.record) {
				t.Errorf("round trip = %+v, want %+v", got, tt.record)
			}
			want := tt.record.Meta()
			meta := got.Meta()
			if meta.Start != want.Start {
				t.Errorf("Start = %d, want %d", meta.Start, want.Start)
			}
			if !meta.Time.Equal(want.Time) {
				t.Errorf("Time = %v, want %v", meta.Time, want.Time)
			}
		})
	}
}

func TestParseRecordCBOR_Errors(t *testing.T) {
	mustMarshal := func(v interface{}) []byte {
		data, err := cbor.Marshal(v)
		if err != nil {
			t.Fatalf("cbor.Marshal error: %v", err)
		}
		return data
	}
	header := map[int]interface{}{0: uint64(1), 1: uint64(2)}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xFF, 0x00}},
		{"not an array", mustMarshal(map[int]int{1: 2})},
		{"wrong length", mustMarshal([]interface{}{uint64(KindGPS)})},
		{"kind not uint", mustMarshal([]interface{}{"gps", header})},
		{"payload not map", mustMarshal([]interface{}{uint64(KindGPS), "x"})},
		{"missing sequence", mustMarshal([]interface{}{uint64(KindEnv), map[int]interface{}{1: uint64(2)}})},
		{"missing vector", mustMarshal([]interface{}{uint64(KindGPS), header})},
		{"unknown kind", mustMarshal([]interface{}{uint64(99), header})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRecordCBOR(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMarshalRecordCBOR_UnknownRecord(t *testing.T) {
	if _, err := MarshalRecordCBOR(battery{}); err == nil {
		t.Error("expected error for record without CBOR mapping")
	}
}
