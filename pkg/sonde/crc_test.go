// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"hash/crc32"
	"math/rand"
	"testing"
)

func TestCalculateCRC_Empty(t *testing.T) {
	if crc := CalculateCRC([]byte{}); crc != 0 {
		t.Errorf("CRC of empty data should be 0, got 0x%08X", crc)
	}
}

func TestCalculateCRC_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint32
	}{
		{
			name:     "ASCII '123456789'",
			data:     []byte("123456789"),
			expected: 0xCBF43926, // Standard CRC-32 check value
		},
		{
			name:     "single zero byte",
			data:     []byte{0x00},
			expected: 0xD202EF8D,
		},
		{
			name:     "ASCII 'a'",
			data:     []byte("a"),
			expected: 0xE8B7BE43,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := CalculateCRC(tt.data)
			if crc != tt.expected {
				t.Errorf("CRC mismatch: expected 0x%08X, got 0x%08X", tt.expected, crc)
			}
		})
	}
}

func TestCalculateCRC_TableMatchesIEEE(t *testing.T) {
	if [256]uint32(*crc32.IEEETable) != crcTable {
		t.Fatal("embedded CRC table differs from the IEEE table")
	}
	if crcTable[1] != 0x77073096 || crcTable[255] != 0x2D02EF8D {
		t.Errorf("table spot check failed: [1]=0x%08X [255]=0x%08X", crcTable[1], crcTable[255])
	}
}

func TestCalculateCRC_MatchesHashCRC32(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		data := make([]byte, rng.Intn(64))
		rng.Read(data)
		if got, want := CalculateCRC(data), crc32.ChecksumIEEE(data); got != want {
			t.Fatalf("CRC(%x) = 0x%08X, want 0x%08X", data, got, want)
		}
	}
}

func TestCalculateCRCN_Prefix(t *testing.T) {
	data := []byte("123456789TRAILER")
	if got := CalculateCRCN(data, 9); got != 0xCBF43926 {
		t.Errorf("CRC over first 9 bytes = 0x%08X, want 0xCBF43926", got)
	}
}
