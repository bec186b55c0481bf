// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

// ============================================================
// Validator Tests
// ============================================================

func TestValidateRecord(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name   string
		record Record
		want   []AnomalyType
	}{
		{"plausible gps", sampleGPS(1), nil},
		{"plausible imu", sampleIMU(1), nil},
		{"plausible env", sampleEnv(1), nil},
		{"gps nan", GPS{Position: Vec3{X: nan}}, []AnomalyType{AnomalyNonFinite}},
		{"imu inf horizon", IMU{Horizon: inf}, []AnomalyType{AnomalyNonFinite}},
		{"imu two bad axes", IMU{Mag: Vec3{X: nan}, Gyro: Vec3{Z: inf}}, []AnomalyType{AnomalyNonFinite, AnomalyNonFinite}},
		{"env too hot", Env{Temperature: 200, Humidity: 50, Pressure: 1000}, []AnomalyType{AnomalyInvalidTemp}},
		{"env too cold", Env{Temperature: -100, Humidity: 50, Pressure: 1000}, []AnomalyType{AnomalyInvalidTemp}},
		{"env humidity", Env{Temperature: 20, Humidity: 101, Pressure: 1000}, []AnomalyType{AnomalyInvalidHumidity}},
		{"env pressure", Env{Temperature: 20, Humidity: 50, Pressure: 0}, []AnomalyType{AnomalyInvalidPressure}},
		{"env nan skips ranges", Env{Temperature: nan, Humidity: 500, Pressure: -1}, []AnomalyType{AnomalyNonFinite}},
		{"unknown record", battery{Volts: nan}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateRecord(tt.record)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d anomalies %v, want %d", len(got), got, len(tt.want))
			}
			for i, v := range got {
				if v.Type != tt.want[i] {
					t.Errorf("anomaly %d type = %d, want %d", i, v.Type, tt.want[i])
				}
				if v.Error() == "" {
					t.Errorf("anomaly %d has no message", i)
				}
			}
		})
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatKind(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindPending, "HEADER"},
		{KindGPS, "GPS"},
		{KindIMU, "IMU"},
		{KindEnv, "ENV"},
		{Kind(42), "KIND_42"},
	}
	for _, tt := range tests {
		if got := FormatKind(tt.kind); got != tt.want {
			t.Errorf("FormatKind(%d) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestFormatRecord(t *testing.T) {
	stamped := time.Date(2025, 1, 2, 13, 4, 5, 6_000_000, time.UTC)

	gps := sampleGPS(7)
	gps.Start = 99
	gps.Time = stamped
	out := FormatRecord(gps)

	for _, want := range []string{"[13:04:05.006]", "GPS", "seq=7", "@99", "Position: (1.500, -2.250, 1200.000)"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatRecord output missing %q:\n%s", want, out)
		}
	}

	imuOut := FormatRecord(sampleIMU(1))
	for _, want := range []string{"Mag:", "Accel:", "Gyro:", "Horizon: 123.500"} {
		if !strings.Contains(imuOut, want) {
			t.Errorf("IMU output missing %q:\n%s", want, imuOut)
		}
	}

	envOut := FormatRecord(sampleEnv(1))
	for _, want := range []string{"Temperature: 21.50", "Humidity:    45.25%", "Pressure:    1013.25"} {
		if !strings.Contains(envOut, want) {
			t.Errorf("Env output missing %q:\n%s", want, envOut)
		}
	}
}

func TestFormatRejection(t *testing.T) {
	tests := []struct {
		rej  Rejection
		want string
	}{
		{Rejection{Kind: KindPending, Start: 5, Err: fmt.Errorf("%w: size=1", ErrHeaderMismatch)}, "HEADER HEADER MISMATCH @5"},
		{Rejection{Kind: KindIMU, Start: 6, Err: ErrChecksumMismatch}, "IMU CRC MISMATCH @6"},
		{Rejection{Kind: KindEnv, Start: 7, Err: ErrStale}, "ENV STALE @7"},
	}
	for _, tt := range tests {
		if got := FormatRejection(tt.rej); !strings.HasPrefix(got, tt.want) {
			t.Errorf("FormatRejection = %q, want prefix %q", got, tt.want)
		}
	}
}

// ============================================================
// Status / Rejection Tests
// ============================================================

func TestStatusString(t *testing.T) {
	for status, want := range map[Status]string{
		StatusNotRead:  "NOT_READ",
		StatusOK:       "OK",
		StatusRejected: "REJECTED",
		Status(9):      "UNKNOWN",
	} {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(status), got, want)
		}
	}
}

func TestRejection_Unwrap(t *testing.T) {
	var err error = Rejection{Kind: KindGPS, Start: 3, Err: fmt.Errorf("%w: expected 0x1, got 0x2", ErrChecksumMismatch)}

	if !errors.Is(err, ErrChecksumMismatch) {
		t.Error("Rejection should unwrap to ErrChecksumMismatch")
	}
	if !IsRejection(err) {
		t.Error("IsRejection should accept a checksum mismatch")
	}
	if IsRejection(ErrIncomplete) {
		t.Error("ErrIncomplete is not a rejection")
	}
	if !strings.Contains(err.Error(), "GPS @3") {
		t.Errorf("Error() = %q", err.Error())
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Counters(t *testing.T) {
	s := NewStatistics()
	s.addByte(true)
	s.addByte(false)
	s.addRecord(KindIMU)
	s.addRecord(KindIMU)
	s.addRecord(KindEnv)
	s.addRejection(Rejection{Err: ErrHeaderMismatch})
	s.addRejection(Rejection{Err: fmt.Errorf("%w: x", ErrChecksumMismatch)})
	s.addRejection(Rejection{Err: ErrStale})
	s.AddAnomalies(2)
	s.AddAnomalies(-1)

	snap := s.Snapshot()
	if snap.Bytes != 2 || snap.Sentinels != 1 {
		t.Errorf("Bytes=%d Sentinels=%d, want 2 1", snap.Bytes, snap.Sentinels)
	}
	if snap.Records[KindIMU] != 2 || snap.TotalRecords() != 3 {
		t.Errorf("Records = %v", snap.Records)
	}
	if snap.TotalErrors() != 3 {
		t.Errorf("TotalErrors = %d, want 3", snap.TotalErrors())
	}
	if snap.Anomalies != 2 {
		t.Errorf("Anomalies = %d, want 2", snap.Anomalies)
	}
	if snap.Last.IsZero() {
		t.Error("Last should be set after a record")
	}

	// Snapshot maps are copies
	snap.Records[KindGPS] = 100
	if s.Snapshot().Records[KindGPS] != 0 {
		t.Error("Snapshot shares its records map")
	}

	summary := s.String()
	for _, want := range []string{"Records:", "IMU", "CRC Errors:", "Stale Packets:", "Anomalous Values:"} {
		if !strings.Contains(summary, want) {
			t.Errorf("String() missing %q:\n%s", want, summary)
		}
	}

	s.Reset()
	snap = s.Snapshot()
	if snap.Bytes != 0 || snap.TotalRecords() != 0 || snap.TotalErrors() != 0 || !snap.Last.IsZero() {
		t.Errorf("Reset left counters: %+v", snap)
	}
}
