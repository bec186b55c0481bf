// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"errors"
	"fmt"
)

// FormatKind returns the human-readable name for a packet kind
func FormatKind(kind Kind) string {
	switch kind {
	case KindPending:
		return "HEADER"
	case KindGPS:
		return "GPS"
	case KindIMU:
		return "IMU"
	case KindEnv:
		return "ENV"
	default:
		return fmt.Sprintf("KIND_%d", int(kind))
	}
}

// FormatVec formats a vector as "(x, y, z)"
func FormatVec(v Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// FormatRecord formats a record into a human-readable string
func FormatRecord(r Record) string {
	meta := r.Meta()
	result := fmt.Sprintf("[%s] %s seq=%d @%d\n", meta.Time.Format("15:04:05.000"), FormatKind(r.Kind()), meta.Sequence, meta.Start)

	switch v := r.(type) {
	case GPS:
		result += fmt.Sprintf("  Position: %s\n", FormatVec(v.Position))
	case IMU:
		result += fmt.Sprintf("  Mag:     %s\n", FormatVec(v.Mag))
		result += fmt.Sprintf("  Accel:   %s\n", FormatVec(v.Accel))
		result += fmt.Sprintf("  Gyro:    %s\n", FormatVec(v.Gyro))
		result += fmt.Sprintf("  Horizon: %.3f\n", v.Horizon)
	case Env:
		result += fmt.Sprintf("  Temperature: %.2f°C\n", v.Temperature)
		result += fmt.Sprintf("  Humidity:    %.2f%%\n", v.Humidity)
		result += fmt.Sprintf("  Pressure:    %.2f\n", v.Pressure)
	default:
		result += fmt.Sprintf("  %+v\n", r)
	}

	return result
}

// FormatRejection formats a rejected packet into a one-line summary
func FormatRejection(r Rejection) string {
	reason := "REJECTED"
	switch {
	case errors.Is(r.Err, ErrHeaderMismatch):
		reason = "HEADER MISMATCH"
	case errors.Is(r.Err, ErrChecksumMismatch):
		reason = "CRC MISMATCH"
	case errors.Is(r.Err, ErrStale):
		reason = "STALE"
	}
	return fmt.Sprintf("%s %s @%d: %v\n", FormatKind(r.Kind), reason, r.Start, r.Err)
}
