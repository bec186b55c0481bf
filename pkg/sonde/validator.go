// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"fmt"
	"math"
)

// AnomalyType represents different kinds of implausible record values
type AnomalyType int

const (
	AnomalyNonFinite AnomalyType = iota
	AnomalyInvalidTemp
	AnomalyInvalidHumidity
	AnomalyInvalidPressure
)

// Plausible environmental ranges
const (
	minTemperature = -80.0
	maxTemperature = 125.0
	minHumidity    = 0.0
	maxHumidity    = 100.0
)

// ValidationError represents an implausible value in a CRC-valid record
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateRecord checks decoded values for anomalies.
// Returns a slice of validation errors (empty if the record is plausible).
func ValidateRecord(r Record) []ValidationError {
	switch v := r.(type) {
	case GPS:
		return validateVec("position", v.Position)
	case IMU:
		errors := []ValidationError{}
		errors = append(errors, validateVec("mag", v.Mag)...)
		errors = append(errors, validateVec("accel", v.Accel)...)
		errors = append(errors, validateVec("gyro", v.Gyro)...)
		errors = append(errors, validateFinite("horizon", v.Horizon)...)
		return errors
	case Env:
		return validateEnv(v)
	}
	return []ValidationError{}
}

func validateFinite(field string, value float32) []ValidationError {
	f := float64(value)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []ValidationError{{
			Type:    AnomalyNonFinite,
			Message: fmt.Sprintf("%s is not finite (%v)", field, value),
			Details: map[string]interface{}{"field": field, "value": value},
		}}
	}
	return nil
}

func validateVec(field string, v Vec3) []ValidationError {
	errors := []ValidationError{}
	errors = append(errors, validateFinite(field+".x", v.X)...)
	errors = append(errors, validateFinite(field+".y", v.Y)...)
	errors = append(errors, validateFinite(field+".z", v.Z)...)
	return errors
}

func validateEnv(e Env) []ValidationError {
	errors := []ValidationError{}

	errors = append(errors, validateFinite("temperature", e.Temperature)...)
	errors = append(errors, validateFinite("humidity", e.Humidity)...)
	errors = append(errors, validateFinite("pressure", e.Pressure)...)
	if len(errors) > 0 {
		return errors
	}

	if e.Temperature < minTemperature || e.Temperature > maxTemperature {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidTemp,
			Message: fmt.Sprintf("Temperature out of range (%.1f°C, valid: %.0f to %.0f°C)", e.Temperature, minTemperature, maxTemperature),
			Details: map[string]interface{}{"value": e.Temperature, "min": minTemperature, "max": maxTemperature},
		})
	}

	if e.Humidity < minHumidity || e.Humidity > maxHumidity {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidHumidity,
			Message: fmt.Sprintf("Humidity out of range (%.1f%%, valid: 0 to 100%%)", e.Humidity),
			Details: map[string]interface{}{"value": e.Humidity, "min": minHumidity, "max": maxHumidity},
		})
	}

	if e.Pressure <= 0 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidPressure,
			Message: fmt.Sprintf("Pressure not positive (%.1f)", e.Pressure),
			Details: map[string]interface{}{"value": e.Pressure},
		})
	}

	return errors
}
