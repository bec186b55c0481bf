// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CBOR record field keys: [kind, {key: value}]
const (
	cborKeySequence = 0
	cborKeyStart    = 1
	cborKeyTime     = 2 // unix nanoseconds

	cborKeyPosition = 10 // GPS

	cborKeyMag     = 10 // IMU
	cborKeyAccel   = 11
	cborKeyGyro    = 12
	cborKeyHorizon = 13

	cborKeyTemperature = 10 // Env
	cborKeyHumidity    = 11
	cborKeyPressure    = 12
)

// MarshalRecordCBOR encodes a record as a CBOR message [kind, payload_map]
func MarshalRecordCBOR(r Record) ([]byte, error) {
	meta := r.Meta()
	payload := map[int]interface{}{
		cborKeySequence: uint64(meta.Sequence),
		cborKeyStart:    meta.Start,
	}
	if !meta.Time.IsZero() {
		payload[cborKeyTime] = meta.Time.UnixNano()
	}

	switch v := r.(type) {
	case GPS:
		payload[cborKeyPosition] = vecArray(v.Position)
	case IMU:
		payload[cborKeyMag] = vecArray(v.Mag)
		payload[cborKeyAccel] = vecArray(v.Accel)
		payload[cborKeyGyro] = vecArray(v.Gyro)
		payload[cborKeyHorizon] = v.Horizon
	case Env:
		payload[cborKeyTemperature] = v.Temperature
		payload[cborKeyHumidity] = v.Humidity
		payload[cborKeyPressure] = v.Pressure
	default:
		return nil, fmt.Errorf("no CBOR mapping for %T", r)
	}

	data, err := cbor.Marshal([]interface{}{uint64(r.Kind()), payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR record: %w", err)
	}
	return data, nil
}

// ParseRecordCBOR decodes a CBOR message produced by MarshalRecordCBOR
func ParseRecordCBOR(data []byte) (Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty CBOR record")
	}

	var msg []interface{}
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	if len(msg) != 2 {
		return nil, fmt.Errorf("expected 2-element array, got %d elements", len(msg))
	}

	kindValue, ok := msg[0].(uint64)
	if !ok {
		return nil, fmt.Errorf("expected uint for record kind, got %T", msg[0])
	}

	raw, ok := msg[1].(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("expected map for record payload, got %T", msg[1])
	}
	payload := make(map[int]interface{}, len(raw))
	for key, val := range raw {
		switch k := key.(type) {
		case uint64:
			payload[int(k)] = val
		case int64:
			payload[int(k)] = val
		default:
			return nil, fmt.Errorf("expected integer map key, got %T", key)
		}
	}

	header, err := parseHeaderMap(payload)
	if err != nil {
		return nil, err
	}

	switch Kind(kindValue) {
	case KindGPS:
		pos, err := getMapVec(payload, cborKeyPosition)
		if err != nil {
			return nil, err
		}
		return GPS{Header: header, Position: pos}, nil

	case KindIMU:
		var rec IMU
		rec.Header = header
		if rec.Mag, err = getMapVec(payload, cborKeyMag); err != nil {
			return nil, err
		}
		if rec.Accel, err = getMapVec(payload, cborKeyAccel); err != nil {
			return nil, err
		}
		if rec.Gyro, err = getMapVec(payload, cborKeyGyro); err != nil {
			return nil, err
		}
		if rec.Horizon, err = getMapFloat32(payload, cborKeyHorizon); err != nil {
			return nil, err
		}
		return rec, nil

	case KindEnv:
		var rec Env
		rec.Header = header
		if rec.Temperature, err = getMapFloat32(payload, cborKeyTemperature); err != nil {
			return nil, err
		}
		if rec.Humidity, err = getMapFloat32(payload, cborKeyHumidity); err != nil {
			return nil, err
		}
		if rec.Pressure, err = getMapFloat32(payload, cborKeyPressure); err != nil {
			return nil, err
		}
		return rec, nil
	}

	return nil, fmt.Errorf("unknown record kind %d", kindValue)
}

func vecArray(v Vec3) []float32 {
	return []float32{v.X, v.Y, v.Z}
}

func parseHeaderMap(m map[int]interface{}) (Header, error) {
	var h Header

	seq, ok := m[cborKeySequence].(uint64)
	if !ok || seq > 0xFF {
		return h, fmt.Errorf("missing or invalid sequence")
	}
	h.Sequence = uint8(seq)

	start, ok := m[cborKeyStart].(uint64)
	if !ok {
		return h, fmt.Errorf("missing or invalid start")
	}
	h.Start = start

	switch ts := m[cborKeyTime].(type) {
	case nil:
	case uint64:
		h.Time = time.Unix(0, int64(ts))
	case int64:
		h.Time = time.Unix(0, ts)
	default:
		return h, fmt.Errorf("invalid time %T", ts)
	}

	return h, nil
}

func getMapFloat32(m map[int]interface{}, key int) (float32, error) {
	switch v := m[key].(type) {
	case float64:
		return float32(v), nil
	case float32:
		return v, nil
	}
	return 0, fmt.Errorf("missing or invalid float at key %d", key)
}

func getMapVec(m map[int]interface{}, key int) (Vec3, error) {
	arr, ok := m[key].([]interface{})
	if !ok || len(arr) != 3 {
		return Vec3{}, fmt.Errorf("missing or invalid vector at key %d", key)
	}
	var xyz [3]float32
	for i, item := range arr {
		switch f := item.(type) {
		case float64:
			xyz[i] = float32(f)
		case float32:
			xyz[i] = f
		default:
			return Vec3{}, fmt.Errorf("invalid vector element %T at key %d", item, key)
		}
	}
	return Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
