// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import "fmt"

// Definition describes one packet type on the link
type Definition struct {
	Kind Kind
	Name string
	Tag  byte
	Size int // declared size: type tag plus payload, excluding the CRC

	// Decode builds the record from a CRC-checked window (tag first)
	Decode func(h Header, window []byte) Record
	// Encode returns the payload bytes that follow the tag (Size-1 bytes)
	Encode func(r Record) ([]byte, error)
}

// Registry maps header type tags to packet definitions
type Registry struct {
	defs  []Definition
	byTag map[byte]int
}

// NewRegistry creates a registry holding the given definitions
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{byTag: make(map[byte]int)}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry with the GPS, IMU and Env definitions
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Definition{Kind: KindGPS, Name: "GPS", Tag: TagGPS, Size: SizeGPS, Decode: decodeGPS, Encode: encodeGPS},
		Definition{Kind: KindIMU, Name: "IMU", Tag: TagIMU, Size: SizeIMU, Decode: decodeIMU, Encode: encodeIMU},
		Definition{Kind: KindEnv, Name: "ENV", Tag: TagEnv, Size: SizeEnv, Decode: decodeEnv, Encode: encodeEnv},
	)
	if err != nil {
		panic(fmt.Sprintf("sonde: default registry: %v", err))
	}
	return r
}

// Register adds a definition. Tags and kinds must be unique and the window
// must fit in the ring buffer.
func (r *Registry) Register(def Definition) error {
	if def.Kind == KindPending {
		return fmt.Errorf("definition %q: kind %d is reserved", def.Name, def.Kind)
	}
	if def.Decode == nil {
		return fmt.Errorf("definition %q: missing decoder", def.Name)
	}
	if def.Size < 1 || def.Size > 0xFF {
		return fmt.Errorf("definition %q: invalid size %d (valid 1-255)", def.Name, def.Size)
	}
	if def.Size+CRCSize > RingCapacity {
		return fmt.Errorf("definition %q: window of %d bytes exceeds ring capacity %d", def.Name, def.Size+CRCSize, RingCapacity)
	}
	if _, ok := r.byTag[def.Tag]; ok {
		return fmt.Errorf("definition %q: tag 0x%02X already registered", def.Name, def.Tag)
	}
	if _, ok := r.ByKind(def.Kind); ok {
		return fmt.Errorf("definition %q: kind %d already registered", def.Name, def.Kind)
	}
	r.byTag[def.Tag] = len(r.defs)
	r.defs = append(r.defs, def)
	return nil
}

// Lookup returns the definition registered for a type tag
func (r *Registry) Lookup(tag byte) (Definition, bool) {
	idx, ok := r.byTag[tag]
	if !ok {
		return Definition{}, false
	}
	return r.defs[idx], true
}

// ByKind returns the definition registered for a kind
func (r *Registry) ByKind(kind Kind) (Definition, bool) {
	for _, def := range r.defs {
		if def.Kind == kind {
			return def, true
		}
	}
	return Definition{}, false
}

// Definitions returns the definitions in registration order
func (r *Registry) Definitions() []Definition {
	return append([]Definition(nil), r.defs...)
}

// MaxWindow returns the longest typed packet window of any definition
func (r *Registry) MaxWindow() int {
	longest := 0
	for _, def := range r.defs {
		if n := def.Size + CRCSize; n > longest {
			longest = n
		}
	}
	return longest
}
