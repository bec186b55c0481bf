// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sonde

import "sync"

// Latest is a single-slot mailbox holding the most recent value.
// The whole value is swapped under the lock, so readers never observe a
// partially updated record.
type Latest[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
	dirty bool
}

// Put replaces the held value and marks it unread
func (l *Latest[T]) Put(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
	l.set = true
	l.dirty = true
}

// Take returns the held value and whether it changed since the last Take,
// then clears the changed flag
func (l *Latest[T]) Take() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dirty := l.dirty
	l.dirty = false
	return l.value, dirty
}

// Peek returns the held value and whether any value was ever put,
// leaving the changed flag alone
func (l *Latest[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.set
}

// Mailboxes holds the latest record of each built-in kind, each behind its
// own lock. It implements Sink.
type Mailboxes struct {
	GPS Latest[GPS]
	IMU Latest[IMU]
	Env Latest[Env]
}

// NewMailboxes creates empty mailboxes
func NewMailboxes() *Mailboxes {
	return &Mailboxes{}
}

// Publish implements Sink. Records of other kinds are ignored.
func (m *Mailboxes) Publish(r Record) {
	switch v := r.(type) {
	case GPS:
		m.GPS.Put(v)
	case IMU:
		m.IMU.Put(v)
	case Env:
		m.Env.Put(v)
	}
}
