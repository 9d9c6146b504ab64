// fedicore is the ActivityPub inbox/collection dispatch core of a
// federation server framework.
// Copyright (C) 2024 The fedicore Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package idempotency provides reference fedicore.Store implementations:
// an in-memory map for tests and single-process deployments, and a
// Postgres-backed store for everything else.
package idempotency

import (
	"context"
	"strings"
	"sync"
	"time"
)

func joinKey(key []string) string {
	return strings.Join(key, "\x00")
}

// Memory is a map-backed fedicore.Store. Expired entries are pruned lazily,
// on the next Get or Set that happens to touch them; there is no background
// sweeper.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   bool
	expires time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Get reports whether key is recorded and not yet expired.
func (m *Memory) Get(c context.Context, key []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := joinKey(key)
	e, ok := m.entries[k]
	if !ok {
		return false, nil
	}
	if time.Now().After(e.expires) {
		delete(m.entries, k)
		return false, nil
	}
	return e.value, nil
}

// Set records value for key with the given ttl.
func (m *Memory) Set(c context.Context, key []string, value bool, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[joinKey(key)] = memoryEntry{value: value, expires: time.Now().Add(ttl)}
	return nil
}
