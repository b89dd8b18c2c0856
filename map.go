/*
 * Copyright 2025 Doppio Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package doppio

const (
	minTableSize  = 8
	maxLoadFactor = 0.75
)

// mapSlot holds one entry. key is the primary hash of the original key,
// conflict disambiguates primary-hash collisions.
type mapSlot[V any] struct {
	key      uint64
	conflict uint64
	value    V
	used     bool
}

// Map is a resizable open-addressing hash table with linear probing.
// Keys go through KeyToHash, so anything KeyToHash accepts can be a key.
// The table doubles whenever the load factor would reach 0.75, which
// also guarantees every probe sequence terminates at an empty slot.
//
// Map is not safe for concurrent use; callers that share one across
// goroutines wrap it in their own lock.
type Map[V any] struct {
	slots []mapSlot[V]
	n     int
}

// NewMap returns a map with at least initialSize slots. Sizes below 8
// are rounded up to 8.
func NewMap[V any](initialSize int) *Map[V] {
	if initialSize < minTableSize {
		initialSize = minTableSize
	}
	return &Map[V]{slots: make([]mapSlot[V], initialSize)}
}

// Set adds the key-value pair, or replaces the value if the key is
// already present.
func (m *Map[V]) Set(key interface{}, value V) {
	if float64(m.n+1) >= maxLoadFactor*float64(len(m.slots)) {
		m.rehash()
	}
	k, c := KeyToHash(key)
	m.setHashed(k, c, value)
}

func (m *Map[V]) setHashed(k, c uint64, value V) {
	idx := k % uint64(len(m.slots))
	for m.slots[idx].used {
		if m.slots[idx].key == k && m.slots[idx].conflict == c {
			m.slots[idx].value = value
			return
		}
		idx = (idx + 1) % uint64(len(m.slots))
	}
	m.slots[idx] = mapSlot[V]{key: k, conflict: c, value: value, used: true}
	m.n++
}

// Get returns the value stored for key and whether it was present.
func (m *Map[V]) Get(key interface{}) (V, bool) {
	k, c := KeyToHash(key)
	idx := k % uint64(len(m.slots))
	for m.slots[idx].used {
		if m.slots[idx].key == k && m.slots[idx].conflict == c {
			return m.slots[idx].value, true
		}
		idx = (idx + 1) % uint64(len(m.slots))
	}
	var zero V
	return zero, false
}

// Del removes key and reports whether it was present. The probe cluster
// following the vacated slot is re-inserted so that lookups never stop
// early at the hole.
func (m *Map[V]) Del(key interface{}) bool {
	k, c := KeyToHash(key)
	idx := k % uint64(len(m.slots))
	for m.slots[idx].used {
		if m.slots[idx].key == k && m.slots[idx].conflict == c {
			m.slots[idx] = mapSlot[V]{}
			m.n--
			m.reinsertCluster((idx + 1) % uint64(len(m.slots)))
			return true
		}
		idx = (idx + 1) % uint64(len(m.slots))
	}
	return false
}

// reinsertCluster lifts every entry from idx up to the next empty slot
// and places it again, closing the gap a deletion left behind.
func (m *Map[V]) reinsertCluster(idx uint64) {
	for m.slots[idx].used {
		s := m.slots[idx]
		m.slots[idx] = mapSlot[V]{}
		m.n--
		m.setHashed(s.key, s.conflict, s.value)
		idx = (idx + 1) % uint64(len(m.slots))
	}
}

// Len returns the number of stored entries.
func (m *Map[V]) Len() int {
	return m.n
}

// Size returns the current number of slots in the table.
func (m *Map[V]) Size() int {
	return len(m.slots)
}

// Clear removes all entries, keeping the current table size.
func (m *Map[V]) Clear() {
	for i := range m.slots {
		m.slots[i] = mapSlot[V]{}
	}
	m.n = 0
}

func (m *Map[V]) rehash() {
	old := m.slots
	m.slots = make([]mapSlot[V], len(old)*2)
	m.n = 0
	for i := range old {
		if old[i].used {
			m.setHashed(old[i].key, old[i].conflict, old[i].value)
		}
	}
}
