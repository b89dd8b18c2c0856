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

// Doppio is a small toolkit of bounded, allocation-free concurrency
// primitives built around a lock-free single-producer/single-consumer
// ring buffer.
package doppio

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// falseSharingRange keeps the two cursors on separate cache lines so the
// producer and consumer cores don't invalidate each other on every store.
const falseSharingRange = 64

// RingBuffer is a bounded lock-free queue for exactly one producer
// goroutine and exactly one consumer goroutine.
//
// The producer owns head (index of the next slot it will write), the
// consumer owns tail (index of the next slot it will read). Each side
// mutates only its own cursor and reads the other's through an atomic
// load, so the Store on one side synchronizes-with the Load on the other
// and the slot contents are published without any lock. One slot is kept
// permanently empty: head == tail means empty, head+1 == tail means full,
// and no shared element counter is needed.
//
// Push and Pop never block, never spin and never allocate. Calling Push
// from more than one goroutine (or Pop from more than one goroutine)
// breaks the contract and the results are undefined.
type RingBuffer[T any] struct {
	slots []T
	size  uint64 // len(slots), logical capacity + 1

	_    [falseSharingRange]byte
	head atomic.Uint64 // written by the producer only
	_    [falseSharingRange]byte
	tail atomic.Uint64 // written by the consumer only
	_    [falseSharingRange]byte
}

// NewRingBuffer returns a ring buffer that holds up to capacity elements.
// One extra slot is allocated internally to tell the full state apart
// from the empty one.
func NewRingBuffer[T any](capacity int) (*RingBuffer[T], error) {
	if capacity < 1 {
		return nil, errors.Errorf("ringbuffer: capacity must be >= 1, got %d", capacity)
	}
	return &RingBuffer[T]{
		slots: make([]T, capacity+1),
		size:  uint64(capacity + 1),
	}, nil
}

// Push hands v to the consumer. It returns false, without touching the
// buffer, when the ring is full; a full ring is normal backpressure, not
// an error, and the caller decides whether to drop, retry or back off.
//
// Must only ever be called from the single producer goroutine.
func (r *RingBuffer[T]) Push(v T) bool {
	head := r.head.Load() // only we store head, any view of it is current
	next := head + 1
	if next == r.size {
		next = 0
	}
	// The tail load acquires the consumer's latest release, so a slot the
	// consumer has freed is observed free before we overwrite it.
	if next == r.tail.Load() {
		return false
	}
	r.slots[head] = v
	// Publishing head releases the slot write above to the consumer's
	// acquiring load in Pop.
	r.head.Store(next)
	return true
}

// Pop removes and returns the oldest element. The second result is false,
// and the buffer is untouched, when the ring is empty.
//
// Must only ever be called from the single consumer goroutine.
func (r *RingBuffer[T]) Pop() (T, bool) {
	var zero T
	tail := r.tail.Load() // only we store tail
	if tail == r.head.Load() {
		return zero, false
	}
	v := r.slots[tail]
	r.slots[tail] = zero // drop the ring's reference, ownership moves out
	next := tail + 1
	if next == r.size {
		next = 0
	}
	r.tail.Store(next)
	return v, true
}

// IsEmpty reports whether the ring currently holds no elements. Under
// concurrent use the answer may be stale by the time the caller acts on
// it; treat it as a hint except on a quiesced buffer.
func (r *RingBuffer[T]) IsEmpty() bool {
	return r.head.Load() == r.tail.Load()
}

// IsFull reports whether the ring currently has no free slot. Advisory
// under concurrent use, same as IsEmpty.
func (r *RingBuffer[T]) IsFull() bool {
	next := r.head.Load() + 1
	if next == r.size {
		next = 0
	}
	return next == r.tail.Load()
}

// Cap returns the number of elements the ring can hold.
func (r *RingBuffer[T]) Cap() int {
	return int(r.size - 1)
}

// Len returns an advisory count of elements currently buffered.
func (r *RingBuffer[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if head >= tail {
		return int(head - tail)
	}
	return int(head + r.size - tail)
}
