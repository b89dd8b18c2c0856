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

import (
	"sync"

	"github.com/pkg/errors"
)

// BroadcastConfig configures a Broadcaster.
type BroadcastConfig struct {
	// BufferItems is the capacity of each subscriber's private ring.
	// Defaults to 64 when zero.
	BufferItems int
	// Metrics enables delivery statistics (with some overhead).
	Metrics bool
}

const defaultBufferItems = 64

// Broadcaster fans values from a single publisher goroutine out to any
// number of subscribers. Each subscriber owns a private SPSC ring: the
// publisher is the one producer for every ring and the subscriber is the
// one consumer of its own, so the fan-out needs no locks on the hot path.
// A slow subscriber only loses its own deliveries; it cannot stall the
// publisher or its peers (lossy fan-out).
//
// The subscriber list itself is guarded by a mutex since Subscribe and
// Close are rare control-plane operations.
type Broadcaster[T any] struct {
	// Metrics delivery statistics, nil unless BroadcastConfig.Metrics.
	Metrics *Metrics

	bufferItems int

	mu     sync.RWMutex
	subs   []*Subscription[T]
	nextID uint64
	closed bool
}

// Subscription is one consumer's handle on a Broadcaster. Pop must only
// be called from a single goroutine.
type Subscription[T any] struct {
	id   uint64
	ring *RingBuffer[T]
	b    *Broadcaster[T]
	done chan struct{}
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster[T any](cfg *BroadcastConfig) (*Broadcaster[T], error) {
	if cfg == nil {
		cfg = &BroadcastConfig{}
	}
	items := cfg.BufferItems
	if items == 0 {
		items = defaultBufferItems
	}
	if items < 1 {
		return nil, errors.Errorf("broadcaster: BufferItems must be >= 1, got %d", items)
	}
	b := &Broadcaster[T]{bufferItems: items}
	if cfg.Metrics {
		b.Metrics = newMetrics()
	}
	return b, nil
}

// Subscribe registers a new consumer and returns its handle. Returns an
// error on a closed broadcaster. Values published before the subscription
// existed are not replayed.
func (b *Broadcaster[T]) Subscribe() (*Subscription[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("broadcaster: subscribe on closed broadcaster")
	}
	ring, err := NewRingBuffer[T](b.bufferItems)
	if err != nil {
		return nil, err
	}
	s := &Subscription[T]{
		id:   b.nextID,
		ring: ring,
		b:    b,
		done: make(chan struct{}),
	}
	b.nextID++
	b.subs = append(b.subs, s)
	return s, nil
}

// Publish offers v to every current subscriber and returns how many
// accepted it. Subscribers whose rings are full miss this value. Publish
// must only be called from a single publisher goroutine. Publishing on a
// closed broadcaster delivers to nobody.
func (b *Broadcaster[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	n := 0
	for _, s := range b.subs {
		if s.ring.Push(v) {
			b.Metrics.add(delivered, s.id, 1)
			n++
		} else {
			b.Metrics.add(dropped, s.id, 1)
		}
	}
	return n
}

// Subscribers returns the current number of subscriptions.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops the broadcaster: every subscription's Done channel is
// closed and later Publish and Subscribe calls fail. Values already
// sitting in subscriber rings remain poppable, so consumers can drain
// after observing Done.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.done)
	}
}

// Pop removes and returns the oldest value delivered to this subscriber.
// The second result is false when its ring is empty.
func (s *Subscription[T]) Pop() (T, bool) {
	v, ok := s.ring.Pop()
	if ok {
		s.b.Metrics.add(received, s.id, 1)
	} else {
		s.b.Metrics.add(drainMiss, s.id, 1)
	}
	return v, ok
}

// Len returns an advisory count of undelivered values in this
// subscriber's ring.
func (s *Subscription[T]) Len() int {
	return s.ring.Len()
}

// Done is closed when the broadcaster shuts down. The subscriber should
// drain its ring after Done fires; nothing new will arrive.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Cancel removes the subscription from the broadcaster. The publisher
// stops delivering to it on the next Publish. Cancel on a closed
// broadcaster is a no-op.
func (s *Subscription[T]) Cancel() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.closed {
		return
	}
	for i, sub := range s.b.subs {
		if sub == s {
			s.b.subs = append(s.b.subs[:i], s.b.subs[i+1:]...)
			close(s.done)
			return
		}
	}
}
