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
	"context"
	"runtime"
	"time"
)

const (
	// Rounds of cooperative yielding before the waiter starts sleeping.
	waiterSpinRounds = 64
	waiterSleep      = 50 * time.Microsecond
)

// Waiter adapts a RingBuffer's non-blocking Push and Pop into blocking
// calls by retrying with a spin-then-yield-then-sleep backoff. The
// backoff lives entirely out here; the ring itself stays wait-free.
//
// A Waiter is bound to one side of the ring: the producer goroutine may
// use Push, the consumer goroutine may use Pop. The SPSC discipline of
// the underlying ring still applies.
type Waiter[T any] struct {
	ring *RingBuffer[T]
}

// NewWaiter wraps ring with blocking push and pop.
func NewWaiter[T any](ring *RingBuffer[T]) *Waiter[T] {
	return &Waiter[T]{ring: ring}
}

// Push blocks until v is accepted or ctx is done, in which case it
// returns the context's error and v is not enqueued.
func (w *Waiter[T]) Push(ctx context.Context, v T) error {
	for spins := 0; ; spins++ {
		if w.ring.Push(v) {
			return nil
		}
		if err := waiterPause(ctx, spins); err != nil {
			return err
		}
	}
}

// Pop blocks until an element is available or ctx is done, in which case
// it returns the context's error.
func (w *Waiter[T]) Pop(ctx context.Context) (T, error) {
	for spins := 0; ; spins++ {
		if v, ok := w.ring.Pop(); ok {
			return v, nil
		}
		if err := waiterPause(ctx, spins); err != nil {
			var zero T
			return zero, err
		}
	}
}

func waiterPause(ctx context.Context, spins int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if spins < waiterSpinRounds {
		runtime.Gosched()
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(waiterSleep):
		return nil
	}
}
