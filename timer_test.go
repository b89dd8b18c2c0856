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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// expire is where the ordering lives; exercise it directly without a
// tick loop.
func TestTimerListExpireOrder(t *testing.T) {
	l := NewTimerList()
	base := time.Now()
	var fired []int
	// Insert out of order on purpose.
	l.AddAt(base.Add(30*time.Millisecond), func() { fired = append(fired, 3) })
	l.AddAt(base.Add(10*time.Millisecond), func() { fired = append(fired, 1) })
	l.AddAt(base.Add(20*time.Millisecond), func() { fired = append(fired, 2) })
	l.AddAt(base.Add(40*time.Millisecond), func() { fired = append(fired, 4) })
	require.Equal(t, 4, l.Len())

	for _, fn := range l.expire(base.Add(25 * time.Millisecond)) {
		fn()
	}
	require.Equal(t, []int{1, 2}, fired)
	require.Equal(t, 2, l.Len())

	for _, fn := range l.expire(base.Add(time.Second)) {
		fn()
	}
	require.Equal(t, []int{1, 2, 3, 4}, fired)
	require.Equal(t, 0, l.Len())
}

func TestTimerListExpireExactBoundary(t *testing.T) {
	l := NewTimerList()
	at := time.Now()
	l.AddAt(at, func() {})
	// A timer due exactly at now fires.
	require.Len(t, l.expire(at), 1)
}

func TestTimerListRun(t *testing.T) {
	l := NewTimerList()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var fired []string
	done := make(chan struct{})
	l.Add(5*time.Millisecond, func() {
		mu.Lock()
		fired = append(fired, "first")
		mu.Unlock()
	})
	l.Add(25*time.Millisecond, func() {
		mu.Lock()
		fired = append(fired, "second")
		mu.Unlock()
		close(done)
	})

	go l.Run(ctx, time.Millisecond)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timers did not fire")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, fired)
	require.Equal(t, 0, l.Len())
}

func TestTimerListRunStops(t *testing.T) {
	l := NewTimerList()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond)
		close(stopped)
	}()
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return on ctx cancel")
	}
}

// Timers added from a callback still fire.
func TestTimerListAddDuringRun(t *testing.T) {
	l := NewTimerList()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	l.Add(2*time.Millisecond, func() {
		l.Add(2*time.Millisecond, func() { close(done) })
	})
	go l.Run(ctx, time.Millisecond)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("rescheduled timer did not fire")
	}
}
