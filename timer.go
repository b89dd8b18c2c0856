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
	"time"
)

const defaultTimerResolution = 10 * time.Millisecond

// timerNode is one pending callback in the expiration-ordered list.
type timerNode struct {
	when time.Time
	fn   func()
	next *timerNode
}

// TimerList schedules one-shot callbacks on a single shared tick loop.
// Pending timers live in a singly-linked list kept sorted by expiration,
// so firing due timers is a walk from the head. Insertion is O(n), which
// is the right trade for the small timer counts this is meant for.
//
// TimerList is an ordinary mutex-guarded utility, not a lock-free one;
// it may be used from any number of goroutines.
type TimerList struct {
	mu   sync.Mutex
	head *timerNode
	n    int
}

// NewTimerList returns an empty timer list. Nothing fires until Run is
// started.
func NewTimerList() *TimerList {
	return &TimerList{}
}

// Add schedules fn to run once, d from now. Non-positive d fires on the
// next tick.
func (l *TimerList) Add(d time.Duration, fn func()) {
	l.AddAt(time.Now().Add(d), fn)
}

// AddAt schedules fn to run once at t, or on the next tick if t has
// already passed.
func (l *TimerList) AddAt(t time.Time, fn func()) {
	node := &timerNode{when: t, fn: fn}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.head == nil || t.Before(l.head.when) {
		node.next = l.head
		l.head = node
	} else {
		cur := l.head
		for cur.next != nil && cur.next.when.Before(t) {
			cur = cur.next
		}
		node.next = cur.next
		cur.next = node
	}
	l.n++
}

// Len returns the number of timers that have not fired yet.
func (l *TimerList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// Run ticks at the given resolution and fires due callbacks until ctx is
// done. Callbacks run on Run's goroutine, outside the list lock; a slow
// callback delays later timers, not Add. Resolution <= 0 uses a 10ms
// default.
func (l *TimerList) Run(ctx context.Context, resolution time.Duration) {
	if resolution <= 0 {
		resolution = defaultTimerResolution
	}
	ticker := time.NewTicker(resolution)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, fn := range l.expire(now) {
				fn()
			}
		}
	}
}

// expire unlinks every timer due at now and returns its callbacks in
// firing order.
func (l *TimerList) expire(now time.Time) []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var due []func()
	for l.head != nil && !l.head.when.After(now) {
		due = append(due, l.head.fn)
		l.head = l.head.next
		l.n--
	}
	return due
}
