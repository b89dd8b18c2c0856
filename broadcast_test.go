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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroadcasterBadConfig(t *testing.T) {
	b, err := NewBroadcaster[int](&BroadcastConfig{BufferItems: -1})
	require.Error(t, err)
	require.Nil(t, b)
}

func TestBroadcasterDefaults(t *testing.T) {
	b, err := NewBroadcaster[int](nil)
	require.NoError(t, err)
	require.Nil(t, b.Metrics)
	sub, err := b.Subscribe()
	require.NoError(t, err)
	require.Equal(t, defaultBufferItems, sub.ring.Cap())
}

func TestBroadcasterFanOut(t *testing.T) {
	b, err := NewBroadcaster[string](&BroadcastConfig{BufferItems: 8})
	require.NoError(t, err)

	s1, err := b.Subscribe()
	require.NoError(t, err)
	s2, err := b.Subscribe()
	require.NoError(t, err)
	require.Equal(t, 2, b.Subscribers())

	require.Equal(t, 2, b.Publish("x"))
	require.Equal(t, 2, b.Publish("y"))

	for _, s := range []*Subscription[string]{s1, s2} {
		v, ok := s.Pop()
		require.True(t, ok)
		require.Equal(t, "x", v)
		v, ok = s.Pop()
		require.True(t, ok)
		require.Equal(t, "y", v)
		_, ok = s.Pop()
		require.False(t, ok)
	}
}

// A full subscriber loses values without holding up its peers.
func TestBroadcasterLossySubscriber(t *testing.T) {
	b, err := NewBroadcaster[int](&BroadcastConfig{BufferItems: 2, Metrics: true})
	require.NoError(t, err)

	slow, err := b.Subscribe()
	require.NoError(t, err)
	fast, err := b.Subscribe()
	require.NoError(t, err)

	require.Equal(t, 2, b.Publish(1))
	require.Equal(t, 2, b.Publish(2))
	fast.Pop()
	fast.Pop()
	// slow's ring is full now; only fast accepts the third value.
	require.Equal(t, 1, b.Publish(3))

	require.Equal(t, uint64(5), b.Metrics.Delivered())
	require.Equal(t, uint64(1), b.Metrics.Dropped())

	v, ok := slow.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)
	v, ok = slow.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)
	_, ok = slow.Pop()
	require.False(t, ok)

	v, ok = fast.Pop()
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestBroadcasterClose(t *testing.T) {
	b, err := NewBroadcaster[int](nil)
	require.NoError(t, err)
	sub, err := b.Subscribe()
	require.NoError(t, err)

	b.Publish(7)
	b.Close()

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done should fire on Close")
	}

	// Publishing after Close reaches nobody, but the buffered value is
	// still drainable.
	require.Equal(t, 0, b.Publish(8))
	v, ok := sub.Pop()
	require.True(t, ok)
	require.Equal(t, 7, v)

	_, err = b.Subscribe()
	require.Error(t, err)

	// Close twice is fine.
	b.Close()
}

func TestBroadcasterCancel(t *testing.T) {
	b, err := NewBroadcaster[int](nil)
	require.NoError(t, err)
	s1, err := b.Subscribe()
	require.NoError(t, err)
	s2, err := b.Subscribe()
	require.NoError(t, err)

	s1.Cancel()
	require.Equal(t, 1, b.Subscribers())
	select {
	case <-s1.Done():
	default:
		t.Fatal("Done should fire on Cancel")
	}

	require.Equal(t, 1, b.Publish(9))
	v, ok := s2.Pop()
	require.True(t, ok)
	require.Equal(t, 9, v)
}
