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
	"bytes"
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

type metricType int

const (
	// The following 2 track fan-out outcomes per published value.
	delivered = iota
	dropped
	// The following 2 track what subscribers saw when draining.
	received
	drainMiss
	// This should be the final enum. Other enums should be set before this.
	doNotUse
)

func stringFor(t metricType) string {
	switch t {
	case delivered:
		return "delivered"
	case dropped:
		return "dropped"
	case received:
		return "received"
	case drainMiss:
		return "drain-misses"
	default:
		return "unidentified"
	}
}

// Metrics is a snapshot of delivery statistics for the lifetime of a
// Broadcaster. All counters are monotonic; a nil *Metrics is a valid
// no-op receiver so callers never have to branch on whether metrics
// collection is enabled.
type Metrics struct {
	all [doNotUse][]*uint64
}

func newMetrics() *Metrics {
	m := &Metrics{}
	for i := 0; i < doNotUse; i++ {
		m.all[i] = make([]*uint64, 256)
		slice := m.all[i]
		for j := range slice {
			slice[j] = new(uint64)
		}
	}
	return m
}

func (p *Metrics) add(t metricType, stripe, delta uint64) {
	if p == nil {
		return
	}
	valp := p.all[t]
	// Avoid false sharing by padding at least 64 bytes of space between two
	// atomic counters which would be incremented.
	idx := (stripe % 25) * 10
	atomic.AddUint64(valp[idx], delta)
}

func (p *Metrics) get(t metricType) uint64 {
	if p == nil {
		return 0
	}
	valp := p.all[t]
	var total uint64
	for i := range valp {
		total += atomic.LoadUint64(valp[i])
	}
	return total
}

// Delivered is the number of subscriber rings a published value landed in.
func (p *Metrics) Delivered() uint64 {
	return p.get(delivered)
}

// Dropped is the number of subscriber rings that were full when a value
// was published to them.
func (p *Metrics) Dropped() uint64 {
	return p.get(dropped)
}

// Received is the number of values subscribers have popped.
func (p *Metrics) Received() uint64 {
	return p.get(received)
}

// DrainMisses is the number of subscriber pops that found an empty ring.
func (p *Metrics) DrainMisses() uint64 {
	return p.get(drainMiss)
}

// DeliveryRatio is Delivered over all publish attempts (Delivered +
// Dropped), the fraction of fan-out writes that fit in subscriber rings.
func (p *Metrics) DeliveryRatio() float64 {
	if p == nil {
		return 0.0
	}
	del, drop := p.get(delivered), p.get(dropped)
	if del == 0 && drop == 0 {
		return 0.0
	}
	return float64(del) / float64(del+drop)
}

// Clear resets all the metrics.
func (p *Metrics) Clear() {
	if p == nil {
		return
	}
	for i := 0; i < doNotUse; i++ {
		for j := range p.all[i] {
			atomic.StoreUint64(p.all[i][j], 0)
		}
	}
}

// String returns a string representation of the metrics.
func (p *Metrics) String() string {
	if p == nil {
		return ""
	}
	var buf bytes.Buffer
	for i := 0; i < doNotUse; i++ {
		t := metricType(i)
		fmt.Fprintf(&buf, "%s: %s ", stringFor(t), humanize.Comma(int64(p.get(t))))
	}
	fmt.Fprintf(&buf, "delivery-ratio: %.2f", p.DeliveryRatio())
	return buf.String()
}
