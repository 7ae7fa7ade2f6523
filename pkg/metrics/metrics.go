// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics contains the metric interfaces used by grouper packages and
// a factory that registers prometheus collectors.
//
// Components expose a struct of metric interfaces. Every field may be nil, in
// which case the helpers of this package do nothing:
//
//	metrics.CounterInc(m.Matched)
//
// Tests can plug in the fakes of this package and read the values back.
package metrics

// Counter is a monotonically increasing value. prometheus.Counter satisfies
// it.
type Counter interface {
	Add(float64)
}

// Gauge is a value that can go up and down. prometheus.Gauge satisfies it.
type Gauge interface {
	Set(float64)
	Add(float64)
}

// Histogram records observations. prometheus.Histogram satisfies it.
type Histogram interface {
	Observe(float64)
}

// CounterInc increases c by one. A nil counter is ignored.
func CounterInc(c Counter) {
	if c != nil {
		c.Add(1)
	}
}

// CounterAdd increases c by v. A nil counter is ignored.
func CounterAdd(c Counter, v float64) {
	if c != nil {
		c.Add(v)
	}
}

// GaugeSet sets g to v. A nil gauge is ignored.
func GaugeSet(g Gauge, v float64) {
	if g != nil {
		g.Set(v)
	}
}

// HistogramObserve records v in h. A nil histogram is ignored.
func HistogramObserve(h Histogram, v float64) {
	if h != nil {
		h.Observe(v)
	}
}
