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

package classify

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grouper/grouper/pkg/metrics"
)

// Metrics of a grouper run. All fields are optional.
type Metrics struct {
	// Matched counts packets that matched a rule.
	Matched metrics.Counter
	// Unmatched counts packets that matched no rule.
	Unmatched metrics.Counter
	// Latency observes the time spent classifying a single packet in seconds.
	Latency metrics.Histogram
	// BuildDuration is the time spent building the tables in seconds.
	BuildDuration metrics.Gauge
	// TableBytes is the memory held by the tables.
	TableBytes metrics.Gauge
	// Tables is the number of tables in use.
	Tables metrics.Gauge
}

// NewMetrics creates and registers the prometheus metrics of a run.
func NewMetrics(opts ...metrics.Option) *Metrics {
	f := metrics.ApplyOptions(opts...).Auto()
	packets := f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grouper_classified_packets_total",
			Help: "Total number of classified packets.",
		},
		[]string{"result"},
	)
	return &Metrics{
		Matched:   packets.WithLabelValues("matched"),
		Unmatched: packets.WithLabelValues("unmatched"),
		Latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "grouper_classification_duration_seconds",
			Help:    "Time to classify a single packet.",
			Buckets: prometheus.ExponentialBuckets(1e-8, 4, 12),
		}),
		BuildDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "grouper_table_build_duration_seconds",
			Help: "Time spent building the lookup tables.",
		}),
		TableBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "grouper_table_bytes",
			Help: "Memory held by the lookup tables in bytes.",
		}),
		Tables: f.NewGauge(prometheus.GaugeOpts{
			Name: "grouper_tables",
			Help: "Number of lookup tables. 1 means single table mode.",
		}),
	}
}
