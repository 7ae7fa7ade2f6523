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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Factory.
type Option func(*Options)

// Options configures the metrics Factory, construct it using the ApplyOptions
// function.
type Options struct {
	registry  prometheus.Registerer
	namespace string
}

func (o Options) registerer() prometheus.Registerer {
	if o.registry != nil {
		return o.registry
	}
	return prometheus.DefaultRegisterer
}

// WithRegistry registers all metrics with the given registerer instead of the
// default one. Tests use it to get a fresh registry per case.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(o *Options) {
		o.registry = registry
	}
}

// WithNamespace sets the namespace of metrics that do not specify one.
func WithNamespace(ns string) Option {
	return func(o *Options) {
		o.namespace = ns
	}
}

// ApplyOptions combines the options.
func ApplyOptions(options ...Option) Options {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// Auto creates a Factory that uses the provided Options as registry. If no
// explicit registry is set the default registry is used.
func (o Options) Auto() Factory {
	return Factory{opts: o}
}

// Factory creates and registers metrics. Construct it using the Options.Auto
// function.
type Factory struct {
	opts Options
}

func (f Factory) namespace(ns string) string {
	if ns != "" {
		return ns
	}
	return f.opts.namespace
}

// NewCounter creates and registers a counter.
func (f Factory) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace = f.namespace(opts.Namespace)
	c := prometheus.NewCounter(opts)
	f.opts.registerer().MustRegister(c)
	return c
}

// NewCounterVec creates and registers a counter vector.
func (f Factory) NewCounterVec(
	opts prometheus.CounterOpts,
	labelNames []string,
) *prometheus.CounterVec {
	opts.Namespace = f.namespace(opts.Namespace)
	c := prometheus.NewCounterVec(opts, labelNames)
	f.opts.registerer().MustRegister(c)
	return c
}

// NewGauge creates and registers a gauge.
func (f Factory) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace = f.namespace(opts.Namespace)
	g := prometheus.NewGauge(opts)
	f.opts.registerer().MustRegister(g)
	return g
}

// NewGaugeFunc creates and registers a gauge whose value is read on collection.
func (f Factory) NewGaugeFunc(
	opts prometheus.GaugeOpts,
	function func() float64,
) prometheus.GaugeFunc {
	opts.Namespace = f.namespace(opts.Namespace)
	g := prometheus.NewGaugeFunc(opts, function)
	f.opts.registerer().MustRegister(g)
	return g
}

// NewHistogram creates and registers a histogram.
func (f Factory) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Namespace = f.namespace(opts.Namespace)
	h := prometheus.NewHistogram(opts)
	f.opts.registerer().MustRegister(h)
	return h
}
