// Copyright 2018 ETH Zurich, Anapaya Systems
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

// Package env contains the configuration blocks shared by grouper
// applications. If something is specific to one app, it should go into that
// app's code and not here.
package env

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/private/app/feature"
	"github.com/grouper/grouper/private/config"
)

const (
	// DefaultID is the instance id used when the configuration sets none.
	DefaultID = "grouper"

	// HandlerTimeout is the time after which the http handler gives up on a
	// request and returns an error instead.
	HandlerTimeout = time.Minute

	// ShutdownGraceInterval bounds the time the metrics server gets to finish
	// in-flight scrapes after the run ended.
	ShutdownGraceInterval = 5 * time.Second
)

var _ config.Config = (*General)(nil)

// General holds the settings that identify the running instance.
type General struct {
	// ID names the instance in logs and in the sample configuration.
	ID string `toml:"id,omitempty"`
}

// InitDefaults sets the instance id if none is configured.
func (cfg *General) InitDefaults() {
	if cfg.ID == "" {
		cfg.ID = DefaultID
	}
}

func (cfg *General) Validate() error {
	if cfg.ID == "" {
		return serrors.New("no instance id specified")
	}
	return nil
}

func (cfg *General) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, fmt.Sprintf(generalSample, ctx[config.ID]))
}

func (cfg *General) ConfigName() string {
	return "general"
}

var _ config.Config = (*Features)(nil)

// Features lists the enabled feature flags by name.
type Features struct {
	config.NoDefaulter
	Enabled []string `toml:"enabled,omitempty"`
}

func (cfg *Features) Validate() error {
	_, err := feature.ParseDefault(cfg.Enabled)
	return err
}

// Set returns the parsed feature set. Unknown names are rejected by Validate.
func (cfg *Features) Set() feature.Default {
	set, _ := feature.ParseDefault(cfg.Enabled)
	return set
}

func (cfg *Features) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, fmt.Sprintf(featuresSample,
		feature.String(&feature.Default{}, ", ")))
}

func (cfg *Features) ConfigName() string {
	return "features"
}

var _ config.Config = (*Metrics)(nil)

type Metrics struct {
	config.NoDefaulter
	// Prometheus contains the address to export prometheus metrics on. If
	// not set, metrics are not exported.
	Prometheus string `toml:"prometheus,omitempty"`
}

func (cfg *Metrics) Validate() error {
	if cfg.Prometheus == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Prometheus); err != nil {
		return serrors.Wrap("invalid prometheus address", err, "addr", cfg.Prometheus)
	}
	return nil
}

func (cfg *Metrics) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, metricsSample)
}

func (cfg *Metrics) ConfigName() string {
	return "metrics"
}

// ServePrometheus exports the metrics of the gatherer under /metrics until
// ctx is done. It returns immediately if no address is configured. A nil
// gatherer selects the default prometheus registry.
func (cfg *Metrics) ServePrometheus(ctx context.Context, gatherer prometheus.Gatherer) error {
	if cfg.Prometheus == "" {
		return nil
	}
	registerer := prometheus.DefaultRegisterer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	} else if r, ok := gatherer.(prometheus.Registerer); ok {
		registerer = r
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		registerer,
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{Timeout: HandlerTimeout}),
	))

	listener, err := net.Listen("tcp", cfg.Prometheus)
	if err != nil {
		return serrors.Wrap("listening for prometheus scrapes", err, "addr", cfg.Prometheus)
	}
	log.Info("Exporting prometheus metrics", "addr", listener.Addr().String())

	server := &http.Server{Handler: mux, ReadHeaderTimeout: HandlerTimeout}
	go func() {
		defer log.HandlePanic()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGraceInterval)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
		}
	}()
	err = server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return serrors.Wrap("serving prometheus metrics", err)
	}
	return nil
}
