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

// Package config contains the configuration of the grouper binary.
package config

import (
	"io"
	"runtime"

	"github.com/grouper/grouper/pkg/classify"
	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/pkg/tables"
	"github.com/grouper/grouper/private/config"
	"github.com/grouper/grouper/private/env"
)

const idSample = "grouper"

var _ config.Config = (*Config)(nil)

// Config is the grouper configuration.
type Config struct {
	General  env.General  `toml:"general,omitempty"`
	Features env.Features `toml:"features,omitempty"`
	Logging  log.Config   `toml:"log,omitempty"`
	Metrics  env.Metrics  `toml:"metrics,omitempty"`
	Build    Build        `toml:"build,omitempty"`
	Classify Classify     `toml:"classify,omitempty"`
}

func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Features,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Build,
		&cfg.Classify,
	)
}

func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.General,
		&cfg.Features,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Build,
		&cfg.Classify,
	)
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, config.CtxMap{config.ID: idSample},
		&cfg.General,
		&cfg.Features,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Build,
		&cfg.Classify,
	)
}

func (cfg *Config) ConfigName() string {
	return "grouper_config"
}

// LogConfig returns the logging block. The launcher sets up logging with it.
func (cfg *Config) LogConfig() log.Config {
	return cfg.Logging
}

var _ config.Config = (*Build)(nil)

// Build configures the table builder.
type Build struct {
	// Workers is the number of cores the fill tasks are spread over.
	// (default: number of CPUs)
	Workers int `toml:"workers,omitempty"`
	// ThreadsPerCoreCap bounds the number of fill tasks per core.
	// (default: tables.DefaultThreadsPerCoreCap)
	ThreadsPerCoreCap int `toml:"threads_per_core_cap,omitempty"`
}

func (cfg *Build) InitDefaults() {
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.ThreadsPerCoreCap == 0 {
		cfg.ThreadsPerCoreCap = tables.DefaultThreadsPerCoreCap
	}
}

func (cfg *Build) Validate() error {
	if cfg.Workers < 1 {
		return serrors.New("workers must be positive", "workers", cfg.Workers)
	}
	if cfg.ThreadsPerCoreCap < 1 {
		return serrors.New("threads_per_core_cap must be positive",
			"threads_per_core_cap", cfg.ThreadsPerCoreCap)
	}
	return nil
}

// Options returns the builder options of the block.
func (cfg *Build) Options() []tables.BuildOption {
	return []tables.BuildOption{
		tables.WithWorkers(cfg.Workers),
		tables.WithThreadsPerCoreCap(cfg.ThreadsPerCoreCap),
	}
}

func (cfg *Build) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, buildSample)
}

func (cfg *Build) ConfigName() string {
	return "build"
}

var _ config.Config = (*Classify)(nil)

// Classify configures the packet stream.
type Classify struct {
	// InputFormat is the format of the packet input (raw|pcap).
	InputFormat string `toml:"input_format,omitempty"`
	// PcapLayer selects the part of a captured frame that is classified
	// (frame|payload).
	PcapLayer string `toml:"pcap_layer,omitempty"`
	// OutputBufferSize is the size of the result write buffer in bytes.
	OutputBufferSize int `toml:"output_buffer_size,omitempty"`
}

func (cfg *Classify) InitDefaults() {
	if cfg.InputFormat == "" {
		cfg.InputFormat = classify.FormatRaw
	}
	if cfg.PcapLayer == "" {
		cfg.PcapLayer = classify.LayerFrame
	}
	if cfg.OutputBufferSize == 0 {
		cfg.OutputBufferSize = classify.DefaultOutputBufferSize
	}
}

func (cfg *Classify) Validate() error {
	switch cfg.InputFormat {
	case classify.FormatRaw, classify.FormatPcap:
	default:
		return serrors.JoinNoStack(classify.ErrUnknownFormat, nil,
			"input_format", cfg.InputFormat)
	}
	switch cfg.PcapLayer {
	case classify.LayerFrame, classify.LayerPayload:
	default:
		return serrors.JoinNoStack(classify.ErrUnknownLayer, nil,
			"pcap_layer", cfg.PcapLayer)
	}
	if cfg.OutputBufferSize < 1 {
		return serrors.New("output_buffer_size must be positive",
			"output_buffer_size", cfg.OutputBufferSize)
	}
	return nil
}

func (cfg *Classify) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, classifySample)
}

func (cfg *Classify) ConfigName() string {
	return "classify"
}
