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

package pktgen

import (
	"io"

	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/private/config"
)

// DefaultCount is the default number of generated packets.
const DefaultCount = 1000

var _ config.Config = (*Config)(nil)

// Config is the pktgen configuration.
type Config struct {
	Logging log.Config `toml:"log,omitempty"`
	Packets Packets    `toml:"packets,omitempty"`
}

func (cfg *Config) InitDefaults() {
	config.InitAll(&cfg.Logging, &cfg.Packets)
}

func (cfg *Config) Validate() error {
	return config.ValidateAll(&cfg.Logging, &cfg.Packets)
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, nil, &cfg.Logging, &cfg.Packets)
}

func (cfg *Config) ConfigName() string {
	return "pktgen_config"
}

func (cfg *Config) LogConfig() log.Config {
	return cfg.Logging
}

var _ config.Config = (*Packets)(nil)

// Packets configures the generated packet stream.
type Packets struct {
	// Count is the number of packets. (default DefaultCount)
	Count uint64 `toml:"count,omitempty"`
	// MatchRatio is the share of packets built to match a rule.
	MatchRatio float64 `toml:"match_ratio,omitempty"`
	// Seed seeds the random source. Zero picks a random seed.
	Seed uint64 `toml:"seed,omitempty"`
	// Format is the output format (raw|pcap). (default raw)
	Format string `toml:"format,omitempty"`
	// Encapsulation is the JSON file with the frame headers of pcap output.
	Encapsulation string `toml:"encapsulation,omitempty"`
}

func (cfg *Packets) InitDefaults() {
	if cfg.Count == 0 {
		cfg.Count = DefaultCount
	}
	if cfg.Format == "" {
		cfg.Format = FormatRaw
	}
}

func (cfg *Packets) Validate() error {
	if cfg.MatchRatio < 0 || cfg.MatchRatio > 1 {
		return serrors.New("match_ratio must be in [0, 1]", "match_ratio", cfg.MatchRatio)
	}
	switch cfg.Format {
	case FormatRaw:
		if cfg.Encapsulation != "" {
			return serrors.New("encapsulation requires the pcap format")
		}
	case FormatPcap:
	default:
		return serrors.New("unknown format", "format", cfg.Format)
	}
	return nil
}

func (cfg *Packets) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, packetsSample)
}

func (cfg *Packets) ConfigName() string {
	return "packets"
}
