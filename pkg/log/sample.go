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

package log

import (
	"io"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/private/config"
)

const consoleSample = `
# Console logging level (debug|info|error) (default info)
level = "info"

# Console logging format (human|json) (default human)
format = "human"

# Level from which on stack traces are attached (debug|info|error|none)
# (default none)
stacktrace_level = "none"
`

var _ config.Config = (*Config)(nil)

// Validate checks that the levels and the format are known.
func (c *Config) Validate() error {
	return c.Console.Validate()
}

// Sample writes the sample of the logging block.
func (c *Config) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteSample(dst, path, ctx, &c.Console)
}

// ConfigName is the key of the logging block.
func (c *Config) ConfigName() string {
	return "log"
}

var _ config.Config = (*ConsoleConfig)(nil)

// Validate checks that the levels and the format are known.
func (c *ConsoleConfig) Validate() error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return serrors.Wrap("invalid console level", err, "level", c.Level)
	}
	if c.StacktraceLevel != "none" {
		if err := lvl.UnmarshalText([]byte(c.StacktraceLevel)); err != nil {
			return serrors.Wrap("invalid stacktrace level", err, "level", c.StacktraceLevel)
		}
	}
	switch strings.ToLower(c.Format) {
	case "human", "json":
		return nil
	default:
		return serrors.New("invalid console format", "format", c.Format)
	}
}

// Sample writes the sample of the console block.
func (c *ConsoleConfig) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, consoleSample)
}

// ConfigName is the key of the console block.
func (c *ConsoleConfig) ConfigName() string {
	return "console"
}
