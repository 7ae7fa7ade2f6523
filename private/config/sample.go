// Copyright 2019 Anapaya Systems
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

package config

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// CtxMap contains the context for sample generation.
type CtxMap map[string]string

// WriteSample writes the samples to dst in order. A TableSampler with a
// non-empty ConfigName becomes the block [path.name] with an indented body.
// Any other sampler is written unchanged under path. It panics if an error
// occurs.
func WriteSample(dst io.Writer, path Path, ctx CtxMap, samplers ...Sampler) {
	var body bytes.Buffer
	for _, sampler := range samplers {
		body.Reset()
		name := blockName(sampler)
		if name == "" {
			sampler.Sample(&body, path, ctx)
			WriteString(dst, body.String())
			continue
		}
		block := path.Extend(name)
		WriteString(dst, "\n["+strings.Join(block, ".")+"]")
		sampler.Sample(&body, block, ctx)
		WriteString(dst, indent(body.String()))
	}
}

// blockName returns the table name of the sampler. It is empty for samplers
// that write top-level keys.
func blockName(s Sampler) string {
	if ts, ok := s.(TableSampler); ok {
		return ts.ConfigName()
	}
	return ""
}

// indent prefixes every non-empty line of s with four spaces. The result is
// newline terminated.
func indent(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(s, "\n"), "\n") {
		if line != "" {
			b.WriteString("    ")
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteString writes the string to dst. It panics if an error occurs.
func WriteString(dst io.Writer, s string) {
	if _, err := io.WriteString(dst, s); err != nil {
		panic(fmt.Sprintf("Unable to write sample err=%s", err))
	}
}
