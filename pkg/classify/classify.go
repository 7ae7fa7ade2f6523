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

// Package classify runs a stream of packets through lookup tables.
//
// Packets are read from a PacketSource, classified one at a time and the
// resulting rule ids are written to a ResultWriter in input order. The stream
// ends when the source reports io.EOF. A short trailing packet counts as the
// end of the stream.
package classify

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/metrics"
	"github.com/grouper/grouper/pkg/private/serrors"
)

// ctxCheckInterval is the number of packets between two checks of the
// context.
const ctxCheckInterval = 4096

// DefaultLatencyInterval is the default number of packets between two timed
// lookups.
const DefaultLatencyInterval = 1024

// Lookup maps a packet to the 1-based id of the first matching rule, or 0 if
// no rule matches.
type Lookup interface {
	Classify(packet []byte) uint64
}

// PacketSource yields packets of a fixed length. The returned slice is only
// valid until the next call. At the end of the stream io.EOF is returned.
type PacketSource interface {
	Next() ([]byte, error)
}

// ResultWriter consumes classification results.
type ResultWriter interface {
	Write(id uint64) error
	Flush() error
}

// Summary describes a finished classification run.
type Summary struct {
	// Packets is the number of classified packets.
	Packets uint64
	// Matched is the number of packets that matched a rule.
	Matched uint64
	// Real is the wall clock duration of the run.
	Real time.Duration
	// CPU is the CPU time consumed by the process during the run. It is zero
	// if the platform does not report it.
	CPU time.Duration
}

// Classifier classifies packets with a Lookup.
type Classifier struct {
	Lookup Lookup
	// Metrics is optional.
	Metrics *Metrics
	// LatencyInterval is the number of packets between two lookups observed
	// by Metrics.Latency. The first packet is always observed. Zero selects
	// DefaultLatencyInterval.
	LatencyInterval uint64
}

// Run classifies all packets of src and writes the results to dst. It returns
// once src is exhausted, ctx is done or an IO error occurs. The summary
// covers the packets processed so far in all cases.
func (c *Classifier) Run(ctx context.Context, src PacketSource,
	dst ResultWriter) (Summary, error) {

	logger := log.FromCtx(ctx)
	m := c.Metrics
	if m == nil {
		m = &Metrics{}
	}
	interval := c.LatencyInterval
	if interval == 0 {
		interval = DefaultLatencyInterval
	}
	startCPU, cpuOK := processCPUTime()
	start := time.Now()

	var s Summary
	finish := func() {
		s.Real = time.Since(start)
		if endCPU, ok := processCPUTime(); ok && cpuOK {
			s.CPU = endCPU - startCPU
		}
	}
	for {
		if s.Packets%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				finish()
				return s, err
			}
		}
		packet, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			finish()
			return s, serrors.Wrap("reading packet", err, "packet", s.Packets+1)
		}
		var id uint64
		if m.Latency != nil && s.Packets%interval == 0 {
			begin := time.Now()
			id = c.Lookup.Classify(packet)
			m.Latency.Observe(time.Since(begin).Seconds())
		} else {
			id = c.Lookup.Classify(packet)
		}
		if err := dst.Write(id); err != nil {
			finish()
			return s, serrors.Wrap("writing result", err, "packet", s.Packets+1)
		}
		s.Packets++
		if id != 0 {
			s.Matched++
			metrics.CounterInc(m.Matched)
		} else {
			metrics.CounterInc(m.Unmatched)
		}
	}
	if err := dst.Flush(); err != nil {
		finish()
		return s, serrors.Wrap("flushing results", err)
	}
	finish()
	logger.Debug("Packet stream drained", "packets", s.Packets, "matched", s.Matched,
		"duration", s.Real)
	return s, nil
}
