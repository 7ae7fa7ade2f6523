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

package tables

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grouper/grouper/pkg/bitarray"
	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/policy"
	"github.com/grouper/grouper/pkg/private/serrors"
)

// DefaultThreadsPerCoreCap bounds the number of fill tasks run per core.
const DefaultThreadsPerCoreCap = 100

type buildOptions struct {
	workers           int
	threadsPerCoreCap int
}

// BuildOption configures Build.
type BuildOption func(o *buildOptions)

// WithWorkers sets the number of cores the fill tasks are spread over. It
// defaults to the number of CPUs.
func WithWorkers(n int) BuildOption {
	return func(o *buildOptions) {
		o.workers = n
	}
}

// WithThreadsPerCoreCap sets the maximum number of fill tasks per core.
func WithThreadsPerCoreCap(n int) BuildOption {
	return func(o *buildOptions) {
		o.threadsPerCoreCap = n
	}
}

// PoolSize returns the number of fill tasks that run concurrently for the
// given dimensions.
func PoolSize(dims Dimensions, opts ...BuildOption) int {
	o := applyBuildOptions(opts)
	return poolSize(dims, o)
}

func applyBuildOptions(opts []BuildOption) buildOptions {
	o := buildOptions{
		workers:           runtime.NumCPU(),
		threadsPerCoreCap: DefaultThreadsPerCoreCap,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.threadsPerCoreCap < 1 {
		o.threadsPerCoreCap = 1
	}
	return o
}

func poolSize(dims Dimensions, o buildOptions) int {
	perCore := int((dims.EvenCount + dims.OddCount + 1) / 2)
	if perCore > o.threadsPerCoreCap {
		perCore = o.threadsPerCoreCap
	}
	if perCore < 1 {
		perCore = 1
	}
	return o.workers * perCore
}

// Tables are the filled lookup tables of the multi table mode.
//
// Classify reuses an internal buffer and must not be called concurrently.
type Tables struct {
	Dims Dimensions
	Even Table
	Odd  Table

	acc []byte
}

// Build allocates and fills the tables for the policy. Every slice is filled
// by its own task. Even slices are submitted before odd slices and Build
// returns once all tasks are done. A started build is not interrupted by ctx.
func Build(ctx context.Context, pol *policy.Policy, dims Dimensions,
	opts ...BuildOption) (*Tables, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pol.Released() {
		return nil, serrors.New("policy masks already released")
	}
	if dims.RelevantBits != pol.RelevantBits || dims.RowBytes*8 != pol.RuleCountPadded {
		return nil, serrors.JoinNoStack(ErrInvalidDimensions, nil,
			"relevant_bits", dims.RelevantBits, "policy_relevant_bits", pol.RelevantBits,
			"row_bytes", dims.RowBytes, "policy_rules_padded", pol.RuleCountPadded)
	}
	o := applyBuildOptions(opts)
	logger := log.FromCtx(ctx)

	even, err := newTable(dims.EvenHeight, dims.EvenCount, dims.RowBytes)
	if err != nil {
		return nil, serrors.Wrap("even tables", err)
	}
	odd, err := newTable(dims.OddHeight, dims.OddCount, dims.RowBytes)
	if err != nil {
		return nil, serrors.Wrap("odd tables", err)
	}
	t := &Tables{
		Dims: dims,
		Even: even,
		Odd:  odd,
		acc:  make([]byte, dims.RowBytes),
	}

	limit := poolSize(dims, o)
	logger.Debug("Filling tables", "tables", dims.Tables, "even", dims.EvenCount,
		"odd", dims.OddCount, "pool", limit)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(limit)
	for d := uint64(0); d < dims.EvenCount; d++ {
		g.Go(func() error {
			fillColumn(&t.Even, pol, d, d*dims.EvenWidth, dims.EvenWidth)
			return nil
		})
	}
	for d := uint64(0); d < dims.OddCount; d++ {
		g.Go(func() error {
			fillColumn(&t.Odd, pol, d, dims.OddOffset+d*dims.OddWidth, dims.OddWidth)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("Tables filled", "duration", time.Since(start))
	return t, nil
}

// fillColumn sets the bit of every rule in the rows of slice d that the rule
// matches. The slice starts at bit offset of the rule masks.
func fillColumn(tbl *Table, pol *policy.Policy, d, offset, width uint64) {
	for r := uint64(0); r < pol.RuleCount; r++ {
		wild := bitarray.Extract(pol.Wildcard(r), offset, width)
		val := bitarray.Extract(pol.Value(r), offset, width)
		idx, mask := bitarray.Locate(r)
		// Slice values h with h &^ wild == val are val combined with every
		// subset of wild.
		for sub := uint64(0); ; sub = (sub - wild) & wild {
			tbl.Row(val|sub, d)[idx] |= mask
			if sub == wild {
				break
			}
		}
	}
}

// Classify returns the 1-based id of the first rule matching the packet or 0.
// The packet must hold at least Dims.RelevantBits bits.
func (t *Tables) Classify(packet []byte) uint64 {
	d := t.Dims
	copy(t.acc, t.Even.Row(bitarray.Extract(packet, 0, d.EvenWidth), 0))
	for s := uint64(1); s < d.EvenCount; s++ {
		h := bitarray.Extract(packet, s*d.EvenWidth, d.EvenWidth)
		bitarray.And(t.acc, t.Even.Row(h, s))
	}
	for s := uint64(0); s < d.OddCount; s++ {
		h := bitarray.Extract(packet, d.OddOffset+s*d.OddWidth, d.OddWidth)
		bitarray.And(t.acc, t.Odd.Row(h, s))
	}
	if i, ok := bitarray.FirstSet(t.acc); ok {
		return i + 1
	}
	return 0
}

// SizeBytes returns the memory held by the tables.
func (t *Tables) SizeBytes() uint64 {
	return uint64(len(t.Even.buf) + len(t.Odd.buf))
}
