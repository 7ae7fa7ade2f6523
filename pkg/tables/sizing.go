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
	"errors"
	"fmt"
	"math/bits"

	"github.com/grouper/grouper/pkg/bitarray"
	"github.com/grouper/grouper/pkg/private/serrors"
)

// MaxSingleTableBits is the largest number of relevant bits for which a single
// table is considered.
const MaxSingleTableBits = 58

// maxSliceWidth bounds the width of a slice so that table heights are
// representable.
const maxSliceWidth = 62

var (
	// ErrInsufficientMemory indicates that the memory budget cannot hold even
	// the smallest table configuration.
	ErrInsufficientMemory = errors.New("insufficient memory")
	// ErrAllocation indicates that a table buffer could not be allocated.
	ErrAllocation = errors.New("allocation failed")
	// ErrInvalidDimensions indicates a table count that does not partition the
	// relevant bits.
	ErrInvalidDimensions = errors.New("invalid table dimensions")
)

// InsufficientMemoryError is returned by MinTables if the memory budget is too
// small. It matches ErrInsufficientMemory.
type InsufficientMemoryError struct {
	// MinBytes is the smallest memory budget in bytes that fits a table
	// configuration.
	MinBytes uint64
}

func (e *InsufficientMemoryError) Error() string {
	return fmt.Sprintf("%s: needs at least %d bytes", ErrInsufficientMemory, e.MinBytes)
}

// Is reports whether target is ErrInsufficientMemory.
func (e *InsufficientMemoryError) Is(target error) bool {
	return target == ErrInsufficientMemory
}

// MinTables returns the smallest number of tables whose combined size fits
// into memoryBits for n rules of b relevant bits. A result of 1 selects the
// single table mode.
func MinTables(memoryBits, n, b uint64) (uint64, error) {
	padded := paddedRules(n)
	minBits := mulSat(mulSat(2, padded), b)
	if memoryBits < minBits || n < 1 || b < 1 {
		return 0, &InsufficientMemoryError{MinBytes: bitarray.BytesFor(minBits)}
	}
	if single, ok := SingleTableBits(n, b); ok && memoryBits >= single {
		return 1, nil
	}
	return searchTables(memoryBits, n, b, (b+1)/2), nil
}

// searchTables returns the smallest t in (1, high] whose tables fit into
// memoryBits. It returns 1 if high is 1. The caller guarantees that high tables
// fit.
func searchTables(memoryBits, n, b, high uint64) uint64 {
	low := uint64(1)
	for high-low > 1 {
		mid := low + (high-low)/2
		if memoryBits < RequiredBits(mid, n, b) {
			low = mid
		} else {
			high = mid
		}
	}
	return high
}

// RequiredBits returns the combined size in bits of the t tables for n rules
// of b relevant bits. The result saturates at the maximum uint64.
func RequiredBits(t, n, b uint64) uint64 {
	if t == 0 {
		return ^uint64(0)
	}
	padded := paddedRules(n)
	width := b / t
	even := mulSat(mulSat(t-b%t, pow2Sat(width)), padded)
	odd := mulSat(mulSat(b%t, pow2Sat(width+1)), padded)
	return addSat(even, odd)
}

// SingleTableBits returns the size in bits of the single table for n rules of
// b relevant bits. The boolean is false if the single table is not an option
// for b.
func SingleTableBits(n, b uint64) (uint64, bool) {
	if b > MaxSingleTableBits {
		return 0, false
	}
	return mulSat(8*IDWidth(n), 1<<b), true
}

// IDWidth returns the number of bytes needed to store rule ids up to n. It is
// at least 1.
func IDWidth(n uint64) uint64 {
	if w := bitarray.BytesFor(uint64(bits.Len64(n))); w > 0 {
		return w
	}
	return 1
}

// Dimensions describes how the relevant bits are partitioned into slices.
//
// The first EvenCount slices are EvenWidth bits wide, the remaining OddCount
// slices are OddWidth bits wide. Every slice is backed by a table with one row
// per slice value. Rows are bit-vectors of RowBytes bytes with one bit per rule.
type Dimensions struct {
	Tables       uint64 `json:"tables" yaml:"tables"`
	RelevantBits uint64 `json:"relevant_bits" yaml:"relevant_bits"`
	EvenWidth    uint64 `json:"even_width" yaml:"even_width"`
	OddWidth     uint64 `json:"odd_width" yaml:"odd_width"`
	EvenCount    uint64 `json:"even_count" yaml:"even_count"`
	OddCount     uint64 `json:"odd_count" yaml:"odd_count"`
	EvenHeight   uint64 `json:"even_height" yaml:"even_height"`
	OddHeight    uint64 `json:"odd_height" yaml:"odd_height"`
	RowBytes     uint64 `json:"row_bytes" yaml:"row_bytes"`
	OddOffset    uint64 `json:"odd_offset" yaml:"odd_offset"`
}

// NewDimensions partitions b relevant bits of n rules into t slices.
func NewDimensions(n, b, t uint64) (Dimensions, error) {
	if t < 1 || t > b {
		return Dimensions{}, serrors.JoinNoStack(ErrInvalidDimensions, nil,
			"tables", t, "relevant_bits", b)
	}
	even := b / t
	if even+1 > maxSliceWidth {
		return Dimensions{}, serrors.JoinNoStack(ErrAllocation, nil,
			"tables", t, "slice_width", even+1)
	}
	return Dimensions{
		Tables:       t,
		RelevantBits: b,
		EvenWidth:    even,
		OddWidth:     even + 1,
		EvenCount:    t - b%t,
		OddCount:     b % t,
		EvenHeight:   1 << even,
		OddHeight:    1 << (even + 1),
		RowBytes:     paddedRules(n) / 8,
		OddOffset:    (t - b%t) * even,
	}, nil
}

// Slice returns the bit offset and width of slice s. Slices are numbered even
// slices first.
func (d Dimensions) Slice(s uint64) (uint64, uint64) {
	if s < d.EvenCount {
		return s * d.EvenWidth, d.EvenWidth
	}
	return d.OddOffset + (s-d.EvenCount)*d.OddWidth, d.OddWidth
}

// Bits returns the combined size of all tables in bits.
func (d Dimensions) Bits() uint64 {
	even := mulSat(mulSat(d.EvenCount, d.EvenHeight), d.RowBytes*8)
	odd := mulSat(mulSat(d.OddCount, d.OddHeight), d.RowBytes*8)
	return addSat(even, odd)
}

// Mode is the classification mode selected by the sizer.
type Mode string

const (
	// ModeSingle maps the whole pattern to a rule id in one table.
	ModeSingle Mode = "single"
	// ModeMulti intersects rule bit-vectors of several tables.
	ModeMulti Mode = "multi"
)

// Plan is the sizing decision for a policy and a memory budget.
type Plan struct {
	MemoryBits   uint64      `json:"memory_bits" yaml:"memory_bits"`
	Rules        uint64      `json:"rules" yaml:"rules"`
	RelevantBits uint64      `json:"relevant_bits" yaml:"relevant_bits"`
	Tables       uint64      `json:"tables" yaml:"tables"`
	Mode         Mode        `json:"mode" yaml:"mode"`
	RequiredBits uint64      `json:"required_bits" yaml:"required_bits"`
	IDWidth      uint64      `json:"id_width,omitempty" yaml:"id_width,omitempty"`
	Dimensions   *Dimensions `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

type planOptions struct {
	multiOnly bool
}

// PlanOption configures NewPlan.
type PlanOption func(o *planOptions)

// WithoutSingleTable makes NewPlan choose the sliced layout even if the single
// table fits into the budget.
func WithoutSingleTable() PlanOption {
	return func(o *planOptions) {
		o.multiOnly = true
	}
}

// NewPlan decides how n rules of b relevant bits are laid out in memoryBits.
func NewPlan(memoryBits, n, b uint64, opts ...PlanOption) (Plan, error) {
	var o planOptions
	for _, opt := range opts {
		opt(&o)
	}
	t, err := MinTables(memoryBits, n, b)
	if err != nil {
		return Plan{}, err
	}
	if t == 1 && o.multiOnly {
		if b < 2 {
			return Plan{}, serrors.JoinNoStack(ErrInvalidDimensions, nil,
				"relevant_bits", b, "reason", "one bit cannot be sliced")
		}
		// max(2, ceil(b/2)) tables fit every budget MinTables accepts.
		t = searchTables(memoryBits, n, b, max(2, (b+1)/2))
	}
	p := Plan{
		MemoryBits:   memoryBits,
		Rules:        n,
		RelevantBits: b,
		Tables:       t,
	}
	if t == 1 {
		p.Mode = ModeSingle
		p.IDWidth = IDWidth(n)
		p.RequiredBits, _ = SingleTableBits(n, b)
		return p, nil
	}
	dims, err := NewDimensions(n, b, t)
	if err != nil {
		return Plan{}, err
	}
	p.Mode = ModeMulti
	p.RequiredBits = dims.Bits()
	p.Dimensions = &dims
	return p, nil
}

func paddedRules(n uint64) uint64 {
	return 8 * bitarray.BytesFor(n)
}

func pow2Sat(e uint64) uint64 {
	if e >= 64 {
		return ^uint64(0)
	}
	return 1 << e
}

func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0)
	}
	return lo
}

func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}
