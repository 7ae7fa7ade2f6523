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
	"fmt"
	"math"

	"github.com/grouper/grouper/pkg/private/serrors"
)

// Table stores the rows of all slices of one width class in a flat buffer.
// Row (h, d) is the rule bit-vector of slice d for slice value h.
type Table struct {
	buf      []byte
	height   uint64
	count    uint64
	rowBytes uint64
}

func newTable(height, count, rowBytes uint64) (Table, error) {
	size := mulSat(mulSat(height, count), rowBytes)
	buf, err := allocate(size)
	if err != nil {
		return Table{}, serrors.Wrap("allocating table", err,
			"height", height, "count", count, "row_bytes", rowBytes)
	}
	return Table{buf: buf, height: height, count: count, rowBytes: rowBytes}, nil
}

// Row returns the row for slice value h of slice d.
func (t *Table) Row(h, d uint64) []byte {
	off := (h*t.count + d) * t.rowBytes
	return t.buf[off : off+t.rowBytes : off+t.rowBytes]
}

// Height is the number of rows per slice.
func (t *Table) Height() uint64 { return t.height }

// Count is the number of slices.
func (t *Table) Count() uint64 { return t.count }

// RowBytes is the size of a row in bytes.
func (t *Table) RowBytes() uint64 { return t.rowBytes }

// Bytes returns the underlying buffer. It must not be modified.
func (t *Table) Bytes() []byte { return t.buf }

// allocate returns a zeroed buffer of the given size. Sizes that cannot be
// represented and failures reported by the runtime as a panic result in
// ErrAllocation. An exhausted heap still aborts the process.
func allocate(size uint64) (buf []byte, err error) {
	if size > math.MaxInt {
		return nil, serrors.JoinNoStack(ErrAllocation, nil, "bytes", size)
	}
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = serrors.JoinNoStack(ErrAllocation, fmt.Errorf("%v", r), "bytes", size)
		}
	}()
	return make([]byte, size), nil
}
