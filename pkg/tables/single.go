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

	"github.com/grouper/grouper/pkg/bitarray"
	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/policy"
	"github.com/grouper/grouper/pkg/private/serrors"
)

// SingleTable maps every value of the relevant bits directly to the id of the
// first matching rule. Ids are stored big-endian in IDWidth bytes.
type SingleTable struct {
	bits    uint64
	idWidth uint64
	buf     []byte
}

// BuildSingle allocates and fills the single table for the policy.
func BuildSingle(ctx context.Context, pol *policy.Policy) (*SingleTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pol.Released() {
		return nil, serrors.New("policy masks already released")
	}
	b := pol.RelevantBits
	if b > MaxSingleTableBits {
		return nil, serrors.JoinNoStack(ErrAllocation, nil, "relevant_bits", b)
	}
	w := IDWidth(pol.RuleCount)
	buf, err := allocate(mulSat(uint64(1)<<b, w))
	if err != nil {
		return nil, serrors.Wrap("allocating single table", err, "relevant_bits", b)
	}
	st := &SingleTable{bits: b, idWidth: w, buf: buf}
	log.FromCtx(ctx).Debug("Filling single table", "rows", uint64(1)<<b, "id_width", w)

	// Rules are written last to first so that the lowest matching id remains.
	for r := pol.RuleCount; r > 0; r-- {
		wild := bitarray.Extract(pol.Wildcard(r-1), 0, b)
		val := bitarray.Extract(pol.Value(r-1), 0, b)
		for sub := uint64(0); ; sub = (sub - wild) & wild {
			st.put(val|sub, r)
			if sub == wild {
				break
			}
		}
	}
	return st, nil
}

func (st *SingleTable) put(row, id uint64) {
	off := row * st.idWidth
	for k := st.idWidth; k > 0; k-- {
		st.buf[off+k-1] = byte(id)
		id >>= 8
	}
}

// ID returns the rule id stored in the given row.
func (st *SingleTable) ID(row uint64) uint64 {
	var id uint64
	off := row * st.idWidth
	for _, b := range st.buf[off : off+st.idWidth] {
		id = id<<8 | uint64(b)
	}
	return id
}

// Classify returns the 1-based id of the first rule matching the packet or 0.
func (st *SingleTable) Classify(packet []byte) uint64 {
	return st.ID(bitarray.Extract(packet, 0, st.bits))
}

// Rows returns the number of rows.
func (st *SingleTable) Rows() uint64 { return uint64(1) << st.bits }

// IDWidth returns the size of a stored id in bytes.
func (st *SingleTable) IDWidth() uint64 { return st.idWidth }

// SizeBytes returns the memory held by the table.
func (st *SingleTable) SizeBytes() uint64 { return uint64(len(st.buf)) }
