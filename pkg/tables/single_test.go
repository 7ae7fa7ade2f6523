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

package tables_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grouper/grouper/pkg/tables"
)

func TestBuildSingle(t *testing.T) {
	pol := mustPolicy(t, 1, "0?", "1?", "??")
	st, err := tables.BuildSingle(testCtx(t), pol)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), st.Rows())
	assert.Equal(t, uint64(1), st.IDWidth())
	assert.Equal(t, uint64(4), st.SizeBytes())
	for row, want := range []uint64{1, 1, 2, 2} {
		assert.Equal(t, want, st.ID(uint64(row)), "row %02b", row)
	}
}

func TestBuildSingleWideIDs(t *testing.T) {
	rules := make([]string, 0, 260)
	for i := 0; i < 259; i++ {
		rules = append(rules, "0000")
	}
	rules = append(rules, "1???")
	pol := mustPolicy(t, 1, rules...)
	st, err := tables.BuildSingle(testCtx(t), pol)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), st.IDWidth())
	assert.Equal(t, uint64(1), st.Classify([]byte{0x00}))
	assert.Equal(t, uint64(260), st.Classify([]byte{0x80}))
	assert.Equal(t, uint64(260), st.Classify([]byte{0xf0}))
	assert.Equal(t, uint64(0), st.Classify([]byte{0x10}))
}

func TestBuildSingleExhaustive(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for _, n := range []int{1, 5, 40} {
		pol := randomPolicy(t, r, n, 10)
		st, err := tables.BuildSingle(testCtx(t), pol)
		require.NoError(t, err)
		for v := uint64(0); v < 1<<10; v++ {
			packet := packetFor(v, 10, pol.PacketLength, true)
			require.Equal(t, pol.Linear(packet), st.Classify(packet), "n=%d pattern %010b", n, v)
		}
	}
}

func TestBuildSingleTooWide(t *testing.T) {
	rule := make([]byte, tables.MaxSingleTableBits+1)
	for i := range rule {
		rule[i] = '?'
	}
	pol := mustPolicy(t, 8, string(rule))
	_, err := tables.BuildSingle(testCtx(t), pol)
	assert.ErrorIs(t, err, tables.ErrAllocation)
}
