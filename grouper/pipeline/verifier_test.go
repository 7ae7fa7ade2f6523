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

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grouper/grouper/pkg/policy"
)

type constLookup uint64

func (c constLookup) Classify([]byte) uint64 { return uint64(c) }

func TestVerifier(t *testing.T) {
	pol, err := policy.New(1, [][]byte{[]byte("0?"), []byte("1?")})
	require.NoError(t, err)

	v := &verifier{policy: pol, lookup: constLookup(1)}
	assert.Equal(t, uint64(1), v.Classify([]byte{0x00}))
	assert.Equal(t, uint64(1), v.Classify([]byte{0x80}))
	assert.Equal(t, uint64(1), v.Classify([]byte{0xc0}))
	assert.Equal(t, uint64(2), v.mismatches)
	assert.Equal(t, uint64(2), v.first)
	assert.Equal(t, uint64(1), v.firstGot)
	assert.Equal(t, uint64(2), v.firstWant)
}
