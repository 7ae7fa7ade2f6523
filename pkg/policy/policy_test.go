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

package policy_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grouper/grouper/pkg/bitarray"
	"github.com/grouper/grouper/pkg/policy"
)

func rows(rules ...string) [][]byte {
	r := make([][]byte, 0, len(rules))
	for _, rule := range rules {
		r = append(r, []byte(rule))
	}
	return r
}

func TestNew(t *testing.T) {
	tests := map[string]struct {
		packetLength  uint64
		rules         []string
		wantN         uint64
		wantPadded    uint64
		wantBits      uint64
		wantBytes     uint64
		wantWildcards [][]byte
		wantValues    [][]byte
	}{
		"two bit rules": {
			packetLength:  1,
			rules:         []string{"0?", "1?", "??"},
			wantN:         3,
			wantPadded:    8,
			wantBits:      2,
			wantBytes:     1,
			wantWildcards: [][]byte{{0x40}, {0x40}, {0xc0}},
			wantValues:    [][]byte{{0x00}, {0x80}, {0x00}},
		},
		"short rows are wildcard padded": {
			packetLength:  2,
			rules:         []string{"1", "0000000001\n"},
			wantN:         2,
			wantPadded:    8,
			wantBits:      10,
			wantBytes:     2,
			wantWildcards: [][]byte{{0x7f, 0xc0}, {0x00, 0x00}},
			wantValues:    [][]byte{{0x80, 0x00}, {0x00, 0x40}},
		},
		"nine rules pad to sixteen": {
			packetLength:  1,
			rules:         []string{"1", "1", "1", "1", "1", "1", "1", "1", "0"},
			wantN:         9,
			wantPadded:    16,
			wantBits:      1,
			wantBytes:     1,
			wantWildcards: [][]byte{{0}, {0}, {0}, {0}, {0}, {0}, {0}, {0}, {0}},
			wantValues: [][]byte{
				{0x80}, {0x80}, {0x80}, {0x80}, {0x80}, {0x80}, {0x80}, {0x80}, {0},
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := policy.New(tc.packetLength, rows(tc.rules...))
			require.NoError(t, err)
			assert.Equal(t, tc.packetLength, p.PacketLength)
			assert.Equal(t, tc.wantN, p.RuleCount)
			assert.Equal(t, tc.wantPadded, p.RuleCountPadded)
			assert.Equal(t, tc.wantBits, p.RelevantBits)
			assert.Equal(t, tc.wantBytes, p.RelevantBytes)
			for i := range tc.rules {
				assert.Equal(t, tc.wantWildcards[i], p.Wildcard(uint64(i)), "wildcard %d", i)
				assert.Equal(t, tc.wantValues[i], p.Value(uint64(i)), "value %d", i)
			}
		})
	}
}

func TestNewInvalid(t *testing.T) {
	tests := map[string]struct {
		packetLength uint64
		rules        []string
		wantMsg      string
	}{
		"invalid character": {
			packetLength: 1,
			rules:        []string{"01", "0x"},
			wantMsg:      "char=x",
		},
		"carriage return": {
			packetLength: 1,
			rules:        []string{"01\r\n"},
			wantMsg:      "column=3",
		},
		"rule longer than packet": {
			packetLength: 1,
			rules:        []string{"0101010101"},
			wantMsg:      "relevant_bits=10",
		},
		"zero packet length": {
			packetLength: 0,
			rules:        []string{"0"},
			wantMsg:      "packet_length=0",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := policy.New(tc.packetLength, rows(tc.rules...))
			assert.ErrorIs(t, err, policy.ErrInvalidInput)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestMaskInvariants(t *testing.T) {
	p, err := policy.New(3, rows("1?0?1??0", "??????????", "0101", "1111111111111111111?"))
	require.NoError(t, err)
	for i := uint64(0); i < p.RuleCount; i++ {
		wild, val := p.Wildcard(i), p.Value(i)
		require.Len(t, wild, int(p.RelevantBytes))
		require.Len(t, val, int(p.RelevantBytes))
		for k := range wild {
			assert.Zero(t, wild[k]&val[k], "rule %d byte %d", i, k)
		}
	}
}

func TestRuleRoundTrip(t *testing.T) {
	rules := []string{"1?0?1??0", "??????????", "0101", "1111111111111111111?", ""}
	p, err := policy.New(3, rows(rules...))
	require.NoError(t, err)
	for i, rule := range rules {
		padded := rule + strings.Repeat("?", int(p.RelevantBits)-len(rule))
		assert.Equal(t, padded, p.Rule(uint64(i)))

		// The concrete bits of the row are exactly value AND NOT wildcard.
		wild, val := p.Wildcard(uint64(i)), p.Value(uint64(i))
		for j, c := range rule {
			if c == policy.Wildcard {
				continue
			}
			assert.False(t, bitarray.Get(wild, uint64(j)))
			assert.Equal(t, c == policy.One, bitarray.Get(val, uint64(j)),
				"rule %d column %d", i, j)
		}
	}
}

func TestMatchesAndLinear(t *testing.T) {
	p, err := policy.New(1, rows("0?", "1?", "??"))
	require.NoError(t, err)
	tests := map[string]struct {
		packet []byte
		want   uint64
	}{
		"00 matches first":      {packet: []byte{0x00}, want: 1},
		"01 matches first":      {packet: []byte{0x40}, want: 1},
		"10 matches second":     {packet: []byte{0x80}, want: 2},
		"11 lowest id wins":     {packet: []byte{0xc0}, want: 2},
		"irrelevant bits":       {packet: []byte{0x3f}, want: 1},
		"irrelevant bits set 1": {packet: []byte{0xff}, want: 2},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Linear(tc.packet))
		})
	}
	assert.True(t, p.Matches(2, []byte{0x00}))
	assert.False(t, p.Matches(1, []byte{0x00}))
}

func TestLinearNoMatch(t *testing.T) {
	p, err := policy.New(2, rows("0000000001", "1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.Linear([]byte{0x00, 0x00}))
	assert.Equal(t, uint64(1), p.Linear([]byte{0x00, 0x7f}))
	assert.Equal(t, uint64(2), p.Linear([]byte{0x80, 0x00}))
}

func TestRelease(t *testing.T) {
	p, err := policy.New(1, rows("01"))
	require.NoError(t, err)
	assert.False(t, p.Released())
	p.Release()
	assert.True(t, p.Released())
	assert.Nil(t, p.Wildcard(0))
	assert.Equal(t, uint64(2), p.RelevantBits)
}

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		input     string
		wantRules []string
		wantLen   uint64
		assertErr assert.ErrorAssertionFunc
	}{
		"simple": {
			input:     "1\n0?\n1?\n??\n",
			wantLen:   1,
			wantRules: []string{"0?", "1?", "??"},
			assertErr: assert.NoError,
		},
		"missing final newline": {
			input:     "4\n01\n10",
			wantLen:   4,
			wantRules: []string{"01", "10"},
			assertErr: assert.NoError,
		},
		"empty line is a wildcard rule": {
			input:     "1\n01\n\n",
			wantLen:   1,
			wantRules: []string{"01", "??"},
			assertErr: assert.NoError,
		},
		"packet length with spaces": {
			input:     " 2 \n1\n",
			wantLen:   2,
			wantRules: []string{"1"},
			assertErr: assert.NoError,
		},
		"no rules": {
			input:     "1\n",
			wantLen:   1,
			assertErr: assert.NoError,
		},
		"bad packet length": {
			input:     "abc\n01\n",
			assertErr: assert.Error,
		},
		"empty file": {
			input:     "",
			assertErr: assert.Error,
		},
		"invalid rule character": {
			input:     "1\n012\n",
			assertErr: assert.Error,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := policy.Decode(strings.NewReader(tc.input))
			tc.assertErr(t, err)
			if err != nil {
				assert.ErrorIs(t, err, policy.ErrInvalidInput)
				return
			}
			assert.Equal(t, tc.wantLen, p.PacketLength)
			require.Equal(t, uint64(len(tc.wantRules)), p.RuleCount)
			for i, r := range tc.wantRules {
				assert.Equal(t, r, p.Rule(uint64(i)))
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.pol")
	require.NoError(t, os.WriteFile(path, []byte("1\n?\n"), 0o644))
	p, err := policy.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.RuleCount)
	assert.Equal(t, uint64(1), p.Linear([]byte{0x00}))

	_, err = policy.LoadFile(filepath.Join(dir, "missing.pol"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, policy.ErrInvalidInput)
}
