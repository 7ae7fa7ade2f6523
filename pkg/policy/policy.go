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

// Package policy holds an ordered list of ternary classification rules.
//
// A rule is a row over the alphabet {0, 1, ?}. Position j of a row constrains
// bit j of a packet, where bits are numbered most significant bit first (see
// package bitarray). Rules are identified by their 1-based position in the
// list. The id 0 is reserved and means that no rule matched.
//
// Every rule is stored as two masks of RelevantBytes bytes: the wildcard mask
// has a bit set for every '?' and the value mask has a bit set for every '1'.
// Rows shorter than the longest row are padded with wildcards.
package policy

import (
	"errors"

	"github.com/grouper/grouper/pkg/bitarray"
	"github.com/grouper/grouper/pkg/private/serrors"
)

// ErrInvalidInput indicates a malformed policy.
var ErrInvalidInput = errors.New("invalid policy")

const (
	// Zero is the character of a rule position that requires a 0 bit.
	Zero = '0'
	// One is the character of a rule position that requires a 1 bit.
	One = '1'
	// Wildcard is the character of a don't-care rule position.
	Wildcard = '?'
)

// Policy is an immutable set of ternary rules.
type Policy struct {
	// PacketLength is the number of bytes of one packet.
	PacketLength uint64
	// RuleCount is the number of rules.
	RuleCount uint64
	// RuleCountPadded is RuleCount rounded up to a multiple of 8. It is the
	// width in bits of a rule bit-vector.
	RuleCountPadded uint64
	// RelevantBits is the length of the longest rule.
	RelevantBits uint64
	// RelevantBytes is the number of bytes needed for RelevantBits.
	RelevantBytes uint64

	wildcard []byte
	value    []byte
}

// New builds a policy from the given rule rows. A row may end with a single
// '\n'. Any other character than '0', '1' and '?' results in
// ErrInvalidInput.
func New(packetLength uint64, rows [][]byte) (*Policy, error) {
	if packetLength == 0 {
		return nil, serrors.JoinNoStack(ErrInvalidInput, nil, "packet_length", packetLength)
	}
	var maxBits uint64
	for i, row := range rows {
		row = trimNewline(row)
		for j, c := range row {
			if c != Zero && c != One && c != Wildcard {
				return nil, serrors.JoinNoStack(ErrInvalidInput, nil,
					"char", string(rune(c)), "rule", i+1, "column", j+1)
			}
		}
		if l := uint64(len(row)); l > maxBits {
			maxBits = l
		}
	}
	if packetLength*8 < maxBits {
		return nil, serrors.JoinNoStack(ErrInvalidInput, nil,
			"packet_length", packetLength, "relevant_bits", maxBits)
	}
	n := uint64(len(rows))
	p := &Policy{
		PacketLength:    packetLength,
		RuleCount:       n,
		RuleCountPadded: 8 * bitarray.BytesFor(n),
		RelevantBits:    maxBits,
		RelevantBytes:   bitarray.BytesFor(maxBits),
	}
	p.wildcard = make([]byte, n*p.RelevantBytes)
	p.value = make([]byte, n*p.RelevantBytes)
	for i, row := range rows {
		row = trimNewline(row)
		wild, val := p.Wildcard(uint64(i)), p.Value(uint64(i))
		for j := uint64(0); j < maxBits; j++ {
			if j >= uint64(len(row)) {
				bitarray.Set(wild, j)
				continue
			}
			switch row[j] {
			case Wildcard:
				bitarray.Set(wild, j)
			case One:
				bitarray.Set(val, j)
			}
		}
	}
	return p, nil
}

func trimNewline(row []byte) []byte {
	if l := len(row); l > 0 && row[l-1] == '\n' {
		return row[:l-1]
	}
	return row
}

// Wildcard returns the wildcard mask of the rule with the 0-based index i. The
// returned slice must not be modified.
func (p *Policy) Wildcard(i uint64) []byte {
	if p.wildcard == nil {
		return nil
	}
	return p.wildcard[i*p.RelevantBytes : (i+1)*p.RelevantBytes]
}

// Value returns the value mask of the rule with the 0-based index i. The
// returned slice must not be modified.
func (p *Policy) Value(i uint64) []byte {
	if p.value == nil {
		return nil
	}
	return p.value[i*p.RelevantBytes : (i+1)*p.RelevantBytes]
}

// Release drops the rule masks. Dimensions stay valid but rules can no longer
// be accessed.
func (p *Policy) Release() {
	p.wildcard = nil
	p.value = nil
}

// Released reports whether Release was called.
func (p *Policy) Released() bool {
	return p.wildcard == nil
}

// Rule returns the ternary row of the rule with the 0-based index i,
// reconstructed from its masks. Padding of short rows shows up as trailing
// wildcards.
func (p *Policy) Rule(i uint64) string {
	wild, val := p.Wildcard(i), p.Value(i)
	row := make([]byte, p.RelevantBits)
	for j := range row {
		switch {
		case bitarray.Get(wild, uint64(j)):
			row[j] = Wildcard
		case bitarray.Get(val, uint64(j)):
			row[j] = One
		default:
			row[j] = Zero
		}
	}
	return string(row)
}

// Matches reports whether the rule with the 0-based index i matches the
// pattern. Only the first RelevantBits bits of the pattern are considered.
func (p *Policy) Matches(i uint64, pattern []byte) bool {
	wild, val := p.Wildcard(i), p.Value(i)
	last := len(wild) - 1
	for k := 0; k < last; k++ {
		if pattern[k]&^wild[k] != val[k] {
			return false
		}
	}
	if last < 0 {
		return true
	}
	tail := byte(0xff)
	if r := p.RelevantBits % 8; r != 0 {
		tail <<= 8 - r
	}
	return pattern[last]&^wild[last]&tail == val[last]
}

// Linear returns the 1-based id of the first rule that matches the pattern,
// or 0 if no rule matches.
func (p *Policy) Linear(pattern []byte) uint64 {
	for i := uint64(0); i < p.RuleCount; i++ {
		if p.Matches(i, pattern) {
			return i + 1
		}
	}
	return 0
}
