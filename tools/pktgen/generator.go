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

// Package pktgen generates policies and packet streams for grouper. The
// packets are either uniformly random or built to match a randomly chosen
// rule of the policy.
package pktgen

import (
	"bufio"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/grouper/grouper/pkg/policy"
	"github.com/grouper/grouper/pkg/private/serrors"
)

// Generator produces packets for a policy.
type Generator struct {
	pol        *policy.Policy
	rng        *rand.Rand
	matchRatio float64
	buf        []byte
}

// NewGenerator creates a generator for pol. A share of matchRatio packets is
// built to match a rule, the others are random. The policy masks must not be
// released.
func NewGenerator(pol *policy.Policy, rng *rand.Rand, matchRatio float64) (*Generator, error) {
	if pol.Released() {
		return nil, serrors.New("policy masks released")
	}
	if matchRatio < 0 || matchRatio > 1 {
		return nil, serrors.New("match ratio out of range", "ratio", matchRatio)
	}
	return &Generator{
		pol:        pol,
		rng:        rng,
		matchRatio: matchRatio,
		buf:        make([]byte, pol.PacketLength),
	}, nil
}

// Next returns the next packet and the 1-based id of the rule it was built
// for, or 0 for a random packet. An earlier rule may match the packet as
// well. The packet is only valid until the next call.
func (g *Generator) Next() ([]byte, uint64) {
	for i := range g.buf {
		g.buf[i] = byte(g.rng.Uint32())
	}
	if g.pol.RuleCount == 0 || g.rng.Float64() >= g.matchRatio {
		return g.buf, 0
	}
	rule := g.rng.Uint64N(g.pol.RuleCount)
	wild, val := g.pol.Wildcard(rule), g.pol.Value(rule)
	for i := range wild {
		g.buf[i] = g.buf[i]&wild[i] | val[i]&^wild[i]
	}
	return g.buf, rule + 1
}

// Generate writes count packets to w. If expected is not nil, the id of the
// first matching rule of every packet is written to it, one per line.
func (g *Generator) Generate(w PacketWriter, expected io.Writer, count uint64) error {
	var ew *bufio.Writer
	if expected != nil {
		ew = bufio.NewWriter(expected)
	}
	var line []byte
	for i := uint64(0); i < count; i++ {
		pkt, _ := g.Next()
		if err := w.WritePacket(pkt); err != nil {
			return serrors.Wrap("writing packet", err, "packet", i)
		}
		if ew != nil {
			line = strconv.AppendUint(line[:0], g.pol.Linear(pkt), 10)
			line = append(line, '\n')
			if _, err := ew.Write(line); err != nil {
				return serrors.Wrap("writing expected id", err, "packet", i)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return serrors.Wrap("flushing packets", err)
	}
	if ew != nil {
		if err := ew.Flush(); err != nil {
			return serrors.Wrap("flushing expected ids", err)
		}
	}
	return nil
}

// PolicySpec describes a random policy.
type PolicySpec struct {
	// PacketLength is the packet length in bytes.
	PacketLength uint64
	// RelevantBits is the length of every rule. Zero means all bits of the
	// packet.
	RelevantBits uint64
	// Rules is the number of rules.
	Rules uint64
}

// GeneratePolicy writes a policy of random rules to w. Every rule position is
// '0', '1' or '?' with equal probability.
func GeneratePolicy(w io.Writer, rng *rand.Rand, spec PolicySpec) error {
	if spec.PacketLength == 0 {
		return serrors.New("packet length must be positive")
	}
	if spec.Rules == 0 {
		return serrors.New("number of rules must be positive")
	}
	bits := spec.RelevantBits
	if bits == 0 {
		bits = 8 * spec.PacketLength
	}
	if bits > 8*spec.PacketLength {
		return serrors.New("relevant bits exceed packet length",
			"relevant_bits", bits, "packet_length", spec.PacketLength)
	}
	const symbols = "01?"
	bw := bufio.NewWriter(w)
	bw.WriteString(strconv.FormatUint(spec.PacketLength, 10) + "\n")
	row := make([]byte, bits+1)
	row[bits] = '\n'
	for i := uint64(0); i < spec.Rules; i++ {
		for j := uint64(0); j < bits; j++ {
			row[j] = symbols[rng.IntN(len(symbols))]
		}
		if _, err := bw.Write(row); err != nil {
			return serrors.Wrap("writing rule", err, "rule", i+1)
		}
	}
	return bw.Flush()
}
