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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grouper/grouper/pkg/policy"
	"github.com/grouper/grouper/private/app/command"
	"github.com/grouper/grouper/tools/pktgen"
)

func TestPolicyCommand(t *testing.T) {
	cmd := newPolicy(command.StringPather("pktgen"))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"3", "7", "--relevant-bits", "20", "--seed", "42"})
	require.NoError(t, cmd.Execute())

	pol, err := policy.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), pol.PacketLength)
	assert.Equal(t, uint64(7), pol.RuleCount)
	assert.Equal(t, uint64(20), pol.RelevantBits)

	cmd = newPolicy(command.StringPather("pktgen"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"three", "7"})
	assert.Error(t, cmd.Execute())
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	policyFile := filepath.Join(dir, "rules.pol")
	require.NoError(t, os.WriteFile(policyFile, []byte("1\n0?\n1?\n??\n"), 0o644))
	expected := filepath.Join(dir, "expected.txt")

	cfg := pktgen.Packets{Count: 10, MatchRatio: 0.5, Seed: 7}
	cfg.InitDefaults()
	var out bytes.Buffer
	err := generate(context.Background(), &cfg, []string{policyFile}, expected, &out)
	require.NoError(t, err)
	assert.Equal(t, 10, out.Len())

	raw, err := os.ReadFile(expected)
	require.NoError(t, err)
	lines := strings.Fields(string(raw))
	require.Len(t, lines, 10)
	for i, line := range lines {
		want := "2"
		if out.Bytes()[i]&0x80 == 0 {
			want = "1"
		}
		assert.Equal(t, want, line, "packet %d", i)
	}

	err = generate(context.Background(), &cfg, []string{filepath.Join(dir, "missing.pol")},
		"", &out)
	assert.Error(t, err)
}
