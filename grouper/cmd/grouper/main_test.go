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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grouper/grouper/grouper/config"
	"github.com/grouper/grouper/pkg/tables"
	"github.com/grouper/grouper/private/app/command"
)

const testPolicy = "1\n0?\n1?\n??\n"

var (
	testPackets = []byte{0x00, 0x80, 0xc0, 0x40, 0x3f}
	testResults = "1\n2\n2\n1\n1\n"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func newTestRunner(stdin []byte) (*runner, *bytes.Buffer, *bytes.Buffer) {
	var cfg config.Config
	cfg.InitDefaults()
	var stdout, stderr bytes.Buffer
	return &runner{
		cfg:      &cfg,
		registry: prometheus.NewRegistry(),
		stdin:    bytes.NewReader(stdin),
		stdout:   &stdout,
		stderr:   &stderr,
	}, &stdout, &stderr
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "rules.pol", []byte(testPolicy))
	inputFile := writeFile(t, dir, "packets.bin", testPackets)

	tests := map[string]struct {
		args     func(dir string) []string
		stdin    []byte
		features []string
		stdout   string
		outFile  string
	}{
		"standard streams": {
			args:   func(string) []string { return []string{"1024", policyFile} },
			stdin:  testPackets,
			stdout: testResults,
		},
		"input file": {
			args:   func(string) []string { return []string{"1024", policyFile, inputFile} },
			stdout: testResults,
		},
		"dash selects standard streams": {
			args:   func(string) []string { return []string{"1024", policyFile, "-", "-"} },
			stdin:  testPackets,
			stdout: testResults,
		},
		"output file": {
			args: func(dir string) []string {
				return []string{"1024", policyFile, inputFile, filepath.Join(dir, "out.txt")}
			},
			outFile: testResults,
		},
		"missing input falls back to stdin": {
			args: func(dir string) []string {
				return []string{"1024", policyFile, filepath.Join(dir, "missing.bin")}
			},
			stdin:  testPackets,
			stdout: testResults,
		},
		"unwritable output falls back to stdout": {
			args: func(dir string) []string {
				return []string{"1024", policyFile, inputFile,
					filepath.Join(dir, "missing", "out.txt")}
			},
			stdout: testResults,
		},
		"forced multi table and verification": {
			args:     func(string) []string { return []string{"1024", policyFile, inputFile} },
			features: []string{"force_multi_table", "verify"},
			stdout:   testResults,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			out := t.TempDir()
			r, stdout, stderr := newTestRunner(tc.stdin)
			r.cfg.Features.Enabled = tc.features
			require.NoError(t, r.run(context.Background(), tc.args(out)))
			assert.Equal(t, tc.stdout, stdout.String())
			if tc.outFile != "" {
				raw, err := os.ReadFile(filepath.Join(out, "out.txt"))
				require.NoError(t, err)
				assert.Equal(t, tc.outFile, string(raw))
			}

			var summary map[string]any
			require.NoError(t, json.Unmarshal(stderr.Bytes(), &summary), stderr.String())
			assert.EqualValues(t, len(testPackets), summary["packets"])
			for _, key := range []string{"read", "build", "cpu_process", "real_process", "total"} {
				assert.Contains(t, summary, key)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "rules.pol", []byte(testPolicy))
	invalidPolicy := writeFile(t, dir, "invalid.pol", []byte("1\n0x\n"))

	tests := map[string]struct {
		args      []string
		format    string
		assertErr assert.ErrorAssertionFunc
	}{
		"memory not a number": {
			args:      []string{"lots", policyFile},
			assertErr: assert.Error,
		},
		"zero memory": {
			args:      []string{"0", policyFile},
			assertErr: assert.Error,
		},
		"missing policy": {
			args:      []string{"1024", filepath.Join(dir, "missing.pol")},
			assertErr: assert.Error,
		},
		"invalid policy": {
			args:      []string{"1024", invalidPolicy},
			assertErr: assert.Error,
		},
		"insufficient memory": {
			args: []string{"3", policyFile},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, tables.ErrInsufficientMemory)
			},
		},
		"unknown input format": {
			args:      []string{"1024", policyFile},
			format:    "csv",
			assertErr: assert.Error,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r, stdout, _ := newTestRunner(testPackets)
			if tc.format != "" {
				r.cfg.Classify.InputFormat = tc.format
			}
			tc.assertErr(t, r.run(context.Background(), tc.args))
			assert.Empty(t, stdout.String())
		})
	}
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "rules.pol", []byte(testPolicy))

	tests := map[string]struct {
		args      []string
		contains  []string
		assertErr assert.ErrorAssertionFunc
	}{
		"human single": {
			args:      []string{"4", policyFile, "--no-color"},
			contains:  []string{"Mode: single (1 tables, 4 bytes)", "single"},
			assertErr: assert.NoError,
		},
		"human forced multi": {
			args:      []string{"4", policyFile, "--no-color", "--features", "force_multi_table"},
			contains:  []string{"Mode: multi (2 tables, 4 bytes)", "even"},
			assertErr: assert.NoError,
		},
		"yaml": {
			args:      []string{"1024", policyFile, "--format", "yaml"},
			contains:  []string{"mode: single", "budget_bytes: 1024"},
			assertErr: assert.NoError,
		},
		"unknown format": {
			args:      []string{"1024", policyFile, "--format", "xml"},
			assertErr: assert.Error,
		},
		"unknown feature": {
			args:      []string{"1024", policyFile, "--features", "turbo"},
			assertErr: assert.Error,
		},
		"insufficient memory": {
			args: []string{"3", policyFile},
			assertErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, tables.ErrInsufficientMemory)
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := newPlan(command.StringPather("grouper"))
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tc.args)
			tc.assertErr(t, cmd.Execute())
			for _, s := range tc.contains {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestPlanJSON(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "rules.pol", []byte(testPolicy))

	cmd := newPlan(command.StringPather("grouper"))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"4", policyFile, "--format", "json",
		"--features", "force_multi_table"})
	require.NoError(t, cmd.Execute())

	var report planReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, tables.ModeMulti, report.Plan.Mode)
	assert.EqualValues(t, 2, report.Plan.Tables)
	assert.EqualValues(t, 4, report.RequiredBytes)
	assert.EqualValues(t, 1, report.PacketLength)
	require.NotNil(t, report.Plan.Dimensions)
	assert.EqualValues(t, 1, report.Plan.Dimensions.EvenWidth)
}
