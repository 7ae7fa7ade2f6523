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

package policy

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grouper/grouper/pkg/private/serrors"
)

// Decode reads a policy file. The first line holds the packet length in bytes
// as a decimal number. Every following line is one rule. An empty line is a
// rule that matches everything, and a last line without a terminating newline
// is still a rule.
func Decode(r io.Reader) (*Policy, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, serrors.Wrap("reading packet length", err)
	}
	packetLength, err := strconv.ParseUint(strings.TrimSpace(first), 10, 64)
	if err != nil || packetLength == 0 {
		return nil, serrors.JoinNoStack(ErrInvalidInput, err, "line", 1, "packet_length", first)
	}

	var rows [][]byte
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			rows = append(rows, line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, serrors.Wrap("reading rules", err, "rules", len(rows))
		}
	}
	return New(packetLength, rows)
}

// LoadFile reads the policy file at the given path.
func LoadFile(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, serrors.Wrap("opening policy file", err, "path", path)
	}
	defer f.Close()
	p, err := Decode(f)
	if err != nil {
		return nil, serrors.Wrap("loading policy", err, "path", path)
	}
	return p, nil
}
