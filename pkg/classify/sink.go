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

package classify

import (
	"bufio"
	"io"
	"strconv"
)

// DefaultOutputBufferSize is the default buffer size of a LineWriter.
const DefaultOutputBufferSize = 64 * 1024

// LineWriter writes every rule id as a decimal number on its own line.
type LineWriter struct {
	w       *bufio.Writer
	scratch []byte
}

// NewLineWriter creates a LineWriter that buffers size bytes. A size of 0
// selects DefaultOutputBufferSize.
func NewLineWriter(w io.Writer, size int) *LineWriter {
	if size <= 0 {
		size = DefaultOutputBufferSize
	}
	return &LineWriter{
		w:       bufio.NewWriterSize(w, size),
		scratch: make([]byte, 0, 21),
	}
}

// Write writes id followed by a newline.
func (lw *LineWriter) Write(id uint64) error {
	lw.scratch = strconv.AppendUint(lw.scratch[:0], id, 10)
	lw.scratch = append(lw.scratch, '\n')
	_, err := lw.w.Write(lw.scratch)
	return err
}

// Flush writes buffered results to the underlying writer.
func (lw *LineWriter) Flush() error {
	return lw.w.Flush()
}
