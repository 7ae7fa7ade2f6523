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

package serrors

import (
	"fmt"
	"path"
	"runtime"
	"strconv"
)

// maxStackDepth bounds the number of frames recorded per error.
const maxStackDepth = 32

// Frame represents a program counter inside a stack frame.
type Frame uintptr

// pc returns the program counter for this frame. Multiple frames may have the
// same PC value.
func (f Frame) pc() uintptr { return uintptr(f) - 1 }

func (f Frame) location() (string, string, int) {
	fn := runtime.FuncForPC(f.pc())
	if fn == nil {
		return "unknown", "unknown", 0
	}
	file, line := fn.FileLine(f.pc())
	return fn.Name(), file, line
}

// MarshalText formats the frame as "function file:line".
func (f Frame) MarshalText() ([]byte, error) {
	name, file, line := f.location()
	if name == "unknown" {
		return []byte(name), nil
	}
	return []byte(name + " " + file + ":" + strconv.Itoa(line)), nil
}

// String formats the frame as "file:line".
func (f Frame) String() string {
	_, file, line := f.location()
	return fmt.Sprintf("%s:%d", path.Base(file), line)
}

// StackTrace is a stack of Frames from innermost (newest) to outermost (oldest).
type StackTrace []Frame

type stack []uintptr

// StackTrace returns the frames of the stack.
func (s *stack) StackTrace() StackTrace {
	f := make([]Frame, len(*s))
	for i := 0; i < len(f); i++ {
		f[i] = Frame((*s)[i])
	}
	return f
}

func callers() *stack {
	var pcs [maxStackDepth]uintptr
	// Skip runtime.Callers, callers, newInfo and the public constructor.
	n := runtime.Callers(4, pcs[:])
	var st stack = pcs[0:n]
	return &st
}
