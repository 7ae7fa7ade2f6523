// Copyright 2016 ETH Zurich
// Copyright 2019 ETH Zurich, Anapaya Systems
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

// Package serrors provides errors that carry log context as sorted key value
// pairs and at most one stack trace per error chain. The errors marshal to
// structured zap objects.
//
// Three constructors cover the uses in grouper:
//
//   - New creates a leaf error with a stack trace.
//   - Wrap annotates a cause. It records a stack trace unless the cause
//     already has one.
//   - JoinNoStack attaches context and an optional cause to a sentinel such
//     as policy.ErrInvalidInput. errors.Is matches both the sentinel and the
//     cause.
package serrors

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type pair struct {
	key   string
	value any
}

type stackTracer interface {
	StackTrace() StackTrace
}

// info holds what both error kinds share.
type info struct {
	ctx   []pair
	cause error
	stack *stack
}

func newInfo(cause error, withStack bool, errCtx []any) info {
	ctx := make([]pair, 0, len(errCtx)/2)
	for i := 0; i+1 < len(errCtx); i += 2 {
		ctx = append(ctx, pair{key: fmt.Sprint(errCtx[i]), value: errCtx[i+1]})
	}
	slices.SortStableFunc(ctx, func(a, b pair) int { return strings.Compare(a.key, b.key) })
	i := info{ctx: ctx, cause: cause}
	if withStack && !hasStack(cause) {
		i.stack = callers()
	}
	return i
}

func hasStack(err error) bool {
	var st stackTracer
	return errors.As(err, &st) && len(st.StackTrace()) > 0
}

// StackTrace returns the stack trace of the error or of its cause.
func (i info) StackTrace() StackTrace {
	if i.stack != nil {
		return i.stack.StackTrace()
	}
	if st, ok := i.cause.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

func (i info) suffix() string {
	var b strings.Builder
	if len(i.ctx) > 0 {
		b.WriteString(" {")
		for n, p := range i.ctx {
			if n > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s=%v", p.key, p.value)
		}
		b.WriteString("}")
	}
	if i.cause != nil {
		b.WriteString(": ")
		b.WriteString(i.cause.Error())
	}
	return b.String()
}

func (i info) marshal(enc zapcore.ObjectEncoder, msg string) error {
	enc.AddString("msg", msg)
	switch c := i.cause.(type) {
	case nil:
	case zapcore.ObjectMarshaler:
		if err := enc.AddObject("cause", c); err != nil {
			return err
		}
	default:
		enc.AddString("cause", c.Error())
	}
	if i.stack != nil {
		if err := enc.AddArray("stacktrace", i.stack); err != nil {
			return err
		}
	}
	for _, p := range i.ctx {
		zap.Any(p.key, p.value).AddTo(enc)
	}
	return nil
}

// basicError is an error with its own message.
type basicError struct {
	info
	msg string
}

func (e basicError) Error() string {
	return e.msg + e.suffix()
}

func (e basicError) Unwrap() error {
	return e.cause
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e basicError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return e.marshal(enc, e.msg)
}

// Wrap returns an error with message msg and context errCtx around cause. A
// stack trace is recorded unless cause already carries one. errors.Is(err,
// cause) holds for the result.
func Wrap(msg string, cause error, errCtx ...any) error {
	return &basicError{info: newInfo(cause, true, errCtx), msg: msg}
}

// New creates an error with a stack trace. Each call returns a distinct
// error. Sentinels compared with errors.Is should use errors.New instead.
func New(msg string, errCtx ...any) error {
	return &basicError{info: newInfo(nil, true, errCtx), msg: msg}
}

// joinedError decorates a base error, usually a sentinel.
type joinedError struct {
	info
	base error
}

func (e joinedError) Error() string {
	return e.base.Error() + e.suffix()
}

func (e joinedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.base}
	}
	return []error{e.base, e.cause}
}

// MarshalLogObject implements zapcore.ObjectMarshaler. The base error is
// logged by its message only.
func (e joinedError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return e.marshal(enc, e.base.Error())
}

// JoinNoStack returns base with context errCtx and an optional cause. No stack
// trace is recorded. It returns nil if both base and cause are nil.
func JoinNoStack(base, cause error, errCtx ...any) error {
	if base == nil && cause == nil {
		return nil
	}
	if base == nil {
		base, cause = cause, nil
	}
	return &joinedError{info: newInfo(cause, false, errCtx), base: base}
}

func (s *stack) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, pc := range *s {
		t, err := Frame(pc).MarshalText()
		if err != nil {
			return err
		}
		enc.AppendByteString(t)
	}
	return nil
}
