// Copyright 2020 Anapaya Systems
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

package log_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/log/logtest"
	"github.com/grouper/grouper/pkg/log/testlog"
)

func TestSetup(t *testing.T) {
	tests := map[string]struct {
		cfg       log.Config
		assertErr assert.ErrorAssertionFunc
	}{
		"empty, no error": {
			cfg:       log.Config{},
			assertErr: assert.NoError,
		},
		"json format": {
			cfg:       log.Config{Console: log.ConsoleConfig{Format: "json"}},
			assertErr: assert.NoError,
		},
		"invalid console level": {
			cfg:       log.Config{Console: log.ConsoleConfig{Level: "invalid"}},
			assertErr: assert.Error,
		},
		"invalid console format": {
			cfg:       log.Config{Console: log.ConsoleConfig{Format: "xml"}},
			assertErr: assert.Error,
		},
		"invalid stacktrace level": {
			cfg:       log.Config{Console: log.ConsoleConfig{StacktraceLevel: "loud"}},
			assertErr: assert.Error,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			test.assertErr(t, log.Setup(test.cfg))
		})
	}
	log.Discard()
}

func TestEntriesCounter(t *testing.T) {
	info := prometheus.NewCounter(prometheus.CounterOpts{Name: "info_total"})
	errs := prometheus.NewCounter(prometheus.CounterOpts{Name: "error_total"})
	err := log.Setup(
		log.Config{Console: log.ConsoleConfig{Level: "info"}},
		log.WithEntriesCounter(log.EntriesCounter{Info: info, Error: errs}),
	)
	require.NoError(t, err)
	defer log.Discard()

	log.Info("first")
	log.Info("second")
	log.Error("third")
	log.Debug("filtered")
	assert.Equal(t, 2.0, testutil.ToFloat64(info))
	assert.Equal(t, 1.0, testutil.ToFloat64(errs))
}

func TestFromCtx(t *testing.T) {
	l := testlog.NewLogger(t)
	ctx := log.CtxWith(context.Background(), l)
	assert.Equal(t, l, log.FromCtx(ctx))
	assert.NotNil(t, log.FromCtx(context.Background()))

	ctx, labeled := log.WithLabels(ctx, "table", 3)
	assert.Equal(t, labeled, log.FromCtx(ctx))
	labeled.Debug("labeled logger works")
}

func TestConfigSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg log.Config
	cfg.Sample(&sample, nil, nil)
	logtest.InitTestLogging(&cfg)
	err := toml.NewDecoder(bytes.NewReader(sample.Bytes())).DisallowUnknownFields().Decode(&cfg)
	require.NoError(t, err)
	logtest.CheckTestLogging(t, &cfg)
	assert.NoError(t, cfg.Validate())

	cfg.Console.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestFromCtxSpan(t *testing.T) {
	tests := map[string]struct {
		ctx func() context.Context
	}{
		"root logger": {
			ctx: context.Background,
		},
		"context logger": {
			ctx: func() context.Context {
				return log.CtxWith(context.Background(), testlog.NewLogger(t))
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			tracer := mocktracer.New()
			span, ctx := opentracing.StartSpanFromContextWithTracer(tc.ctx(), tracer,
				"pipeline.build_tables")
			logger := log.FromCtx(ctx)
			_, isSpan := logger.(log.Span)
			require.True(t, isSpan)

			logger.Info("Tables built", "tables", 2)
			logger.New("mode", "multi").Debug("Filling column")
			span.Finish()

			records := tracer.FinishedSpans()[0].Logs()
			require.Len(t, records, 2)
			fields := map[string]string{}
			for _, f := range records[0].Fields {
				fields[f.Key] = f.ValueString
			}
			assert.Equal(t, map[string]string{
				"level": "info", "event": "Tables built", "tables": "2",
			}, fields)
		})
	}
}

func TestFromCtxWithoutSpan(t *testing.T) {
	logger := testlog.NewLogger(t)
	ctx := log.CtxWith(context.Background(), logger)
	assert.Equal(t, logger, log.FromCtx(ctx))
}
