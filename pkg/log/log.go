// Copyright 2016 ETH Zurich
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

// Package log is the logging facade used by all grouper packages. It wraps a
// zap logger and exposes key/value style logging:
//
//	log.Info("Tables built", "tables", t, "duration", d)
//
// The package level functions log to the root logger which is configured with
// Setup. Before Setup is called the root logger discards everything.
package log

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grouper/grouper/pkg/private/serrors"
)

const (
	// DefaultConsoleLevel is the default log level for the console.
	DefaultConsoleLevel = "info"
	// DefaultStacktraceLevel is the default log level above which stack traces are
	// attached to log entries.
	DefaultStacktraceLevel = "none"
)

// Level is the log level.
type Level zapcore.Level

// The supported log levels.
const (
	DebugLevel = Level(zapcore.DebugLevel)
	InfoLevel  = Level(zapcore.InfoLevel)
	ErrorLevel = Level(zapcore.ErrorLevel)
)

// Config is the configuration for the logger.
type Config struct {
	// Console is the configuration for the console logging.
	Console ConsoleConfig `toml:"console,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values (if they
// have one).
func (c *Config) InitDefaults() {
	c.Console.InitDefaults()
}

// ConsoleConfig is the config for the console logger.
type ConsoleConfig struct {
	// Level of console logging (defaults to DefaultConsoleLevel).
	Level string `toml:"level,omitempty"`
	// Format of the console logging. (human|json)
	Format string `toml:"format,omitempty"`
	// StacktraceLevel sets from which level stacktraces are printed.
	StacktraceLevel string `toml:"stacktrace_level,omitempty"`
	// DisableCaller stops annotating logs with the calling function's file
	// name and line number. By default, all logs are annotated.
	DisableCaller bool `toml:"disable_caller,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values (if they
// have one).
func (c *ConsoleConfig) InitDefaults() {
	if c.Level == "" {
		c.Level = DefaultConsoleLevel
	}
	if c.Format == "" {
		c.Format = "human"
	}
	if c.StacktraceLevel == "" {
		c.StacktraceLevel = DefaultStacktraceLevel
	}
}

var zapLogger = zap.NewNop()

// Setup configures the logging library with the given config.
func Setup(cfg Config, opts ...Option) error {
	o := applyOptions(opts)
	cfg.InitDefaults()
	return setupConsole(cfg.Console, o)
}

func setupConsole(cfg ConsoleConfig, opts options) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return serrors.Wrap("unable to parse log.console.level", err, "level", cfg.Level)
	}
	encoding := "console"
	switch strings.ToLower(cfg.Format) {
	case "human":
	case "json":
		encoding = "json"
	default:
		return serrors.New("unknown log.console.format", "format", cfg.Format)
	}
	zapOpts := []zap.Option{zap.AddCallerSkip(1)}
	if cfg.StacktraceLevel != "none" {
		var stacktraceLevel zapcore.Level
		if err := stacktraceLevel.UnmarshalText([]byte(cfg.StacktraceLevel)); err != nil {
			return serrors.Wrap("unable to parse log.console.stacktrace_level", err,
				"level", cfg.StacktraceLevel)
		}
		zapOpts = append(zapOpts, zap.AddStacktrace(stacktraceLevel))
	}
	zapOpts = append(zapOpts, opts.zapOptions()...)

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000Z0700"))
	}
	if encoding == "json" {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		// The console is the error stream; stdout carries classification results.
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := zCfg.Build(zapOpts...)
	if err != nil {
		return serrors.Wrap("creating logger", err)
	}
	zapLogger = logger
	zap.ReplaceGlobals(logger)
	return nil
}

// HandlePanic catches panics and logs them.
func HandlePanic() {
	if msg := recover(); msg != nil {
		zapLogger.Error("Panic", zap.Any("msg", msg), zap.ByteString("stack", debug.Stack()))
		zapLogger.Error("=====================> Service panicked!")
		Flush()
		os.Exit(255)
	}
}

// Flush writes the logs to the underlying buffer.
func Flush() {
	// Sync errors on stderr are expected on some platforms and carry no information.
	_ = zapLogger.Sync()
}

// Discard sets the root logger up to discard all log entries. This is useful
// for testing.
func Discard() {
	zapLogger = zap.NewNop()
}

// Debug logs at debug level.
func Debug(msg string, ctx ...any) {
	if zapLogger.Core().Enabled(zapcore.DebugLevel) {
		zapLogger.Debug(msg, convertCtx(ctx)...)
	}
}

// Info logs at info level.
func Info(msg string, ctx ...any) {
	if zapLogger.Core().Enabled(zapcore.InfoLevel) {
		zapLogger.Info(msg, convertCtx(ctx)...)
	}
}

// Error logs at error level.
func Error(msg string, ctx ...any) {
	if zapLogger.Core().Enabled(zapcore.ErrorLevel) {
		zapLogger.Error(msg, convertCtx(ctx)...)
	}
}

// Logger describes the logger interface.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Enabled(lvl Level) bool
}

type logger struct {
	logger *zap.Logger
}

// New creates a logger with the given context.
func New(ctx ...any) Logger {
	return &logger{logger: zapLogger.With(convertCtx(ctx)...)}
}

// Root returns the root logger. It's a logger without any context.
func Root() Logger {
	return &logger{logger: zapLogger}
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(zapcore.Level(lvl))
}

// WithOptions returns a copy of the logger with the zap options applied.
func (l *logger) WithOptions(opts ...zap.Option) Logger {
	return &logger{logger: l.logger.WithOptions(opts...)}
}

func convertCtx(ctx []any) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			key = fmt.Sprint(ctx[i])
		}
		fields = append(fields, zap.Any(key, ctx[i+1]))
	}
	return fields
}
