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

// Package launcher runs grouper applications. It builds the cobra command,
// loads the TOML configuration, overlays command line flags, sets up logging
// and passes control to the application's Main function.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/go-viper/mapstructure/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/private/app/command"
	libconfig "github.com/grouper/grouper/private/config"
)

// Configuration keys and flag names handled by the launcher itself.
const (
	cfgConfigFile                = "config"
	cfgLogConsoleLevel           = "log.console.level"
	cfgLogConsoleFormat          = "log.console.format"
	cfgLogConsoleStacktraceLevel = "log.console.stacktrace_level"
)

// LoggingConfig is implemented by application configurations that carry a
// logging block. Applications without one log with the defaults.
type LoggingConfig interface {
	LogConfig() log.Config
}

// Application models a grouper command line application.
type Application struct {
	// TOMLConfig holds the Go data structure for the application-specific
	// TOML configuration. It is loaded from the --config file, overlaid with
	// the bound flags, defaulted and validated before Main runs.
	TOMLConfig libconfig.Config

	// Use, Short and Long describe the root command. Args validates the
	// positional arguments.
	Use   string
	Short string
	Long  string
	Args  cobra.PositionalArgs

	// Flags registers application specific flags. The returned map binds
	// configuration keys (dot separated TOML paths) to flag names. A bound
	// flag overrides the configuration file if it is set on the command line.
	Flags func(flags *pflag.FlagSet) map[string]string

	// Commands are added as subcommands of the root command.
	Commands []func(command.Pather) *cobra.Command

	// Registerer receives the log entries counter. If nil, the default
	// prometheus registerer is used.
	Registerer prometheus.Registerer

	// Main is the custom logic of the application. It gets the positional
	// arguments. If Main returns an error, Run exits with a non-zero code.
	Main func(ctx context.Context, args []string) error

	// ErrorWriter specifies where error output should be printed. If nil,
	// os.Stderr is used.
	ErrorWriter io.Writer

	config   *viper.Viper
	bindings map[string]string
}

// Run sets up the harness and passes control to Main. It uses os.Args and
// exits the process with code 1 on a fatal error.
func (a *Application) Run() {
	if err := a.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(a.errorWriter(), "fatal error: %v\n", err)
		log.Flush()
		os.Exit(1)
	}
}

// Execute runs the application with the given command line arguments. The
// application stops when ctx is done or on SIGINT and SIGTERM.
func (a *Application) Execute(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, err := a.newCommand(filepath.Base(os.Args[0]))
	if err != nil {
		return err
	}
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (a *Application) newCommand(executable string) (*cobra.Command, error) {
	use := a.Use
	if use == "" {
		use = executable
	}
	cmd := &cobra.Command{
		Use:           use,
		Short:         a.Short,
		Long:          a.Long,
		Args:          a.Args,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.executeCommand(cmd.Context(), cmd.Flags(), args)
		},
	}
	flags := cmd.Flags()
	flags.String(cfgConfigFile, "", "TOML configuration file")
	flags.String(cfgLogConsoleLevel, "", "Console logging level (debug|info|error)")
	flags.String(cfgLogConsoleFormat, "", "Console logging format (human|json)")
	flags.String(cfgLogConsoleStacktraceLevel, "",
		"Level from which on stack traces are logged (debug|info|error|none)")

	a.bindings = map[string]string{
		cfgLogConsoleLevel:           cfgLogConsoleLevel,
		cfgLogConsoleFormat:          cfgLogConsoleFormat,
		cfgLogConsoleStacktraceLevel: cfgLogConsoleStacktraceLevel,
	}
	if a.Flags != nil {
		for key, name := range a.Flags(flags) {
			a.bindings[key] = name
		}
	}
	a.config = viper.New()
	for key, name := range a.bindings {
		f := flags.Lookup(name)
		if f == nil {
			return nil, serrors.New("binding unknown flag", "key", key, "flag", name)
		}
		if err := a.config.BindPFlag(key, f); err != nil {
			return nil, serrors.Wrap("binding flag", err, "key", key, "flag", name)
		}
	}
	if err := a.config.BindPFlag(cfgConfigFile, flags.Lookup(cfgConfigFile)); err != nil {
		return nil, serrors.Wrap("binding flag", err, "flag", cfgConfigFile)
	}
	pather := command.StringPather(executable)
	for _, newCmd := range a.Commands {
		cmd.AddCommand(newCmd(pather))
	}
	return cmd, nil
}

func (a *Application) executeCommand(
	ctx context.Context,
	flags *pflag.FlagSet,
	args []string,
) error {
	if err := a.loadConfig(flags); err != nil {
		return err
	}
	if err := log.Setup(a.logging(), log.WithEntriesCounter(a.entriesCounter())); err != nil {
		return serrors.Wrap("initialize logging", err)
	}
	defer log.Flush()
	defer log.HandlePanic()

	if a.TOMLConfig != nil {
		if err := a.TOMLConfig.Validate(); err != nil {
			return serrors.Wrap("validate config", err)
		}
	}
	if a.Main == nil {
		return nil
	}
	return a.Main(ctx, args)
}

// loadConfig loads the configuration file, overlays the flags that were set
// on the command line and initializes the defaults.
func (a *Application) loadConfig(flags *pflag.FlagSet) error {
	if a.TOMLConfig == nil {
		return nil
	}
	if file := a.config.GetString(cfgConfigFile); file != "" {
		if err := libconfig.LoadFile(file, a.TOMLConfig); err != nil {
			return serrors.Wrap("loading config from file", err, "file", file)
		}
	}
	if err := a.overlayFlags(flags); err != nil {
		return err
	}
	a.TOMLConfig.InitDefaults()
	return nil
}

func (a *Application) overlayFlags(flags *pflag.FlagSet) error {
	keys := make([]string, 0, len(a.bindings))
	for key, name := range a.bindings {
		if flags.Changed(name) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	overlay := viper.New()
	for _, key := range keys {
		overlay.Set(key, a.config.Get(key))
	}
	err := overlay.Unmarshal(a.TOMLConfig, func(c *mapstructure.DecoderConfig) {
		c.TagName = "toml"
	})
	if err != nil {
		return serrors.Wrap("applying flags to config", err, "keys", keys)
	}
	return nil
}

func (a *Application) logging() log.Config {
	if lc, ok := a.TOMLConfig.(LoggingConfig); ok {
		return lc.LogConfig()
	}
	cfg := log.Config{
		Console: log.ConsoleConfig{
			Level:           a.config.GetString(cfgLogConsoleLevel),
			Format:          a.config.GetString(cfgLogConsoleFormat),
			StacktraceLevel: a.config.GetString(cfgLogConsoleStacktraceLevel),
		},
	}
	cfg.InitDefaults()
	return cfg
}

func (a *Application) entriesCounter() log.EntriesCounter {
	registerer := a.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	logEntriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lib_log_emitted_entries_total",
			Help: "Total number of log entries emitted.",
		},
		[]string{"level"},
	)
	if err := registerer.Register(logEntriesTotal); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return log.EntriesCounter{}
		}
		logEntriesTotal = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return log.EntriesCounter{
		Debug: logEntriesTotal.With(prometheus.Labels{"level": "debug"}),
		Info:  logEntriesTotal.With(prometheus.Labels{"level": "info"}),
		Error: logEntriesTotal.With(prometheus.Labels{"level": "error"}),
	}
}

func (a *Application) errorWriter() io.Writer {
	if a.ErrorWriter != nil {
		return a.ErrorWriter
	}
	return os.Stderr
}
