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

package launcher_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/private/app/command"
	"github.com/grouper/grouper/private/app/launcher"
	"github.com/grouper/grouper/private/config"
)

type appSection struct {
	Workers int    `toml:"workers,omitempty"`
	Name    string `toml:"name,omitempty"`
}

type testConfig struct {
	Logging log.Config `toml:"log,omitempty"`
	App     appSection `toml:"app,omitempty"`
}

func (c *testConfig) InitDefaults() {
	c.Logging.InitDefaults()
	if c.App.Name == "" {
		c.App.Name = "default"
	}
}

func (c *testConfig) Validate() error {
	if c.App.Workers < 0 {
		return serrors.New("negative workers", "workers", c.App.Workers)
	}
	return c.Logging.Validate()
}

func (c *testConfig) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, "[app]\nworkers = 1\n")
}

func (c *testConfig) ConfigName() string { return "test" }

func (c *testConfig) LogConfig() log.Config { return c.Logging }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "test.toml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestExecute(t *testing.T) {
	defer log.Discard()
	file := writeConfig(t, "[app]\nworkers = 3\nname = \"file\"\n")

	tests := map[string]struct {
		args      []string
		want      appSection
		wantArgs  []string
		assertErr assert.ErrorAssertionFunc
	}{
		"defaults": {
			args:      []string{"a", "b"},
			want:      appSection{Name: "default"},
			wantArgs:  []string{"a", "b"},
			assertErr: assert.NoError,
		},
		"config file": {
			args:      []string{"--config", file, "a"},
			want:      appSection{Workers: 3, Name: "file"},
			wantArgs:  []string{"a"},
			assertErr: assert.NoError,
		},
		"flag overrides file": {
			args:      []string{"--config", file, "--workers", "7", "a"},
			want:      appSection{Workers: 7, Name: "file"},
			wantArgs:  []string{"a"},
			assertErr: assert.NoError,
		},
		"unset flag keeps file value": {
			args:      []string{"--config", file, "--name", "flag"},
			want:      appSection{Workers: 3, Name: "flag"},
			assertErr: assert.NoError,
		},
		"invalid config": {
			args:      []string{"--workers=-1"},
			assertErr: assert.Error,
		},
		"missing config file": {
			args:      []string{"--config", filepath.Join(t.TempDir(), "missing.toml")},
			assertErr: assert.Error,
		},
		"invalid log level": {
			args:      []string{"--log.console.level", "loud"},
			assertErr: assert.Error,
		},
		"too many args": {
			args:      []string{"a", "b", "c"},
			assertErr: assert.Error,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var cfg testConfig
			var gotArgs []string
			app := launcher.Application{
				TOMLConfig: &cfg,
				Args:       cobra.MaximumNArgs(2),
				Flags: func(flags *pflag.FlagSet) map[string]string {
					flags.Int("workers", 0, "workers")
					flags.String("name", "", "name")
					return map[string]string{
						"app.workers": "workers",
						"app.name":    "name",
					}
				},
				Registerer: prometheus.NewRegistry(),
				Main: func(_ context.Context, args []string) error {
					gotArgs = args
					return nil
				},
			}
			err := app.Execute(context.Background(), tc.args)
			tc.assertErr(t, err)
			if err != nil {
				return
			}
			assert.Equal(t, tc.want, cfg.App)
			if len(tc.wantArgs) == 0 {
				assert.Empty(t, gotArgs)
				return
			}
			assert.Equal(t, tc.wantArgs, gotArgs)
		})
	}
}

func TestExecuteLogFlags(t *testing.T) {
	defer log.Discard()
	var cfg testConfig
	app := launcher.Application{
		TOMLConfig: &cfg,
		Registerer: prometheus.NewRegistry(),
	}
	err := app.Execute(context.Background(),
		[]string{"--log.console.level", "debug", "--log.console.format", "json"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Console.Level)
	assert.Equal(t, "json", cfg.Logging.Console.Format)
	assert.Equal(t, log.DefaultStacktraceLevel, cfg.Logging.Console.StacktraceLevel)
}

func TestExecuteMainError(t *testing.T) {
	defer log.Discard()
	mainErr := serrors.New("main failed")
	app := launcher.Application{
		Registerer: prometheus.NewRegistry(),
		Main: func(context.Context, []string) error {
			return mainErr
		},
	}
	assert.ErrorIs(t, app.Execute(context.Background(), nil), mainErr)
}

func TestExecuteUnknownBinding(t *testing.T) {
	app := launcher.Application{
		Flags: func(*pflag.FlagSet) map[string]string {
			return map[string]string{"app.workers": "workers"}
		},
	}
	assert.Error(t, app.Execute(context.Background(), nil))
}

func TestExecuteSubcommands(t *testing.T) {
	defer log.Discard()
	var cfg testConfig
	var out bytes.Buffer
	app := launcher.Application{
		TOMLConfig: &cfg,
		Commands: []func(command.Pather) *cobra.Command{
			func(p command.Pather) *cobra.Command {
				cmd := command.NewSample(p, "test", &cfg)
				cmd.SetOut(&out)
				return cmd
			},
		},
	}
	require.NoError(t, app.Execute(context.Background(), []string{"sample"}))
	assert.Equal(t, "[app]\nworkers = 1\n", out.String())
}
