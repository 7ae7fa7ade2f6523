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

// grouper classifies fixed length packets against an ordered list of ternary
// rules. It builds lookup tables that fit into a memory budget and prints the
// id of the first matching rule for every packet.
package main

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/grouper/grouper/grouper/config"
	"github.com/grouper/grouper/grouper/pipeline"
	"github.com/grouper/grouper/pkg/classify"
	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/metrics"
	"github.com/grouper/grouper/pkg/private/processmetrics"
	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/private/app/command"
	"github.com/grouper/grouper/private/app/feature"
	"github.com/grouper/grouper/private/app/launcher"
)

func main() {
	var cfg config.Config
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	// Scheduling statistics are optional, they are missing on some platforms.
	if sched, err := processmetrics.New(); err == nil {
		registry.MustRegister(sched)
	}
	r := &runner{
		cfg:      &cfg,
		registry: registry,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	application := launcher.Application{
		TOMLConfig: &cfg,
		Use:        "grouper <max_memory_bytes> <policy_file> [<input_file>] [<output_file>]",
		Short:      "Classify packets against ternary rules",
		Long: `grouper reads a policy of ternary rules, builds lookup tables that fit
into max_memory_bytes and classifies the packets of the input. For every
packet the 1-based id of the first matching rule, or 0, is written to the
output on its own line.

Input and output default to the standard streams. If an input or output
file cannot be opened, grouper logs a warning and uses the standard stream
instead. A summary of the timings in microseconds is written to standard
error as a JSON line.`,
		Args:  cobra.RangeArgs(2, 4),
		Flags: registerFlags,
		Commands: []func(command.Pather) *cobra.Command{
			newPlan,
			func(p command.Pather) *cobra.Command {
				return command.NewSample(p, "grouper", &cfg)
			},
			command.NewGendocs,
		},
		Registerer: registry,
		Main:       r.run,
	}
	application.Run()
}

func registerFlags(flags *pflag.FlagSet) map[string]string {
	flags.String("input-format", "", "Format of the input (raw|pcap) (default raw)")
	flags.String("pcap-layer", "", "Classified part of captured frames (frame|payload) "+
		"(default frame)")
	flags.Int("workers", 0, "Number of cores used to build the tables "+
		"(default: number of CPUs)")
	flags.Int("threads-per-core-cap", 0, "Maximum number of fill tasks per core "+
		"(default 100)")
	flags.Int("output-buffer-size", 0, "Size of the result buffer in bytes (default 65536)")
	flags.String("metrics.prometheus", "", "Address to export prometheus metrics on")
	flags.StringSlice("features", nil, "Enabled features ("+
		feature.String(&feature.Default{}, "|")+")")
	return map[string]string{
		"classify.input_format":       "input-format",
		"classify.pcap_layer":         "pcap-layer",
		"classify.output_buffer_size": "output-buffer-size",
		"build.workers":               "workers",
		"build.threads_per_core_cap":  "threads-per-core-cap",
		"metrics.prometheus":          "metrics.prometheus",
		"features.enabled":            "features",
	}
}

type runner struct {
	cfg      *config.Config
	registry *prometheus.Registry
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
}

func (r *runner) run(ctx context.Context, args []string) error {
	memoryBytes, err := parseMemory(args[0])
	if err != nil {
		return err
	}
	ctx = log.CtxWith(ctx, log.New("id", r.cfg.General.ID))
	p := pipeline.New(pipeline.Config{
		MemoryBytes:  memoryBytes,
		BuildOptions: r.cfg.Build.Options(),
		Features:     r.cfg.Features.Set(),
		Metrics:      classify.NewMetrics(metrics.WithRegistry(r.registry)),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, errCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer log.HandlePanic()
		return r.cfg.Metrics.ServePrometheus(errCtx, r.registry)
	})
	g.Go(func() error {
		defer log.HandlePanic()
		defer cancel()
		return r.classify(errCtx, p, args)
	})
	return g.Wait()
}

func (r *runner) classify(ctx context.Context, p *pipeline.Pipeline, args []string) error {
	logger := log.FromCtx(ctx)
	policyFile := args[1]
	f, err := os.Open(policyFile)
	if err != nil {
		return serrors.Wrap("opening policy file", err, "file", policyFile)
	}
	defer f.Close()
	if err := p.LoadPolicy(ctx, f); err != nil {
		return serrors.Wrap("loading policy", err, "file", policyFile)
	}
	if err := p.BuildTables(ctx); err != nil {
		return err
	}

	in, closeIn := r.openInput(ctx, optionalArg(args, 2))
	defer closeIn()
	out, closeOut := r.openOutput(ctx, optionalArg(args, 3))
	src, err := classify.NewSource(r.cfg.Classify.InputFormat, in, p.Policy().PacketLength,
		classify.WithLayer(r.cfg.Classify.PcapLayer))
	if err != nil {
		closeOut()
		return serrors.Wrap("opening input", err)
	}
	dst := classify.NewLineWriter(out, r.cfg.Classify.OutputBufferSize)
	summary, err := p.Classify(ctx, src, dst)
	if err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return serrors.Wrap("closing output", err)
	}
	if ps, ok := src.(*classify.PcapSource); ok && ps.Skipped() > 0 {
		logger.Info("Skipped frames without payload", "frames", ps.Skipped())
	}
	logger.Info("Packets classified", "packets", summary.Packets,
		"matched", summary.Matched, "duration", summary.Real)
	return p.WriteSummary(r.stderr)
}

// openInput opens the input file. The standard input is used if no file is
// given or if it cannot be opened.
func (r *runner) openInput(ctx context.Context, name string) (io.Reader, func()) {
	if name == "" || name == "-" {
		return r.stdin, func() {}
	}
	f, err := os.Open(name)
	if err != nil {
		log.FromCtx(ctx).Error("Cannot open input file, reading standard input",
			"file", name, "err", err)
		return r.stdin, func() {}
	}
	return f, func() { f.Close() }
}

// openOutput creates the output file. The standard output is used if no file
// is given or if it cannot be created.
func (r *runner) openOutput(ctx context.Context, name string) (io.Writer, func() error) {
	if name == "" || name == "-" {
		return r.stdout, func() error { return nil }
	}
	f, err := os.Create(name)
	if err != nil {
		log.FromCtx(ctx).Error("Cannot create output file, writing standard output",
			"file", name, "err", err)
		return r.stdout, func() error { return nil }
	}
	return f, f.Close
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func parseMemory(arg string) (uint64, error) {
	memoryBytes, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, serrors.Wrap("parsing max_memory_bytes", err, "value", arg)
	}
	if memoryBytes == 0 {
		return 0, serrors.New("max_memory_bytes must be positive")
	}
	return memoryBytes, nil
}
