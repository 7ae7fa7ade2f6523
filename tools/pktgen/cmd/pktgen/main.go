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

// pktgen generates policies and packet streams to test and benchmark grouper.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/policy"
	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/private/app/command"
	"github.com/grouper/grouper/private/app/launcher"
	"github.com/grouper/grouper/tools/pktgen"
)

func main() {
	var cfg pktgen.Config
	var expected string
	application := launcher.Application{
		TOMLConfig: &cfg,
		Use:        "pktgen <policy_file> [<output_file>]",
		Short:      "Generate packets for a grouper policy",
		Long: `pktgen writes packets for the policy to the output file, or to standard
output. A share of the packets is built to match a randomly chosen rule, the
others are uniformly random. With --expected the id of the first matching rule
of every packet is written to a second file, in the format grouper outputs.`,
		Args: cobra.RangeArgs(1, 2),
		Flags: func(flags *pflag.FlagSet) map[string]string {
			flags.Uint64("count", 0, "Number of packets (default 1000)")
			flags.Float64("match-ratio", 0, "Share of packets built to match a rule")
			flags.Uint64("seed", 0, "Seed of the random source (default random)")
			flags.String("format", "", "Output format (raw|pcap) (default raw)")
			flags.String("encapsulation", "", "JSON file with the frame headers of pcap output")
			flags.StringVar(&expected, "expected", "", "File the expected rule ids are written to")
			return map[string]string{
				"packets.count":         "count",
				"packets.match_ratio":   "match-ratio",
				"packets.seed":          "seed",
				"packets.format":        "format",
				"packets.encapsulation": "encapsulation",
			}
		},
		Commands: []func(command.Pather) *cobra.Command{
			newPolicy,
			func(p command.Pather) *cobra.Command {
				return command.NewSample(p, "pktgen", &cfg)
			},
		},
		Main: func(ctx context.Context, args []string) error {
			return generate(ctx, &cfg.Packets, args, expected, os.Stdout)
		},
	}
	application.Run()
}

func generate(
	ctx context.Context,
	cfg *pktgen.Packets,
	args []string,
	expected string,
	stdout io.Writer,
) error {
	pol, err := policy.LoadFile(args[0])
	if err != nil {
		return err
	}
	var encap *pktgen.Encapsulation
	if cfg.Encapsulation != "" {
		if encap, err = pktgen.LoadEncapsulation(cfg.Encapsulation); err != nil {
			return err
		}
	}
	gen, err := pktgen.NewGenerator(pol, newRand(cfg.Seed), cfg.MatchRatio)
	if err != nil {
		return err
	}

	out := stdout
	if len(args) > 1 && args[1] != "-" {
		f, err := os.Create(args[1])
		if err != nil {
			return serrors.Wrap("creating output file", err, "file", args[1])
		}
		defer f.Close()
		out = f
	}
	w, err := pktgen.NewWriter(cfg.Format, out, encap)
	if err != nil {
		return err
	}
	var expectedOut io.Writer
	if expected != "" {
		f, err := os.Create(expected)
		if err != nil {
			return serrors.Wrap("creating expected file", err, "file", expected)
		}
		defer f.Close()
		expectedOut = f
	}
	if err := gen.Generate(w, expectedOut, cfg.Count); err != nil {
		return err
	}
	log.FromCtx(ctx).Info("Packets generated", "packets", cfg.Count,
		"format", cfg.Format, "rules", pol.RuleCount)
	return nil
}

func newPolicy(pather command.Pather) *cobra.Command {
	var flags struct {
		relevantBits uint64
		seed         uint64
	}
	cmd := &cobra.Command{
		Use:   "policy <packet_length> <rules> [<output_file>]",
		Short: "Generate a random policy",
		Example: fmt.Sprintf(`  %[1]s policy 13 10000 rules.pol
  %[1]s policy 4 100 --relevant-bits 20`, pather.CommandPath()),
		Long: `'policy' writes a policy of random rules. Every rule position is '0', '1'
or '?' with equal probability. By default a rule covers all bits of the packet.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			spec := pktgen.PolicySpec{RelevantBits: flags.relevantBits}
			var err error
			if spec.PacketLength, err = strconv.ParseUint(args[0], 10, 64); err != nil {
				return serrors.Wrap("parsing packet_length", err, "value", args[0])
			}
			if spec.Rules, err = strconv.ParseUint(args[1], 10, 64); err != nil {
				return serrors.Wrap("parsing rules", err, "value", args[1])
			}
			out := cmd.OutOrStdout()
			if len(args) > 2 && args[2] != "-" {
				f, err := os.Create(args[2])
				if err != nil {
					return serrors.Wrap("creating policy file", err, "file", args[2])
				}
				defer f.Close()
				out = f
			}
			return pktgen.GeneratePolicy(out, newRand(flags.seed), spec)
		},
	}
	cmd.Flags().Uint64Var(&flags.relevantBits, "relevant-bits", 0,
		"Length of every rule (default: all bits of the packet)")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "Seed of the random source (default random)")
	return cmd
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed))
}
