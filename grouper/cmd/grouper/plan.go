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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/grouper/grouper/grouper/pipeline"
	"github.com/grouper/grouper/pkg/bitarray"
	"github.com/grouper/grouper/pkg/policy"
	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/pkg/tables"
	"github.com/grouper/grouper/private/app/command"
	"github.com/grouper/grouper/private/app/feature"
)

// planReport is the output of the plan command.
type planReport struct {
	PolicyFile    string      `json:"policy_file" yaml:"policy_file"`
	PacketLength  uint64      `json:"packet_length" yaml:"packet_length"`
	BudgetBytes   uint64      `json:"budget_bytes" yaml:"budget_bytes"`
	RequiredBytes uint64      `json:"required_bytes" yaml:"required_bytes"`
	Plan          tables.Plan `json:"plan" yaml:"plan"`
}

func newPlan(pather command.Pather) *cobra.Command {
	var flags struct {
		format   string
		noColor  bool
		features []string
	}
	cmd := &cobra.Command{
		Use:   "plan <max_memory_bytes> <policy_file>",
		Short: "Show the table layout for a policy and a memory budget",
		Example: fmt.Sprintf(`  %[1]s plan 1048576 rules.pol
  %[1]s plan 4096 rules.pol --format json
  %[1]s plan 4096 rules.pol --features force_multi_table`, pather.CommandPath()),
		Long: `'plan' sizes the lookup tables for the policy without building them.

It reports whether the whole pattern fits into a single table or how the
relevant bits are sliced into several tables, together with the memory the
tables need. If the budget is too small, the minimum budget is reported in the
error.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			memoryBytes, err := parseMemory(args[0])
			if err != nil {
				return err
			}
			features, err := feature.ParseDefault(flags.features)
			if err != nil {
				return err
			}
			pol, err := policy.LoadFile(args[1])
			if err != nil {
				return err
			}
			var opts []tables.PlanOption
			if features.ForceMultiTable {
				opts = append(opts, tables.WithoutSingleTable())
			}
			plan, err := tables.NewPlan(pipeline.MemoryBits(memoryBytes), pol.RuleCount,
				pol.RelevantBits, opts...)
			if err != nil {
				return err
			}
			report := planReport{
				PolicyFile:    args[1],
				PacketLength:  pol.PacketLength,
				BudgetBytes:   memoryBytes,
				RequiredBytes: bitarray.BytesFor(plan.RequiredBits),
				Plan:          plan,
			}
			w := cmd.OutOrStdout()
			switch flags.format {
			case "human":
				report.Human(w, !flags.noColor)
				return nil
			case "json":
				return report.JSON(w)
			case "yaml":
				return yaml.NewEncoder(w).Encode(report)
			default:
				return serrors.New("output format not supported", "format", flags.format)
			}
		},
	}
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|json|yaml)")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringSliceVar(&flags.features, "features", nil, "Enabled features ("+
		feature.String(&feature.Default{}, "|")+")")
	return cmd
}

// Human writes human readable output to the writer.
func (r planReport) Human(w io.Writer, colored bool) {
	noColor := color.New()
	noColor.DisableColor()
	keys, mode := noColor, noColor
	if colored {
		keys = color.New(color.FgHiCyan)
		mode = color.New(color.FgGreen)
	}
	p := r.Plan
	fmt.Fprintf(w, "%s: %d rules, %d relevant bits, %d byte packets\n",
		keys.Sprint("Policy"), p.Rules, p.RelevantBits, r.PacketLength)
	fmt.Fprintf(w, "%s: %d bytes\n", keys.Sprint("Budget"), r.BudgetBytes)
	fmt.Fprintf(w, "%s: %s (%d tables, %d bytes)\n",
		keys.Sprint("Mode"), mode.Sprint(p.Mode), p.Tables, r.RequiredBytes)

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Slices", "Count", "Width", "Rows", "Row bits", "Bytes"})
	table.AppendBulk(r.rows())
	table.Render()
}

func (r planReport) rows() [][]string {
	p := r.Plan
	row := func(kind string, count, width, height, rowBits uint64) []string {
		return []string{
			kind,
			strconv.FormatUint(count, 10),
			strconv.FormatUint(width, 10),
			strconv.FormatUint(height, 10),
			strconv.FormatUint(rowBits, 10),
			strconv.FormatUint(bitarray.BytesFor(count*height*rowBits), 10),
		}
	}
	if p.Dimensions == nil {
		return [][]string{row("single", 1, p.RelevantBits, 1<<p.RelevantBits, p.IDWidth*8)}
	}
	d := p.Dimensions
	var rows [][]string
	if d.EvenCount > 0 {
		rows = append(rows, row("even", d.EvenCount, d.EvenWidth, d.EvenHeight, d.RowBytes*8))
	}
	if d.OddCount > 0 {
		rows = append(rows, row("odd", d.OddCount, d.OddWidth, d.OddHeight, d.RowBytes*8))
	}
	return rows
}

// JSON writes the report as a json object to the writer.
func (r planReport) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}
