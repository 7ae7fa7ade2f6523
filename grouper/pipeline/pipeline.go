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

// Package pipeline drives one grouper run: it loads the policy, sizes and
// builds the lookup tables and classifies the packet stream.
//
// A Pipeline moves through the states
//
//	Uninitialized -> PolicyLoaded -> TablesBuilt -> Classifying -> Drained
//
// without skipping any of them. Calling a step in the wrong state returns
// ErrInvalidState.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/grouper/grouper/pkg/classify"
	"github.com/grouper/grouper/pkg/log"
	"github.com/grouper/grouper/pkg/metrics"
	"github.com/grouper/grouper/pkg/policy"
	"github.com/grouper/grouper/pkg/private/serrors"
	"github.com/grouper/grouper/pkg/tables"
	"github.com/grouper/grouper/private/app/feature"
)

var (
	// ErrInvalidState indicates a step called out of order.
	ErrInvalidState = errors.New("invalid pipeline state")
	// ErrVerification indicates that the tables disagreed with a linear scan
	// of the rules.
	ErrVerification = errors.New("classification mismatch")
)

// State is the state of a Pipeline.
type State int

const (
	Uninitialized State = iota
	PolicyLoaded
	TablesBuilt
	Classifying
	Drained
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case PolicyLoaded:
		return "policy_loaded"
	case TablesBuilt:
		return "tables_built"
	case Classifying:
		return "classifying"
	case Drained:
		return "drained"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Config configures a Pipeline.
type Config struct {
	// MemoryBytes is the memory budget of the lookup tables.
	MemoryBytes uint64
	// BuildOptions are passed to the table builder.
	BuildOptions []tables.BuildOption
	// Features are the enabled feature flags.
	Features feature.Default
	// Metrics is optional.
	Metrics *classify.Metrics
	// Tracer records one span per step. The global tracer is used if nil.
	Tracer opentracing.Tracer
}

// Pipeline is a single grouper run. It is not safe for concurrent use.
type Pipeline struct {
	cfg     Config
	state   State
	created time.Time

	policy *policy.Policy
	plan   tables.Plan
	lookup classify.Lookup
	verify *verifier

	timings Timings
}

// New creates a pipeline in the Uninitialized state.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg, created: time.Now()}
}

// State returns the current state.
func (p *Pipeline) State() State {
	return p.state
}

// Policy returns the loaded policy. It is nil before LoadPolicy.
func (p *Pipeline) Policy() *policy.Policy {
	return p.policy
}

// Plan returns the sizing decision. It is the zero plan before BuildTables.
func (p *Pipeline) Plan() tables.Plan {
	return p.plan
}

// Timings returns the durations measured so far.
func (p *Pipeline) Timings() Timings {
	return p.timings
}

func (p *Pipeline) expect(s State) error {
	if p.state != s {
		return serrors.JoinNoStack(ErrInvalidState, nil, "state", p.state, "expected", s)
	}
	return nil
}

func (p *Pipeline) startSpan(ctx context.Context,
	step string) (opentracing.Span, context.Context) {

	tracer := p.cfg.Tracer
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}
	return opentracing.StartSpanFromContextWithTracer(ctx, tracer, "pipeline."+step)
}

func finishSpan(span opentracing.Span, err error) {
	if err != nil {
		ext.Error.Set(span, true)
		span.LogKV("error.message", err.Error())
	}
	span.Finish()
}

// LoadPolicy decodes the policy from r.
func (p *Pipeline) LoadPolicy(ctx context.Context, r io.Reader) (err error) {
	if err := p.expect(Uninitialized); err != nil {
		return err
	}
	span, ctx := p.startSpan(ctx, "load_policy")
	defer func() { finishSpan(span, err) }()

	start := time.Now()
	pol, err := policy.Decode(r)
	if err != nil {
		return err
	}
	p.policy = pol
	p.timings.Read = time.Since(start)
	span.SetTag("rules", pol.RuleCount)
	log.FromCtx(ctx).Debug("Policy loaded", "rules", pol.RuleCount,
		"relevant_bits", pol.RelevantBits, "packet_length", pol.PacketLength)
	p.state = PolicyLoaded
	return nil
}

// BuildTables sizes the tables for the memory budget and builds them. The
// rule masks of the policy are released afterwards unless verification is
// enabled.
func (p *Pipeline) BuildTables(ctx context.Context) (err error) {
	if err := p.expect(PolicyLoaded); err != nil {
		return err
	}
	span, ctx := p.startSpan(ctx, "build_tables")
	defer func() { finishSpan(span, err) }()

	logger := log.FromCtx(ctx)
	pol := p.policy

	var planOpts []tables.PlanOption
	if p.cfg.Features.ForceMultiTable {
		planOpts = append(planOpts, tables.WithoutSingleTable())
	}
	plan, err := tables.NewPlan(MemoryBits(p.cfg.MemoryBytes), pol.RuleCount,
		pol.RelevantBits, planOpts...)
	if err != nil {
		return err
	}
	p.plan = plan
	span.SetTag("mode", string(plan.Mode))
	span.SetTag("tables", plan.Tables)
	logger.Info("Building tables", "mode", plan.Mode, "tables", plan.Tables,
		"required_bytes", plan.RequiredBits/8, "budget_bytes", p.cfg.MemoryBytes)

	start := time.Now()
	var sizeBytes uint64
	switch plan.Mode {
	case tables.ModeSingle:
		st, err := tables.BuildSingle(ctx, pol)
		if err != nil {
			return serrors.Wrap("building single table", err)
		}
		p.lookup, sizeBytes = st, st.SizeBytes()
	default:
		mt, err := tables.Build(ctx, pol, *plan.Dimensions, p.cfg.BuildOptions...)
		if err != nil {
			return serrors.Wrap("building tables", err, "tables", plan.Tables)
		}
		p.lookup, sizeBytes = mt, mt.SizeBytes()
	}
	p.timings.Build = time.Since(start)

	if p.cfg.Features.Verify {
		p.verify = &verifier{policy: pol, lookup: p.lookup}
		p.lookup = p.verify
	} else {
		pol.Release()
	}
	if m := p.cfg.Metrics; m != nil {
		metrics.GaugeSet(m.BuildDuration, p.timings.Build.Seconds())
		metrics.GaugeSet(m.TableBytes, float64(sizeBytes))
		metrics.GaugeSet(m.Tables, float64(plan.Tables))
	}
	logger.Info("Tables built", "duration", p.timings.Build, "bytes", sizeBytes)
	p.state = TablesBuilt
	return nil
}

// Classify classifies every packet of src and writes the ids to dst. The
// pipeline is Drained afterwards, also if the run failed.
func (p *Pipeline) Classify(ctx context.Context, src classify.PacketSource,
	dst classify.ResultWriter) (_ classify.Summary, err error) {

	if err := p.expect(TablesBuilt); err != nil {
		return classify.Summary{}, err
	}
	span, ctx := p.startSpan(ctx, "classify")
	defer func() { finishSpan(span, err) }()
	span.SetTag("mode", string(p.plan.Mode))

	p.state = Classifying
	c := classify.Classifier{Lookup: p.lookup, Metrics: p.cfg.Metrics}
	summary, err := c.Run(ctx, src, dst)
	p.state = Drained
	p.timings.CPUProcess = summary.CPU
	p.timings.RealProcess = summary.Real
	p.timings.Packets = summary.Packets
	p.timings.Total = time.Since(p.created)
	span.SetTag("packets", summary.Packets)
	if err != nil {
		return summary, err
	}
	if p.verify != nil && p.verify.mismatches > 0 {
		return summary, serrors.JoinNoStack(ErrVerification, nil,
			"mismatches", p.verify.mismatches, "first_packet", p.verify.first,
			"table_id", p.verify.firstGot, "linear_id", p.verify.firstWant)
	}
	return summary, nil
}

// WriteSummary writes the timings as a single JSON line to w. It requires the
// Drained state.
func (p *Pipeline) WriteSummary(w io.Writer) error {
	if err := p.expect(Drained); err != nil {
		return err
	}
	raw, err := json.Marshal(p.timings)
	if err != nil {
		return serrors.Wrap("encoding summary", err)
	}
	if _, err := w.Write(append(raw, '\n')); err != nil {
		return serrors.Wrap("writing summary", err)
	}
	return nil
}

// MemoryBits converts a budget in bytes to bits. It saturates at the maximum
// uint64.
func MemoryBits(memoryBytes uint64) uint64 {
	hi, lo := bits.Mul64(memoryBytes, 8)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// Timings are the durations of a run.
type Timings struct {
	Read        time.Duration
	Build       time.Duration
	CPUProcess  time.Duration
	RealProcess time.Duration
	Total       time.Duration
	Packets     uint64
}

// MarshalJSON encodes the durations in microseconds.
func (t Timings) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Read        int64  `json:"read"`
		Build       int64  `json:"build"`
		CPUProcess  int64  `json:"cpu_process"`
		RealProcess int64  `json:"real_process"`
		Total       int64  `json:"total"`
		Packets     uint64 `json:"packets"`
	}{
		Read:        t.Read.Microseconds(),
		Build:       t.Build.Microseconds(),
		CPUProcess:  t.CPUProcess.Microseconds(),
		RealProcess: t.RealProcess.Microseconds(),
		Total:       t.Total.Microseconds(),
		Packets:     t.Packets,
	})
}

// verifier compares every table lookup with a linear scan of the rules.
type verifier struct {
	policy *policy.Policy
	lookup classify.Lookup

	packets    uint64
	mismatches uint64
	first      uint64
	firstGot   uint64
	firstWant  uint64
}

func (v *verifier) Classify(packet []byte) uint64 {
	v.packets++
	got := v.lookup.Classify(packet)
	if want := v.policy.Linear(packet); got != want {
		if v.mismatches == 0 {
			v.first, v.firstGot, v.firstWant = v.packets, got, want
		}
		v.mismatches++
	}
	return got
}
