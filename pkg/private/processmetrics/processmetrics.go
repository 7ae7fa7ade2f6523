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

// Package processmetrics exports how much CPU time the scheduler granted to
// the threads of the process and how long they waited for a core. Together
// with the classification counters this tells whether a slow run was starved
// of CPU.
//
// The collector exports:
//
//	process_running_seconds_total   time all threads spent on a core
//	process_runnable_seconds_total  time all threads waited for a core
//	go_sched_maxprocs_threads       the current GOMAXPROCS setting
//
// Only Linux is supported. On other platforms New returns ErrUnsupported.
package processmetrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrUnsupported indicates that the platform does not expose scheduling
// statistics.
var ErrUnsupported = errors.New("scheduling statistics not supported")

var (
	runningTime = prometheus.NewDesc(
		"process_running_seconds_total",
		"CPU time the threads of the process spent running.",
		nil, nil,
	)
	runnableTime = prometheus.NewDesc(
		"process_runnable_seconds_total",
		"Time the threads of the process were runnable but waited for a core.",
		nil, nil,
	)
	maxProcs = prometheus.NewDesc(
		"go_sched_maxprocs_threads",
		"The current runtime.GOMAXPROCS setting.",
		nil, nil,
	)
)
