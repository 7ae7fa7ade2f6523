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

//go:build linux

package processmetrics

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"

	"github.com/grouper/grouper/pkg/private/serrors"
)

type schedCollector struct {
	mu      sync.Mutex
	pid     int
	taskDir *os.File
	// threads is rescanned only if the number of entries in taskDir changes.
	threads     procfs.Procs
	threadCount uint64
	running     uint64
	runnable    uint64
}

// New creates a collector for the scheduling statistics of the process.
func New() (prometheus.Collector, error) {
	pid := os.Getpid()
	path := filepath.Join(procfs.DefaultMountPoint, strconv.Itoa(pid), "task")
	taskDir, err := os.Open(path)
	if err != nil {
		return nil, serrors.Wrap("opening task directory", err, "path", path)
	}
	c := &schedCollector{pid: pid, taskDir: taskDir}
	if err := c.update(); err != nil {
		taskDir.Close()
		return nil, serrors.Wrap("reading scheduling statistics", err)
	}
	return c, nil
}

func (c *schedCollector) update() error {
	var st syscall.Stat_t
	if err := syscall.Fstat(int(c.taskDir.Fd()), &st); err != nil {
		return err
	}
	//nolint:unconvert // Nlink is not 64 bit on every architecture.
	count := uint64(st.Nlink) - 2
	if count != c.threadCount || c.threads == nil {
		threads, err := procfs.AllThreads(c.pid)
		if err != nil {
			return err
		}
		c.threads, c.threadCount = threads, count
	}
	var running, runnable uint64
	var err error
	for _, thread := range c.threads {
		stat, threadErr := thread.Schedstat()
		if threadErr != nil {
			// The thread exited. The others still count.
			err = threadErr
			continue
		}
		running += stat.RunningNanoseconds
		runnable += stat.WaitingNanoseconds
	}
	c.running, c.runnable = running, runnable
	return err
}

func (c *schedCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *schedCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	_ = c.update()
	running, runnable := c.running, c.runnable
	c.mu.Unlock()

	ch <- prometheus.MustNewConstMetric(runningTime, prometheus.CounterValue,
		float64(running)/1e9)
	ch <- prometheus.MustNewConstMetric(runnableTime, prometheus.CounterValue,
		float64(runnable)/1e9)
	ch <- prometheus.MustNewConstMetric(maxProcs, prometheus.GaugeValue,
		float64(runtime.GOMAXPROCS(-1)))
}
