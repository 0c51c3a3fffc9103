// Copyright 2024 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dirtytrack

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
)

type trackerState int

const (
	trackerInit trackerState = iota
	trackerRunning
	trackerStopped
)

// Tracker owns one sampling run against one process. All state of the
// run lives here; nothing is shared between trackers or stored in
// package globals.
//
// The run is fully synchronous: every tick runs to completion and the
// only suspension point is the end-of-tick sleep. A cancelled context
// is observed at the top of the next tick, a sample in progress always
// completes.
type Tracker struct {
	config          *Config
	pagemap         *os.File
	clearRefs       *os.File
	pagemapScanUsed bool
	scanner         pageScanner
	state           trackerState

	// Collaborators behind the kernel interfaces. Tests replace
	// these to sample synthetic state.
	readRegions   func() ([]Region, error)
	resetTracking func() error

	startTime   time.Time
	samples     []Sample
	uniquePages *pageAddrSet
	totalEvents int
	scanTime    time.Duration

	skipLog Logger
}

// NewTracker returns a tracker in its initial state. Kernel resources
// are acquired by Run.
func NewTracker(config *Config) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	t := &Tracker{
		config:      config,
		uniquePages: newPageAddrSet(),
		skipLog:     rateLimit(pkgLogger{}, time.Second),
	}
	t.readRegions = func() ([]Region, error) {
		return readProcessRegions(config.Pid, config.MaxRegions)
	}
	return t, nil
}

// PagemapScanUsed tells whether the run uses the batched PAGEMAP_SCAN
// method. Valid after Run has started.
func (t *Tracker) PagemapScanUsed() bool { return t.pagemapScanUsed }

// Ran tells whether the run got past setup and into sampling. False
// after a setup failure: there is nothing to report then.
func (t *Tracker) Ran() bool { return !t.startTime.IsZero() }

// SampleCount returns the number of samples collected so far.
func (t *Tracker) SampleCount() int { return len(t.samples) }

// TotalDirtyEvents returns the number of dirty-page events over all
// samples, counting recurring addresses every time they occur.
func (t *Tracker) TotalDirtyEvents() int { return t.totalEvents }

// UniquePageCount returns the number of distinct page addresses ever
// seen dirty during the run.
func (t *Tracker) UniquePageCount() int { return t.uniquePages.size() }

// ScanTime returns the total time spent scanning for dirty pages.
func (t *Tracker) ScanTime() time.Duration { return t.scanTime }

// Run executes the sampling run to completion. It acquires the
// per-process kernel resources, probes for PAGEMAP_SCAN, resets dirty
// tracking once so the first sample reports only writes after start,
// and then samples at the configured cadence until the duration
// elapses, the sample ceiling is reached, or ctx is cancelled.
//
// A setup failure or a mid-run failure to produce a sample at all is
// returned as an error; samples collected before a mid-run failure
// remain available through Report.
func (t *Tracker) Run(ctx context.Context) error {
	if t.state != trackerInit {
		return errors.New("tracking run already started")
	}
	if err := t.open(); err != nil {
		t.state = trackerStopped
		return err
	}
	defer t.close()
	t.state = trackerRunning

	if err := t.resetTracking(); err != nil {
		log.Warnf("initial soft-dirty reset failed: %v", err)
	}

	err := t.sampleLoop(ctx)
	t.state = trackerStopped
	return err
}

// open acquires the pagemap and clear_refs handles and selects the
// scanning method. On error nothing stays open.
func (t *Tracker) open() error {
	pagemap, err := procPagemapOpen(t.config.Pid)
	if err != nil {
		return err
	}
	clearRefs, err := procClearRefsOpen(t.config.Pid)
	if err != nil {
		pagemap.Close()
		return err
	}
	t.pagemap = pagemap
	t.clearRefs = clearRefs
	t.resetTracking = func() error {
		return clearSoftDirty(t.clearRefs)
	}

	ranges := ioctlRangeScanner{fd: int(pagemap.Fd())}
	t.pagemapScanUsed = probePagemapScan(ranges)
	if t.pagemapScanUsed {
		t.scanner = newPmscanScanner(ranges)
		log.Infof("PAGEMAP_SCAN: supported")
	} else {
		t.scanner = newSoftdirtyScanner(pagemap)
		log.Infof("PAGEMAP_SCAN: not supported, using soft-dirty bitmap fallback")
	}
	return nil
}

func (t *Tracker) close() {
	if t.pagemap != nil {
		t.pagemap.Close()
		t.pagemap = nil
	}
	if t.clearRefs != nil {
		t.clearRefs.Close()
		t.clearRefs = nil
	}
}

func (t *Tracker) sampleLoop(ctx context.Context) error {
	t.startTime = time.Now()
	interval := time.Duration(t.config.IntervalMs) * time.Millisecond
	duration := time.Duration(t.config.DurationS) * time.Second

	for {
		if ctx.Err() != nil {
			log.Infof("stop requested, ending run after %d samples", len(t.samples))
			return nil
		}
		if duration > 0 && time.Since(t.startTime) >= duration {
			log.Infof("duration elapsed, ending run after %d samples", len(t.samples))
			return nil
		}
		if len(t.samples) >= t.config.MaxSamples {
			log.Warnf("sample ceiling %d reached, ending run", t.config.MaxSamples)
			return nil
		}

		tickStart := time.Now()
		if err := t.collectSample(); err != nil {
			return errors.Wrap(err, "failed to collect sample")
		}
		if n := len(t.samples); n%10 == 0 {
			log.Infof("sample %d: %d dirty pages", n, len(t.samples[n-1].pages))
		}

		t.sleepUntilNextTick(ctx, sleepDuration(interval, time.Since(tickStart)))
	}
}

// collectSample runs one tick: re-read the memory map, scan it, record
// the sample and reset dirty tracking for the next tick.
func (t *Tracker) collectSample() error {
	regions, err := t.readRegions()
	if err != nil {
		return err
	}

	scanStart := time.Now()
	events, skipErr := t.scanner.scan(regions)
	t.scanTime += time.Since(scanStart)
	if skipErr != nil {
		t.skipLog.Warnf("regions skipped in sample %d: %v", len(t.samples), skipErr)
	}

	t.samples = append(t.samples, Sample{
		timestampMs: float64(time.Since(t.startTime).Microseconds()) / 1000.0,
		pages:       events,
	})
	for _, page := range events {
		t.uniquePages.record(page.addr)
	}
	t.totalEvents += len(events)

	if err := t.resetTracking(); err != nil {
		// The next maps read will notice if the process is gone.
		t.skipLog.Warnf("soft-dirty reset failed: %v", err)
	}
	return nil
}

// sleepDuration returns how long to sleep after a tick that took
// processing time: the cadence target is the configured interval, not
// interval plus processing. Never negative.
func sleepDuration(interval, processing time.Duration) time.Duration {
	if processing >= interval {
		return 0
	}
	return interval - processing
}

func (t *Tracker) sleepUntilNextTick(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		// Wake early; the stop is acted on at the top of the
		// next tick.
	case <-timer.C:
	}
}

// Report finalizes the collected samples and aggregates into the
// serializable report. Callable once the run has ended, also after a
// mid-run failure, in which case it covers what was collected.
func (t *Tracker) Report() *Report {
	samples := make([]ReportSample, 0, len(t.samples))
	for i := range t.samples {
		samples = append(samples, newReportSample(&t.samples[i], t.config.Pid, int(constPagesize)))
	}
	durationMs := 0.0
	if len(t.samples) > 0 {
		durationMs = t.samples[len(t.samples)-1].timestampMs
	}
	return &Report{
		Workload:           t.config.Workload,
		RootPid:            t.config.Pid,
		TrackChildren:      false,
		TrackingDurationMs: durationMs,
		PageSize:           int(constPagesize),
		PagemapScanUsed:    t.pagemapScanUsed,
		Samples:            samples,
		Summary: ReportSummary{
			TotalUniquePages:    t.uniquePages.size(),
			TotalDirtyEvents:    t.totalEvents,
			TotalDirtySizeBytes: int64(t.totalEvents) * constPagesize,
			SampleCount:         len(t.samples),
			IntervalMs:          t.config.IntervalMs,
		},
	}
}
