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
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric descriptor indices and descriptor table
const (
	samplesDesc = iota
	dirtyEventsDesc
	uniquePagesDesc
	scanTimeDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	samplesDesc: prometheus.NewDesc(
		"dirtytrack_samples_total",
		"Number of samples collected during the run",
		[]string{"pid"}, nil,
	),
	dirtyEventsDesc: prometheus.NewDesc(
		"dirtytrack_dirty_events_total",
		"Number of dirty-page events over all samples",
		[]string{"pid"}, nil,
	),
	uniquePagesDesc: prometheus.NewDesc(
		"dirtytrack_unique_pages",
		"Number of distinct page addresses ever seen dirty",
		[]string{"pid"}, nil,
	),
	scanTimeDesc: prometheus.NewDesc(
		"dirtytrack_scan_time_seconds_total",
		"Total time spent scanning for dirty pages",
		[]string{"pid"}, nil,
	),
}

// collector exposes the run counters of one tracker. The tracker
// mutates its counters synchronously in the sampling loop, so the
// collector must be gathered from the same goroutine, which is how the
// textfile export at shutdown uses it.
type collector struct {
	tracker *Tracker
	pid     string
}

// NewCollector returns a prometheus collector over the tracker's run
// counters.
func NewCollector(t *Tracker) prometheus.Collector {
	return &collector{
		tracker: t,
		pid:     strconv.Itoa(t.config.Pid),
	}
}

// Describe implements prometheus.Collector.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		descriptors[samplesDesc],
		prometheus.CounterValue,
		float64(c.tracker.SampleCount()),
		c.pid,
	)
	ch <- prometheus.MustNewConstMetric(
		descriptors[dirtyEventsDesc],
		prometheus.CounterValue,
		float64(c.tracker.TotalDirtyEvents()),
		c.pid,
	)
	ch <- prometheus.MustNewConstMetric(
		descriptors[uniquePagesDesc],
		prometheus.GaugeValue,
		float64(c.tracker.UniquePageCount()),
		c.pid,
	)
	ch <- prometheus.MustNewConstMetric(
		descriptors[scanTimeDesc],
		prometheus.CounterValue,
		c.tracker.ScanTime().Seconds(),
		c.pid,
	)
}
