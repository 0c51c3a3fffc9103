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
	"encoding/json"
	"fmt"
	"io"
)

// Sample is the dirty pages observed in one tick. Samples are built
// once by the sampling loop and not modified afterwards.
type Sample struct {
	timestampMs float64
	pages       []DirtyPage
}

func (s *Sample) TimestampMs() float64 { return s.timestampMs }
func (s *Sample) Pages() []DirtyPage   { return s.pages }

// Report is the serializable result of a tracking run. The field names
// and nesting of the JSON document are a compatibility contract shared
// with earlier implementations of this tool; consumers parse them by
// name.
type Report struct {
	Workload           string         `json:"workload"`
	RootPid            int            `json:"root_pid"`
	TrackChildren      bool           `json:"track_children"`
	TrackingDurationMs float64        `json:"tracking_duration_ms"`
	PageSize           int            `json:"page_size"`
	PagemapScanUsed    bool           `json:"pagemap_scan_used"`
	Samples            []ReportSample `json:"samples"`
	Summary            ReportSummary  `json:"summary"`
}

// ReportSample is one sample in the report.
type ReportSample struct {
	TimestampMs     float64           `json:"timestamp_ms"`
	DirtyPages      []ReportDirtyPage `json:"dirty_pages"`
	DeltaDirtyCount int               `json:"delta_dirty_count"`
	PidsTracked     []int             `json:"pids_tracked"`
}

// ReportDirtyPage is one dirty page event in the report.
type ReportDirtyPage struct {
	Addr     string      `json:"addr"`
	VmaType  RegionClass `json:"vma_type"`
	VmaPerms string      `json:"vma_perms"`
	Pathname string      `json:"pathname"`
	Size     int         `json:"size"`
}

// ReportSummary is the run-level aggregate section of the report.
// TotalDirtyEvents counts every event, also when the same page recurs
// across samples; TotalUniquePages counts distinct addresses ever seen
// dirty. Both meanings are part of the contract.
type ReportSummary struct {
	TotalUniquePages    int   `json:"total_unique_pages"`
	TotalDirtyEvents    int   `json:"total_dirty_events"`
	TotalDirtySizeBytes int64 `json:"total_dirty_size_bytes"`
	SampleCount         int   `json:"sample_count"`
	IntervalMs          int   `json:"interval_ms"`
}

// newReportSample converts an owned sample into its report form.
func newReportSample(sample *Sample, pid int, pageSize int) ReportSample {
	pages := make([]ReportDirtyPage, 0, len(sample.pages))
	for _, page := range sample.pages {
		pages = append(pages, ReportDirtyPage{
			Addr:     fmt.Sprintf("0x%x", page.addr),
			VmaType:  page.class,
			VmaPerms: page.perms,
			Pathname: page.path,
			Size:     pageSize,
		})
	}
	return ReportSample{
		TimestampMs:     sample.timestampMs,
		DirtyPages:      pages,
		DeltaDirtyCount: len(sample.pages),
		PidsTracked:     []int{pid},
	}
}

// Write serializes the report as an indented JSON document.
func (r *Report) Write(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}
