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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testReport() *Report {
	return &Report{
		Workload:           "redis-bench",
		RootPid:            1234,
		TrackChildren:      false,
		TrackingDurationMs: 5000.25,
		PageSize:           4096,
		PagemapScanUsed:    true,
		Samples: []ReportSample{
			{
				TimestampMs: 100.5,
				DirtyPages: []ReportDirtyPage{
					{
						Addr:     "0x7f0000001000",
						VmaType:  RegionHeap,
						VmaPerms: "rw-p",
						Pathname: "[heap]",
						Size:     4096,
					},
				},
				DeltaDirtyCount: 1,
				PidsTracked:     []int{1234},
			},
		},
		Summary: ReportSummary{
			TotalUniquePages:    1,
			TotalDirtyEvents:    1,
			TotalDirtySizeBytes: 4096,
			SampleCount:         1,
			IntervalMs:          100,
		},
	}
}

func TestReportRoundTrip(t *testing.T) {
	report := testReport()
	buf := &bytes.Buffer{}
	require.NoError(t, report.Write(buf))

	parsed := &Report{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), parsed))
	if diff := cmp.Diff(report, parsed); diff != "" {
		t.Errorf("report changed in serialization (-want +got):\n%s", diff)
	}
}

// The JSON field names are a compatibility contract, renaming a Go
// field must not silently rename a key.
func TestReportFieldNames(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, testReport().Write(buf))

	doc := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	for _, key := range []string{
		"workload", "root_pid", "track_children", "tracking_duration_ms",
		"page_size", "pagemap_scan_used", "samples", "summary",
	} {
		require.Contains(t, doc, key)
	}

	sample := doc["samples"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{
		"timestamp_ms", "dirty_pages", "delta_dirty_count", "pids_tracked",
	} {
		require.Contains(t, sample, key)
	}

	page := sample["dirty_pages"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"addr", "vma_type", "vma_perms", "pathname", "size"} {
		require.Contains(t, page, key)
	}
	require.Equal(t, "0x7f0000001000", page["addr"])

	summary := doc["summary"].(map[string]interface{})
	for _, key := range []string{
		"total_unique_pages", "total_dirty_events", "total_dirty_size_bytes",
		"sample_count", "interval_ms",
	} {
		require.Contains(t, summary, key)
	}
}

// An eventless run serializes empty arrays, not nulls.
func TestReportEmptyCollections(t *testing.T) {
	config := NewConfig()
	config.Pid = 4242
	tracker, err := NewTracker(config)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, tracker.Report().Write(buf))
	doc := buf.String()
	require.Contains(t, doc, `"samples": []`)
	require.NotContains(t, doc, "null")

	sampled := testReport()
	sampled.Samples[0].DirtyPages = []ReportDirtyPage{}
	buf.Reset()
	require.NoError(t, sampled.Write(buf))
	require.Contains(t, buf.String(), `"dirty_pages": []`)
}

func TestReportSampleConversion(t *testing.T) {
	sample := Sample{
		timestampMs: 250.0,
		pages: []DirtyPage{
			dirtyHeapPage(17),
			dirtyHeapPage(18),
		},
	}
	converted := newReportSample(&sample, 77, 4096)
	require.Equal(t, 250.0, converted.TimestampMs)
	require.Equal(t, 2, converted.DeltaDirtyCount)
	require.Equal(t, []int{77}, converted.PidsTracked)
	require.Len(t, converted.DirtyPages, 2)
	for i, page := range converted.DirtyPages {
		require.True(t, strings.HasPrefix(page.Addr, "0x"), "addr %q not hex", page.Addr)
		require.Equal(t, RegionHeap, page.VmaType)
		require.Equal(t, "rw-p", page.VmaPerms)
		require.Equal(t, "[heap]", page.Pathname)
		require.Equal(t, 4096, page.Size)
		require.Equal(t, sample.pages[i].addr, mustParseHex(t, page.Addr))
	}
}

func mustParseHex(t *testing.T, s string) uint64 {
	t.Helper()
	var v uint64
	n, err := fmt.Sscanf(s, "0x%x", &v)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	return v
}
