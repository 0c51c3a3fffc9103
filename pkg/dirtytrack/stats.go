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
	"fmt"
	"io"
	"sort"
)

// WriteSummary prints a human-readable digest of the report: run
// totals, dirty rates and the distribution of events over region
// classes. None of this is part of the JSON document, it is derived
// from it for a quick look on the terminal.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "=== Dirty Page Tracking Summary ===\n")
	fmt.Fprintf(w, "  Root PID: %d\n", r.RootPid)
	fmt.Fprintf(w, "  Method: %s\n", methodName(r.PagemapScanUsed))
	fmt.Fprintf(w, "  Duration: %.1f ms\n", r.TrackingDurationMs)
	fmt.Fprintf(w, "  Samples: %d\n", r.Summary.SampleCount)
	fmt.Fprintf(w, "  Unique dirty pages: %d\n", r.Summary.TotalUniquePages)
	fmt.Fprintf(w, "  Total dirty events: %d\n", r.Summary.TotalDirtyEvents)
	fmt.Fprintf(w, "  Total dirty size: %.2f MB\n", float64(r.Summary.TotalDirtySizeBytes)/(1024*1024))

	avgRate, peakRate := r.dirtyRates()
	fmt.Fprintf(w, "  Avg dirty rate: %.1f pages/sec\n", avgRate)
	fmt.Fprintf(w, "  Peak dirty rate: %.1f pages/sec\n", peakRate)

	distribution := r.classDistribution()
	if len(distribution) > 0 {
		fmt.Fprintf(w, "  VMA distribution:\n")
		classes := make([]string, 0, len(distribution))
		for class := range distribution {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		for _, class := range classes {
			fmt.Fprintf(w, "    %s: %.1f%%\n", class, distribution[class]*100)
		}
	}
}

func methodName(pagemapScanUsed bool) string {
	if pagemapScanUsed {
		return "pagemap_scan"
	}
	return "soft-dirty bitmap"
}

// dirtyRates returns the average and peak dirty-page rates in pages
// per second over sample intervals that observed any events.
func (r *Report) dirtyRates() (avgRate, peakRate float64) {
	rateSum := 0.0
	rateCount := 0
	prevTimestampMs := 0.0
	for i, sample := range r.Samples {
		if i > 0 {
			deltaS := (sample.TimestampMs - prevTimestampMs) / 1000.0
			if deltaS > 0 && sample.DeltaDirtyCount > 0 {
				rate := float64(sample.DeltaDirtyCount) / deltaS
				rateSum += rate
				rateCount++
				if rate > peakRate {
					peakRate = rate
				}
			}
		}
		prevTimestampMs = sample.TimestampMs
	}
	if rateCount > 0 {
		avgRate = rateSum / float64(rateCount)
	}
	return avgRate, peakRate
}

// classDistribution returns the share of dirty-page events per region
// class over the whole run.
func (r *Report) classDistribution() map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, sample := range r.Samples {
		for _, page := range sample.DirtyPages {
			counts[string(page.VmaType)]++
			total++
		}
	}
	distribution := make(map[string]float64, len(counts))
	if total == 0 {
		return distribution
	}
	for class, count := range counts {
		distribution[class] = float64(count) / float64(total)
	}
	return distribution
}
