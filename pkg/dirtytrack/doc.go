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

/*

	Package dirtytrack samples which memory pages of a process have
	been written since the previous sample, classifies every dirtied
	page by the memory region it belongs to, and accumulates the
	observations into a report for offline analysis.

	Component types

	1. The Tracker (tracker.go) owns one sampling run against one
	process: it opens the per-process pagemap and clear_refs files,
	probes for PAGEMAP_SCAN support, and drives the sampling loop at
	a drift-corrected cadence.

	2. Scanners (scanner*.go) detect pages whose soft-dirty bit is
	set. The pagemapscan scanner uses the PAGEMAP_SCAN ioctl
	(kernel 6.7+) to fetch dirty ranges in batches. The softdirty
	scanner reads raw 64-bit pagemap entries and tests the
	soft-dirty bit per page. Both produce the same events; the
	Tracker picks one at startup based on the probe.

	3. Regions (region.go) are the process memory map read from
	/proc/PID/maps, classified into heap, stack, code, data,
	anonymous, vdso or unknown. Regions are re-read on every sample
	because the map of a live process changes under the tracker.

	4. The Report (report.go, stats.go) is the accumulated samples
	plus run-level aggregates, serialized to a JSON document whose
	schema is shared with earlier implementations of this tool.

	Tracking requires Linux with soft-dirty support (3.11+) and
	read access to /proc/PID/pagemap, which usually means root or
	CAP_SYS_ADMIN.

*/
package dirtytrack
