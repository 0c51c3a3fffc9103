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

// DirtyPage is one page observed dirty in one sample, carrying a copy
// of the owning region's classification at observation time. The
// region itself is not referenced: the memory map may be different by
// the time the report is read.
type DirtyPage struct {
	addr  uint64
	class RegionClass
	perms string
	path  string
}

func (p DirtyPage) Addr() uint64       { return p.addr }
func (p DirtyPage) Class() RegionClass { return p.class }
func (p DirtyPage) Perms() string      { return p.perms }
func (p DirtyPage) Path() string       { return p.path }

// pageScanner detects pages written since the previous soft-dirty
// reset. Implementations scan only writable regions and report events
// in increasing address order within each region.
//
// A scan returns the events it collected together with a non-nil error
// when some regions had to be skipped, a region can race away under
// the target process between reading the memory map and scanning it.
// Skipping regions never invalidates the rest of the sample.
type pageScanner interface {
	scan(regions []Region) ([]DirtyPage, error)
}

// appendRegionPages appends one event per page in [startAddr, endAddr)
// of the region. Both addresses must be page-aligned.
func appendRegionPages(events []DirtyPage, region *Region, startAddr, endAddr uint64) []DirtyPage {
	for addr := startAddr; addr < endAddr; addr += constUPagesize {
		events = append(events, DirtyPage{
			addr:  addr,
			class: region.class,
			perms: region.perms,
			path:  region.path,
		})
	}
	return events
}
