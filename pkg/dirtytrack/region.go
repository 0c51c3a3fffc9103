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
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RegionClass classifies a memory region by its backing.
type RegionClass string

const (
	RegionHeap      RegionClass = "heap"
	RegionStack     RegionClass = "stack"
	RegionAnonymous RegionClass = "anonymous"
	RegionCode      RegionClass = "code"
	RegionData      RegionClass = "data"
	RegionVdso      RegionClass = "vdso"
	RegionUnknown   RegionClass = "unknown"
)

// Region is one mapping from /proc/PID/maps: a contiguous address
// range with uniform permissions and a single backing source.
type Region struct {
	start uint64 // first address of the region
	end   uint64 // first address after the region
	perms string // "rwxp"-style permission string
	path  string // backing path, pseudo-name, or empty
	class RegionClass
}

// NewRegion returns a region with its classification derived from the
// backing path and permissions.
func NewRegion(start, end uint64, perms, path string) Region {
	return Region{
		start: start,
		end:   end,
		perms: perms,
		path:  path,
		class: classifyRegion(path, perms),
	}
}

func (r *Region) Start() uint64      { return r.start }
func (r *Region) End() uint64        { return r.end }
func (r *Region) Perms() string      { return r.perms }
func (r *Region) Path() string       { return r.path }
func (r *Region) Class() RegionClass { return r.class }

func (r *Region) isWritable() bool {
	return strings.ContainsRune(r.perms, 'w')
}

// classifyRegion maps a backing path and permission string to a region
// class. Pure: the same inputs always give the same class.
func classifyRegion(path, perms string) RegionClass {
	switch {
	case path == "[heap]":
		return RegionHeap
	case path == "[stack]":
		return RegionStack
	case path == "[vdso]" || path == "[vvar]" || path == "[vsyscall]":
		return RegionVdso
	case strings.HasPrefix(path, "/"):
		if strings.ContainsRune(perms, 'x') {
			return RegionCode
		}
		return RegionData
	case path == "":
		return RegionAnonymous
	}
	return RegionUnknown
}

// readProcessRegions parses /proc/PID/maps into regions in file order.
// At most maxRegions regions are returned: mappings beyond the ceiling
// are dropped from the tail of the address space listing. A line with
// fewer fields than expected is skipped, the maps format varies across
// kernel versions. Failing to read the maps file is a hard error, the
// process is gone or inaccessible.
func readProcessRegions(pid int, maxRegions int) ([]Region, error) {
	mapsPath := "/proc/" + strconv.Itoa(pid) + "/maps"
	mapsBytes, err := os.ReadFile(mapsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", mapsPath)
	}

	regions := make([]Region, 0, 256)
	truncated := false
	for _, line := range strings.Split(string(mapsBytes), "\n") {
		if len(regions) >= maxRegions {
			truncated = true
			break
		}
		region, ok := parseMapsLine(line)
		if !ok {
			continue
		}
		regions = append(regions, region)
	}
	if truncated {
		log.Warnf("pid %d has more than %d mappings, tail of the memory map not tracked", pid, maxRegions)
	}
	return regions, nil
}

// parseMapsLine parses one maps line, for example:
// 55d74cf13000-55d74cf14000 rw-p 00003000 fe:03 1194719   /usr/bin/python3.8
// 55d74e76d000-55d74e968000 rw-p 00000000 00:00 0         [heap]
// 7f3bcfe69000-7f3c4fe6a000 rw-p 00000000 00:00 0
func parseMapsLine(line string) (Region, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Region{}, false
	}
	dashIndex := strings.Index(fields[0], "-")
	if dashIndex <= 0 {
		return Region{}, false
	}
	startAddr, err := strconv.ParseUint(fields[0][:dashIndex], 16, 64)
	if err != nil {
		return Region{}, false
	}
	endAddr, err := strconv.ParseUint(fields[0][dashIndex+1:], 16, 64)
	if err != nil || endAddr <= startAddr {
		return Region{}, false
	}
	path := ""
	if len(fields) > 5 {
		path = fields[5]
	}
	return NewRegion(startAddr, endAddr, fields[1], path), true
}

// findRegion returns the region containing addr, or nil.
func findRegion(regions []Region, addr uint64) *Region {
	for i := range regions {
		if addr >= regions[i].start && addr < regions[i].end {
			return &regions[i]
		}
	}
	return nil
}
