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
	"testing"
)

func TestClassifyRegion(t *testing.T) {
	tcases := []struct {
		name     string
		path     string
		perms    string
		expected RegionClass
	}{
		{
			name:     "heap marker",
			path:     "[heap]",
			perms:    "rw-p",
			expected: RegionHeap,
		}, {
			name:     "stack marker",
			path:     "[stack]",
			perms:    "rw-p",
			expected: RegionStack,
		}, {
			name:     "vdso marker",
			path:     "[vdso]",
			perms:    "r-xp",
			expected: RegionVdso,
		}, {
			name:     "vvar marker",
			path:     "[vvar]",
			perms:    "r--p",
			expected: RegionVdso,
		}, {
			name:     "vsyscall marker",
			path:     "[vsyscall]",
			perms:    "--xp",
			expected: RegionVdso,
		}, {
			name:     "executable file mapping",
			path:     "/usr/bin/python3.8",
			perms:    "r-xp",
			expected: RegionCode,
		}, {
			name:     "non-executable file mapping",
			path:     "/usr/bin/python3.8",
			perms:    "rw-p",
			expected: RegionData,
		}, {
			name:     "empty path",
			path:     "",
			perms:    "rw-p",
			expected: RegionAnonymous,
		}, {
			name:     "other marker",
			path:     "[vvar_vclock]",
			perms:    "r--p",
			expected: RegionUnknown,
		}, {
			name:     "anon special mapping",
			path:     "anon_inode:[perf_event]",
			perms:    "rw-p",
			expected: RegionUnknown,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			observed := classifyRegion(tc.path, tc.perms)
			if observed != tc.expected {
				t.Errorf("classifyRegion(%q, %q): expected %q, observed %q",
					tc.path, tc.perms, tc.expected, observed)
			}
			// Pure function: the same inputs classify the same way again.
			if again := classifyRegion(tc.path, tc.perms); again != observed {
				t.Errorf("classifyRegion(%q, %q) not deterministic: %q vs %q",
					tc.path, tc.perms, observed, again)
			}
		})
	}
}

func TestParseMapsLine(t *testing.T) {
	tcases := []struct {
		name           string
		line           string
		expectedOk     bool
		expectedRegion Region
	}{
		{
			name:       "file mapping",
			line:       "55d74cf13000-55d74cf14000 rw-p 00003000 fe:03 1194719   /usr/bin/python3.8",
			expectedOk: true,
			expectedRegion: NewRegion(0x55d74cf13000, 0x55d74cf14000,
				"rw-p", "/usr/bin/python3.8"),
		}, {
			name:       "heap",
			line:       "55d74e76d000-55d74e968000 rw-p 00000000 00:00 0         [heap]",
			expectedOk: true,
			expectedRegion: NewRegion(0x55d74e76d000, 0x55d74e968000,
				"rw-p", "[heap]"),
		}, {
			name:       "anonymous, no path field",
			line:       "7f3bcfe69000-7f3c4fe6a000 rw-p 00000000 00:00 0",
			expectedOk: true,
			expectedRegion: NewRegion(0x7f3bcfe69000, 0x7f3c4fe6a000,
				"rw-p", ""),
		}, {
			name:       "empty line",
			line:       "",
			expectedOk: false,
		}, {
			name:       "too few fields",
			line:       "7f3bcfe69000-7f3c4fe6a000 rw-p 00000000",
			expectedOk: false,
		}, {
			name:       "bad address range",
			line:       "zzz-7f3c4fe6a000 rw-p 00000000 00:00 0",
			expectedOk: false,
		}, {
			name:       "end before start",
			line:       "7f3c4fe6a000-7f3bcfe69000 rw-p 00000000 00:00 0",
			expectedOk: false,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			region, ok := parseMapsLine(tc.line)
			if ok != tc.expectedOk {
				t.Fatalf("parseMapsLine(%q): expected ok=%v, observed ok=%v",
					tc.line, tc.expectedOk, ok)
			}
			if ok && region != tc.expectedRegion {
				t.Errorf("parseMapsLine(%q): expected %+v, observed %+v",
					tc.line, tc.expectedRegion, region)
			}
		})
	}
}

func TestReadProcessRegionsSelf(t *testing.T) {
	regions, err := readProcessRegions(os.Getpid(), 4096)
	if err != nil {
		t.Fatalf("reading own memory map failed: %v", err)
	}
	if len(regions) == 0 {
		t.Fatalf("own memory map has no regions")
	}
	for i := range regions {
		if regions[i].start >= regions[i].end {
			t.Errorf("region %x-%x: start not below end",
				regions[i].start, regions[i].end)
		}
		if regions[i].class != classifyRegion(regions[i].path, regions[i].perms) {
			t.Errorf("region %x-%x not classified by (path, perms)",
				regions[i].start, regions[i].end)
		}
	}
}

func TestReadProcessRegionsCeiling(t *testing.T) {
	regions, err := readProcessRegions(os.Getpid(), 3)
	if err != nil {
		t.Fatalf("reading own memory map failed: %v", err)
	}
	if len(regions) != 3 {
		t.Fatalf("expected region count capped at 3, observed %d", len(regions))
	}
}

func TestReadProcessRegionsNoSuchProcess(t *testing.T) {
	// Kernel threads aside, pid 0 never has a maps file.
	if _, err := readProcessRegions(0, 4096); err == nil {
		t.Fatalf("expected an error for a process without a maps file")
	}
}
