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

// The pagemapscan scanner detects memory writes with the PAGEMAP_SCAN
// ioctl: the kernel walks an address range and returns contiguous
// sub-ranges of pages sharing the requested page categories, so dirty
// pages are found without reading a pagemap entry per page.
// https://docs.kernel.org/admin-guide/mm/pagemap.html

package dirtytrack

import (
	"runtime"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// pmScanArg is struct pm_scan_arg of include/uapi/linux/fs.h.
type pmScanArg struct {
	size             uint64
	flags            uint64
	start            uint64
	end              uint64
	walkEnd          uint64
	vec              uint64
	vecLen           uint64
	maxPages         uint64
	categoryInverted uint64
	categoryMask     uint64
	categoryAnyofMask uint64
	returnMask       uint64
}

// pmScanRegion is struct page_region returned in the scan vector.
type pmScanRegion struct {
	start      uint64
	end        uint64
	categories uint64
}

// rangeScanner runs one PAGEMAP_SCAN request and fills vec with
// matched sub-ranges. It returns the number of vec entries filled.
// Tests substitute this to scan synthetic page state.
type rangeScanner interface {
	scanRange(arg *pmScanArg, vec []pmScanRegion) (int, error)
}

// ioctlRangeScanner issues PAGEMAP_SCAN against a pagemap file
// descriptor.
type ioctlRangeScanner struct {
	fd int
}

func (s ioctlRangeScanner) scanRange(arg *pmScanArg, vec []pmScanRegion) (int, error) {
	if len(vec) > 0 {
		arg.vec = uint64(uintptr(unsafe.Pointer(&vec[0])))
		arg.vecLen = uint64(len(vec))
	}
	ret, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(s.fd), pagemapScanIoctl, uintptr(unsafe.Pointer(arg)))
	runtime.KeepAlive(vec)
	if errno != 0 {
		return 0, errno
	}
	return int(ret), nil
}

// scanVecLen is the size of the sub-range vector passed to the kernel.
// When a region matches more sub-ranges than fit, the scan continues
// from walk_end with the same vector instead of growing it without
// bound.
const scanVecLen = 4096

// pmscanScanner is the batched dirty-page scanner.
type pmscanScanner struct {
	ranges rangeScanner
	vec    []pmScanRegion
}

func newPmscanScanner(ranges rangeScanner) *pmscanScanner {
	return &pmscanScanner{
		ranges: ranges,
		vec:    make([]pmScanRegion, scanVecLen),
	}
}

// scan asks the kernel for sub-ranges of pages that are present or
// swapped, not backed by a file or the zero page, and reports which of
// them have the soft-dirty bit set. Every dirty sub-range is expanded
// into per-page events.
func (s *pmscanScanner) scan(regions []Region) ([]DirtyPage, error) {
	events := make([]DirtyPage, 0, 1024)
	var skipped *multierror.Error

	for r := range regions {
		region := &regions[r]
		if !region.isWritable() {
			continue
		}
		startAddr := region.start
		for startAddr < region.end {
			arg := pmScanArg{
				size:              uint64(unsafe.Sizeof(pmScanArg{})),
				start:             startAddr,
				end:               region.end,
				categoryInverted:  pageIsPfnzero | pageIsFile,
				categoryMask:      pageIsPfnzero | pageIsFile,
				categoryAnyofMask: pageIsPresent | pageIsSwapped,
				returnMask:        pageIsPresent | pageIsSwapped | pageIsSoftDirty,
			}
			n, err := s.ranges.scanRange(&arg, s.vec)
			if err != nil {
				// The region raced away under the target process.
				skipped = multierror.Append(skipped,
					errors.Wrapf(err, "scan of region %x-%x failed", region.start, region.end))
				break
			}
			for i := 0; i < n; i++ {
				if s.vec[i].categories&pageIsSoftDirty != pageIsSoftDirty {
					continue
				}
				events = appendRegionPages(events, region, s.vec[i].start, s.vec[i].end)
			}
			if n < len(s.vec) || arg.walkEnd <= startAddr || arg.walkEnd >= region.end {
				break
			}
			startAddr = arg.walkEnd
		}
	}
	return events, skipped.ErrorOrNil()
}
