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
	"unsafe"

	"golang.org/x/sys/unix"
)

// probePagemapScan classifies PAGEMAP_SCAN support with one trial call
// over a single page. ENOTTY means the kernel does not know the ioctl,
// EINVAL that it rejected the request as malformed; both mean
// unsupported. Every other outcome, success included, counts as
// supported: the call reached a kernel that understood it. The result
// holds for the lifetime of the run.
func probePagemapScan(ranges rangeScanner) bool {
	arg := pmScanArg{
		size:              uint64(unsafe.Sizeof(pmScanArg{})),
		start:             0,
		end:               constUPagesize,
		categoryAnyofMask: pageIsPresent,
		returnMask:        pageIsSoftDirty,
	}
	_, err := ranges.scanRange(&arg, nil)
	if err == unix.ENOTTY || err == unix.EINVAL {
		return false
	}
	return true
}
