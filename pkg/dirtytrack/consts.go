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
)

// Bits of a 64-bit /proc/PID/pagemap entry.
// See Documentation/admin-guide/mm/pagemap.rst.
const (
	pmSoftDirty uint64 = 1 << 55
	pmSwapped   uint64 = 1 << 62
	pmPresent   uint64 = 1 << 63

	pagemapEntrySize = 8
)

// PAGEMAP_SCAN ioctl interface, include/uapi/linux/fs.h (kernel 6.7+).
// The request number is _IOWR('f', 16, struct pm_scan_arg) with a
// 96-byte argument.
const (
	pagemapScanIoctl uintptr = 0xc0606610

	pageIsWpAllowed uint64 = 1 << 0
	pageIsWritten   uint64 = 1 << 1
	pageIsFile      uint64 = 1 << 2
	pageIsPresent   uint64 = 1 << 3
	pageIsSwapped   uint64 = 1 << 4
	pageIsPfnzero   uint64 = 1 << 5
	pageIsHuge      uint64 = 1 << 6
	pageIsSoftDirty uint64 = 1 << 7
)

var constPagesize int64 = int64(os.Getpagesize())
var constUPagesize uint64 = uint64(constPagesize)
