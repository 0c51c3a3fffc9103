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
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// ProcFileExists returns true if a file exists under /proc.
func ProcFileExists(path string) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}
	return false
}

// ProcPidExists returns true if /proc has an entry for the process.
func ProcPidExists(pid int) bool {
	return ProcFileExists("/proc/" + strconv.Itoa(pid))
}

// procPagemapOpen opens /proc/PID/pagemap of a process for reading
// 64-bit per-page entries.
func procPagemapOpen(pid int) (*os.File, error) {
	path := "/proc/" + strconv.Itoa(pid) + "/pagemap"
	pageMap, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return pageMap, nil
}

// procClearRefsOpen opens /proc/PID/clear_refs of a process for
// resetting page tracking bits.
func procClearRefsOpen(pid int) (*os.File, error) {
	path := "/proc/" + strconv.Itoa(pid) + "/clear_refs"
	clearRefs, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return clearRefs, nil
}

// clearSoftDirty resets the soft-dirty bits of all pages of the
// process. Writing "4" to clear_refs makes the kernel report only
// pages written after this call.
func clearSoftDirty(clearRefs *os.File) error {
	if _, err := clearRefs.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := clearRefs.Write([]byte("4"))
	return err
}
