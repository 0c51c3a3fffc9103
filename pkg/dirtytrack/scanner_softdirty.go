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

// The softdirty scanner is the fallback for kernels without
// PAGEMAP_SCAN: it reads raw 64-bit /proc/PID/pagemap entries for
// every page of a writable region and tests the soft-dirty bit.
// https://www.kernel.org/doc/Documentation/vm/soft-dirty.txt

package dirtytrack

import (
	"encoding/binary"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// softdirtyScanner reads per-page state entries from a pagemap source.
// The source is an io.ReaderAt so tests can substitute synthetic page
// state for /proc/PID/pagemap.
type softdirtyScanner struct {
	pagemap io.ReaderAt
	buf     []byte
}

func newSoftdirtyScanner(pagemap io.ReaderAt) *softdirtyScanner {
	return &softdirtyScanner{
		pagemap: pagemap,
		buf:     make([]byte, 4096*pagemapEntrySize),
	}
}

// grow doubles the entry buffer until it holds need bytes.
func (s *softdirtyScanner) grow(need int) {
	size := len(s.buf)
	for size < need {
		size *= 2
	}
	if size > len(s.buf) {
		s.buf = make([]byte, size)
	}
}

// scan reads the pagemap entries covering each writable region with
// one positioned read and emits an event per entry with the soft-dirty
// bit set. A failed read skips the region; a short read processes the
// entries that were returned, the tail of the region raced away.
func (s *softdirtyScanner) scan(regions []Region) ([]DirtyPage, error) {
	events := make([]DirtyPage, 0, 1024)
	var skipped *multierror.Error

	for r := range regions {
		region := &regions[r]
		if !region.isWritable() {
			continue
		}
		numPages := (region.end - region.start) / constUPagesize
		need := int(numPages) * pagemapEntrySize
		s.grow(need)
		offset := int64(region.start / constUPagesize * pagemapEntrySize)

		n, err := s.pagemap.ReadAt(s.buf[:need], offset)
		if n <= 0 {
			if err != nil && err != io.EOF {
				skipped = multierror.Append(skipped,
					errors.Wrapf(err, "pagemap read for region %x-%x failed", region.start, region.end))
			}
			continue
		}

		entries := n / pagemapEntrySize
		for i := 0; i < entries; i++ {
			entry := binary.LittleEndian.Uint64(s.buf[i*pagemapEntrySize:])
			if entry&pmSoftDirty != pmSoftDirty {
				continue
			}
			addr := region.start + uint64(i)*constUPagesize
			events = appendRegionPages(events, region, addr, addr+constUPagesize)
		}
	}
	return events, skipped.ErrorOrNil()
}
