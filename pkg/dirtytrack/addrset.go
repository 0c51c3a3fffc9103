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

// pageAddrSet is the set of distinct page addresses observed dirty
// during a run. The set only grows: pages are recorded on every sample
// and never removed.
type pageAddrSet struct {
	pages map[uint64]struct{}
}

func newPageAddrSet() *pageAddrSet {
	return &pageAddrSet{
		pages: make(map[uint64]struct{}, 1024),
	}
}

// record inserts a page address. Recording the same address again has
// no effect.
func (s *pageAddrSet) record(addr uint64) {
	s.pages[addr] = struct{}{}
}

func (s *pageAddrSet) has(addr uint64) bool {
	_, ok := s.pages[addr]
	return ok
}

func (s *pageAddrSet) size() int {
	return len(s.pages)
}
