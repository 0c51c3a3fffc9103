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
	"testing"
)

func TestPageAddrSet(t *testing.T) {
	s := newPageAddrSet()
	if s.size() != 0 {
		t.Fatalf("new set not empty")
	}
	if s.has(page(1)) {
		t.Fatalf("new set claims to contain an address")
	}

	s.record(page(1))
	s.record(page(2))
	if !s.has(page(1)) || !s.has(page(2)) {
		t.Fatalf("recorded addresses missing")
	}
	if s.size() != 2 {
		t.Fatalf("expected size 2, observed %d", s.size())
	}

	// Recording again is idempotent.
	s.record(page(1))
	s.record(page(1))
	if s.size() != 2 {
		t.Fatalf("recording a known address changed size to %d", s.size())
	}
}
