// Copyright 2020 Google LLC. All Rights Reserved.
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

package allocator

import "testing"

func TestHeapAllocatorNeverFails(t *testing.T) {
	h := NewHeap[int]()
	for i := 0; i < 1000; i++ {
		v, _, ok := h.Alloc()
		if !ok || v == nil {
			t.Fatalf("Alloc() #%d = %v, %v, want non-nil, true", i, v, ok)
		}
	}
	if err := h.Free(0); err != nil {
		t.Errorf("Free: %v", err)
	}
}

func TestPoolAllocatorExhaustion(t *testing.T) {
	p := NewPool[int](2)

	_, idx0, ok := p.Alloc()
	if !ok {
		t.Fatal("first Alloc failed, want success")
	}
	_, idx1, ok := p.Alloc()
	if !ok {
		t.Fatal("second Alloc failed, want success")
	}
	if idx0 == idx1 {
		t.Fatalf("both allocations got index %d, want distinct slots", idx0)
	}

	if _, _, ok := p.Alloc(); ok {
		t.Error("third Alloc succeeded, want pool-full failure")
	}

	m := p.Metrics()
	if m.FailedAllocs != 1 {
		t.Errorf("FailedAllocs = %d, want 1", m.FailedAllocs)
	}
	if m.HighWaterMark != 2 {
		t.Errorf("HighWaterMark = %d, want 2", m.HighWaterMark)
	}
}

func TestPoolAllocatorReuseAfterFree(t *testing.T) {
	p := NewPool[int](1)

	v, idx, ok := p.Alloc()
	if !ok {
		t.Fatal("Alloc failed, want success")
	}
	*v = 42

	if err := p.Free(idx); err != nil {
		t.Fatalf("Free: %v", err)
	}

	v2, idx2, ok := p.Alloc()
	if !ok {
		t.Fatal("second Alloc after Free failed, want success")
	}
	if idx2 != idx {
		t.Errorf("reused slot index = %d, want %d", idx2, idx)
	}
	if *v2 != 0 {
		t.Errorf("reused slot value = %d, want zeroed to 0", *v2)
	}
}

func TestPoolAllocatorFreeErrors(t *testing.T) {
	p := NewPool[int](1)

	if err := p.Free(0); err == nil {
		t.Error("Free on never-allocated index: want error, got nil")
	}
	if err := p.Free(5); err == nil {
		t.Error("Free on out-of-range index: want error, got nil")
	}

	_, idx, _ := p.Alloc()
	if err := p.Free(idx); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := p.Free(idx); err == nil {
		t.Error("double Free: want error, got nil")
	}
}
