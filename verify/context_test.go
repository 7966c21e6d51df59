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

package verify

import (
	"errors"
	"strings"
	"testing"

	"github.com/uptane/uptiny/api"
	"github.com/uptane/uptiny/internal/fixture"
	"github.com/uptane/uptiny/internal/grammar"
)

// memSource is an api.ByteSource over an in-memory byte string, used by
// every scenario test below.
type memSource struct {
	data []byte
	pos  int
}

func (s *memSource) Read(buf []byte) error {
	if s.pos+len(buf) > len(s.data) {
		return errors.New("underflow")
	}
	copy(buf, s.data[s.pos:s.pos+len(buf)])
	s.pos += len(buf)
	return nil
}

func (s *memSource) Peek() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, errors.New("underflow")
	}
	return s.data[s.pos], nil
}

func TestNewContextValidatesConfig(t *testing.T) {
	signer, err := fixture.NewSigner("k1")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no keys", Config{Threshold: 1, ECUID: "ecu-1"}},
		{"zero threshold", Config{TrustedKeys: []api.Key{signer.Key}, Threshold: 0, ECUID: "ecu-1"}},
		{"threshold too high", Config{TrustedKeys: []api.Key{signer.Key}, Threshold: 2, ECUID: "ecu-1"}},
		{"no ecu id", Config{TrustedKeys: []api.Key{signer.Key}, Threshold: 1}},
	}
	for _, tc := range tests {
		if _, err := NewContext(tc.cfg); err == nil {
			t.Errorf("%s: NewContext: want error, got nil", tc.name)
		}
	}
}

func TestProcessEndToEndUpdateAvailable(t *testing.T) {
	signer, err := fixture.NewSigner("k1")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	doc := fixture.Document{
		Expires: "2099-01-01T00:00:00Z",
		Version: 9,
		Targets: []fixture.Target{
			{Path: "firmware.bin", ECUID: "ecu-1", HardwareID: "hw-1", ReleaseCounter: 400, SHA512: strings.Repeat("ab", 64), Length: 42},
		},
	}.Build(signer)

	ctx, err := NewContext(Config{
		TrustedKeys:      []api.Key{signer.Key},
		Threshold:        1,
		ECUID:            "ecu-1",
		HardwareID:       "hw-1",
		LastKnownVersion: 3,
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	result, target, err := ctx.Process(&memSource{data: []byte(doc)}, grammar.Timestamp{Year: 2030, Month: 1, Day: 1})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result != api.OKUpdate {
		t.Fatalf("result = %v, want OKUpdate", result)
	}
	if target == nil || target.Version != 9 {
		t.Errorf("target = %+v, want Version=9", target)
	}
	if err := AsError(result, nil); err != nil {
		t.Errorf("AsError(OKUpdate) = %v, want nil", err)
	}
}

func TestPooledContextExhaustionReturnsNoMemory(t *testing.T) {
	signer, err := fixture.NewSigner("k1")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	doc := fixture.Document{
		Expires: "2099-01-01T00:00:00Z",
		Version: 1,
	}.Build(signer)

	// A zero-capacity pool can never satisfy an Alloc, so every Process
	// call must report NoMemory instead of falling back to the heap.
	ctx, err := NewPooledContext(Config{
		TrustedKeys: []api.Key{signer.Key},
		Threshold:   1,
		ECUID:       "ecu-1",
	}, 0)
	if err != nil {
		t.Fatalf("NewPooledContext: %v", err)
	}
	result, target, err := ctx.Process(&memSource{data: []byte(doc)}, grammar.Timestamp{Year: 2030})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result != api.NoMemory {
		t.Errorf("result = %v, want NoMemory", result)
	}
	if target != nil {
		t.Errorf("target = %+v, want nil", target)
	}

	if _, ok := ctx.PoolMetrics(); !ok {
		t.Error("PoolMetrics ok = false for a pooled Context, want true")
	}

	heapCtx, err := NewContext(Config{TrustedKeys: []api.Key{signer.Key}, Threshold: 1, ECUID: "ecu-1"})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if _, ok := heapCtx.PoolMetrics(); ok {
		t.Error("PoolMetrics ok = true for a heap-mode Context, want false")
	}
}

func TestPooledContextReusesSlotAcrossDocuments(t *testing.T) {
	signer, err := fixture.NewSigner("k1")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	ctx, err := NewPooledContext(Config{
		TrustedKeys: []api.Key{signer.Key},
		Threshold:   1,
		ECUID:       "ecu-1",
	}, 1)
	if err != nil {
		t.Fatalf("NewPooledContext: %v", err)
	}

	for i := 0; i < 3; i++ {
		doc := fixture.Document{
			Expires: "2099-01-01T00:00:00Z",
			Version: uint32(i + 1),
		}.Build(signer)
		result, _, err := ctx.Process(&memSource{data: []byte(doc)}, grammar.Timestamp{Year: 2030})
		if err != nil {
			t.Fatalf("Process #%d: %v", i, err)
		}
		if result != api.OKNoImage {
			t.Fatalf("Process #%d result = %v, want OKNoImage", i, result)
		}
	}
	m, ok := ctx.PoolMetrics()
	if !ok {
		t.Fatal("PoolMetrics ok = false, want true")
	}
	if m.CurrentBusy != 0 {
		t.Errorf("CurrentBusy = %d after all Process calls returned, want 0", m.CurrentBusy)
	}
	if m.TotalAllocs != 3 {
		t.Errorf("TotalAllocs = %d, want 3", m.TotalAllocs)
	}
}

func TestProcessThresholdRequiresEnoughSigners(t *testing.T) {
	signer1, err := fixture.NewSigner("k1")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	signer2, err := fixture.NewSigner("k2")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	doc := fixture.Document{
		Expires: "2099-01-01T00:00:00Z",
		Version: 1,
	}.Build(signer1) // only signed by signer1, but both are trusted with threshold 2

	ctx, err := NewContext(Config{
		TrustedKeys: []api.Key{signer1.Key, signer2.Key},
		Threshold:   2,
		ECUID:       "ecu-1",
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	result, _, err := ctx.Process(&memSource{data: []byte(doc)}, grammar.Timestamp{Year: 2030})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result != api.SigFail {
		t.Fatalf("result = %v, want SigFail", result)
	}
	wrapped := AsError(result, nil)
	if wrapped == nil {
		t.Fatal("AsError(SigFail): want non-nil error")
	}
	var verr *Error
	if !errors.As(wrapped, &verr) {
		t.Fatalf("AsError result type = %T, want *Error", wrapped)
	}
}
