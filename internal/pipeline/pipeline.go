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

// Package pipeline holds one verification slot per trusted key and decides,
// once the whole document has streamed past, whether enough of those slots
// produced a valid signature to meet the configured threshold. It never
// short-circuits on the first valid (or invalid) signature: an attacker who
// controls some but not all of the signatures array must not be able to
// change how many of the remaining, trusted slots get evaluated.
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/uptane/uptiny/api"
	"github.com/uptane/uptiny/internal/verifycrypto"
)

// ErrNoVerifyContext wraps a failure to allocate a slot's verify-ctx once
// a matching signature entry is seen. Walk surfaces this as api.NoMemory,
// the resource-exhaustion outcome named for verify-ctx allocation.
var ErrNoVerifyContext = errors.New("pipeline: could not allocate verify-ctx")

// Slot is the per-trusted-key state the walker populates while it parses
// the signatures array and drains while it parses the signed subobject.
// Its signature buffer is a fixed array rather than a heap slice so a
// pooled Pipeline can be reused across documents without allocating one
// per signature seen. Ctx stays nil, and Present stays false, until a
// signature entry actually names this slot's key with a supported
// method — a slot whose key the document never presents never pays for a
// live verify-ctx.
type Slot struct {
	Key     api.Key
	Ctx     verifycrypto.Context
	Present bool
	sigBuf  [api.MaxSigBytes]byte
	sigLen  int
	SigSeen bool

	// Valid is only meaningful after Finalize has run.
	Valid bool
}

// Pipeline holds one Slot per trusted key. A Pipeline is the "context" of
// spec.md's Context Allocator: callers that want it carved out of a fixed
// pool rather than freshly heap-allocated per document obtain one from an
// internal/allocator.Allocator[Pipeline] and call Init on it themselves.
type Pipeline struct {
	slots     map[string]*Slot
	order     []string // preserves key insertion order for deterministic iteration
	threshold int
	finalized bool
}

// New returns a freshly heap-allocated Pipeline with one slot per key in
// keys. It is equivalent to calling Init on a zero Pipeline.
func New(keys []api.Key, threshold int) (*Pipeline, error) {
	p := &Pipeline{}
	if err := p.Init(keys, threshold); err != nil {
		return nil, err
	}
	return p, nil
}

// Init (re)initializes p with one empty slot per key in keys — key and
// signature buffer only, no verify-ctx yet — and threshold as the minimum
// number of those slots that must report a valid signature. Init is what
// lets a Pipeline obtained from a pooled allocator be reused across
// documents: it overwrites every field, including a previous document's
// signature bytes, verify-ctxs, and finalized state.
func (p *Pipeline) Init(keys []api.Key, threshold int) error {
	p.slots = make(map[string]*Slot, len(keys))
	p.order = nil
	p.threshold = threshold
	p.finalized = false
	for _, k := range keys {
		if _, exists := p.slots[k.KeyID]; exists {
			return fmt.Errorf("pipeline: duplicate trusted key id %q", k.KeyID)
		}
		p.slots[k.KeyID] = &Slot{Key: k}
		p.order = append(p.order, k.KeyID)
	}
	return nil
}

// Release drops every slot's reference to its verify-ctx and signature
// bytes so a Pipeline returned to a pooled allocator doesn't keep a
// previous document's cryptographic state reachable until the next Init
// overwrites it.
func (p *Pipeline) Release() {
	p.slots = nil
	p.order = nil
	p.finalized = false
}

// Sinks returns the Context of every slot made Present by Record so far,
// as an io.Writer, suitable for registering with a teereader.Reader so
// each one hashes the signed bytes as they stream past. Callers must call
// this only after the signatures array has been fully parsed and before
// the teereader starts forwarding the signed subobject's bytes — a slot
// not yet Present at that point never becomes present later, since no
// more signature entries remain to make it so.
func (p *Pipeline) Sinks() []io.Writer {
	sinks := make([]io.Writer, 0, len(p.order))
	for _, id := range p.order {
		if slot := p.slots[id]; slot.Present {
			sinks = append(sinks, slot.Ctx)
		}
	}
	return sinks
}

// Record stores a detached signature for keyID, allocating that slot's
// verify-ctx on first use. It is not an error for keyID to name a key
// this Pipeline doesn't trust — the signature is silently discarded,
// since an untrusted signature can never contribute to the threshold
// regardless of its validity. A non-nil error means the verify-ctx could
// not be allocated; it wraps ErrNoVerifyContext.
func (p *Pipeline) Record(keyID string, sig []byte) error {
	slot, ok := p.slots[keyID]
	if !ok {
		return nil
	}
	if !slot.Present {
		ctx, err := verifycrypto.NewContext(slot.Key)
		if err != nil {
			return fmt.Errorf("%w: key %q: %v", ErrNoVerifyContext, keyID, err)
		}
		slot.Ctx = ctx
		slot.Present = true
	}
	slot.sigLen = copy(slot.sigBuf[:], sig)
	slot.SigSeen = true
	return nil
}

// Finalize evaluates every slot that received a signature, without
// stopping early once the threshold is reached, and returns the number of
// slots that validated successfully.
func (p *Pipeline) Finalize() (int, error) {
	if p.finalized {
		return 0, fmt.Errorf("pipeline: Finalize called twice")
	}
	p.finalized = true
	valid := 0
	for _, id := range p.order {
		slot := p.slots[id]
		if !slot.SigSeen {
			continue
		}
		ok, err := slot.Ctx.Finish(slot.sigBuf[:slot.sigLen])
		if err != nil {
			return valid, fmt.Errorf("pipeline: key %q: %w", id, err)
		}
		slot.Valid = ok
		if ok {
			valid++
		}
	}
	return valid, nil
}

// ThresholdMet reports whether validCount, as returned by Finalize, meets
// this Pipeline's configured threshold.
func (p *Pipeline) ThresholdMet(validCount int) bool {
	return validCount >= p.threshold
}
