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

// Package verify is the public entry point: it wires the teereader,
// pipeline, and walker layers together behind a single Process call, the
// way a caller integrating this into a bootloader or an update agent
// would use it.
package verify

import (
	"fmt"

	"github.com/uptane/uptiny/api"
	"github.com/uptane/uptiny/internal/allocator"
	"github.com/uptane/uptiny/internal/grammar"
	"github.com/uptane/uptiny/internal/pipeline"
	"github.com/uptane/uptiny/internal/teereader"
	"github.com/uptane/uptiny/internal/walker"
)

// Config fixes everything Process needs to know about the caller's ECU
// and its trust root, independent of any one document being verified.
type Config struct {
	// TrustedKeys are the keys allowed to sign Director Targets metadata.
	TrustedKeys []api.Key
	// Threshold is the minimum number of those keys that must produce a
	// valid signature over a document for it to be accepted.
	Threshold int
	// ECUID and HardwareID identify the ECU Process is evaluating a
	// document on behalf of.
	ECUID, HardwareID string
	// LastKnownVersion is the version of the last Targets document this
	// ECU accepted; a document whose own version field is lower is a
	// downgrade. custom.release_counter is parsed off every matching
	// target entry but never compared against this value.
	LastKnownVersion uint32
}

// Context holds one Config and one allocator, ready to Process any number
// of documents against it. Process obtains the pipeline — spec.md's
// "context" in Context Allocator terms, the per-document slot array of
// signature buffers and verify-ctxs — from that allocator for the
// duration of one call and returns it afterward. A heap-backed Context
// shares no mutable state between calls, since HeapAllocator hands out a
// fresh pipeline every time; a pool-backed Context is not safe for
// concurrent use, because PoolAllocator's fixed slots and busy bitmap are
// mutable state shared across calls, so callers
// verifying concurrently with a pooled Context must serialize their calls
// to Process with an external mutex, matching spec.md §5's pooled-mode
// mutual-exclusion requirement.
type Context struct {
	cfg   Config
	alloc allocator.Allocator[pipeline.Pipeline]
}

func validate(cfg Config) error {
	if len(cfg.TrustedKeys) == 0 {
		return fmt.Errorf("verify: Config.TrustedKeys is empty")
	}
	if cfg.Threshold <= 0 || cfg.Threshold > len(cfg.TrustedKeys) {
		return fmt.Errorf("verify: Config.Threshold %d is invalid for %d trusted keys", cfg.Threshold, len(cfg.TrustedKeys))
	}
	if cfg.ECUID == "" {
		return fmt.Errorf("verify: Config.ECUID is empty")
	}
	return nil
}

// NewContext validates cfg and returns a ready Context that allocates a
// fresh pipeline from the heap for every call to Process — "heap mode" in
// spec.md §4.4's terms.
func NewContext(cfg Config) (*Context, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &Context{cfg: cfg, alloc: allocator.NewHeap[pipeline.Pipeline]()}, nil
}

// NewPooledContext validates cfg and returns a Context whose Process
// draws its per-document pipeline from a fixed pool of poolSize contexts
// instead of the heap — "pooled mode" in spec.md §4.4's terms. When the
// pool is exhausted, Process returns api.NoMemory instead of blocking or
// allocating beyond it.
func NewPooledContext(cfg Config, poolSize int) (*Context, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &Context{cfg: cfg, alloc: allocator.NewPool[pipeline.Pipeline](poolSize)}, nil
}

// PoolMetrics returns the underlying pool's occupancy snapshot and true if
// c was built with NewPooledContext, or a zero Metrics and false for a
// heap-mode Context.
func (c *Context) PoolMetrics() (allocator.Metrics, bool) {
	pool, ok := c.alloc.(*allocator.PoolAllocator[pipeline.Pipeline])
	if !ok {
		return allocator.Metrics{}, false
	}
	return pool.Metrics(), true
}

// Process verifies a single Director Targets document read from src,
// evaluated as of now. The returned Result always classifies the
// outcome; err is non-nil in three cases: the document's grammar was
// malformed badly enough that classification into any of the Result's
// "OK" or defined failure variants was impossible (api.JSONError), a
// matching signature entry's verify-ctx could not be allocated
// (api.NoMemory), or the pipeline could not be initialized from the
// Config's trusted keys because two of them share a key id (also
// reported as api.NoMemory).
//
// If the Context's allocator itself has no capacity left (only possible
// in pooled mode), Process returns api.NoMemory with a nil error instead
// — "returning null (pool full) is a legal outcome the caller must
// handle."
func (c *Context) Process(src api.ByteSource, now grammar.Timestamp) (api.Result, *api.VerifiedTarget, error) {
	pl, idx, ok := c.alloc.Alloc()
	if !ok {
		return api.NoMemory, nil, nil
	}
	defer func() {
		pl.Release()
		c.alloc.Free(idx)
	}()

	if err := pl.Init(c.cfg.TrustedKeys, c.cfg.Threshold); err != nil {
		return api.NoMemory, nil, fmt.Errorf("verify: building pipeline: %w", err)
	}

	tr := teereader.New(src)
	return walker.Walk(tr, pl, c.cfg.ECUID, c.cfg.HardwareID, c.cfg.LastKnownVersion, now)
}
