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

// Package teereader is the single choke point through which every grammar
// primitive reads. While active, it forwards every byte it consumes (but
// never a byte it only peeks at) to a set of registered sinks, one per live
// signature-verification context. No parser primitive may bypass it while
// inside the "signed" subobject.
package teereader

import (
	"fmt"
	"io"

	"github.com/uptane/uptiny/api"
)

// Reader is a TeeReader over an api.ByteSource.
type Reader struct {
	src    api.ByteSource
	sinks  []io.Writer
	active bool

	// bytesRead counts every byte pulled through Read, active or not, so
	// callers can bound how far into a document the verifier travelled.
	bytesRead int64
}

// New wraps src. Forwarding starts inactive.
func New(src api.ByteSource) *Reader {
	return &Reader{src: src}
}

// AddSink registers w to receive every subsequently consumed byte while the
// reader is active. Sinks already registered are unaffected.
func (r *Reader) AddSink(w io.Writer) {
	r.sinks = append(r.sinks, w)
}

// SetActive toggles forwarding. The caller is responsible for calling this
// exactly at the "signed" value's opening and matching closing brace.
func (r *Reader) SetActive(active bool) {
	r.active = active
}

// Active reports the current forwarding state.
func (r *Reader) Active() bool {
	return r.active
}

// BytesRead returns the total number of bytes consumed so far.
func (r *Reader) BytesRead() int64 {
	return r.bytesRead
}

// Read fills buf completely from the underlying source, then — if active —
// forwards exactly those bytes, in order, to every registered sink.
func (r *Reader) Read(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if err := r.src.Read(buf); err != nil {
		return err
	}
	r.bytesRead += int64(len(buf))
	if r.active {
		for _, s := range r.sinks {
			if _, err := s.Write(buf); err != nil {
				return fmt.Errorf("teereader: sink write failed: %w", err)
			}
		}
	}
	return nil
}

// ReadByte reads and returns exactly one byte, respecting the same
// forwarding rule as Read.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Peek returns the next byte without consuming it. Peeked bytes are never
// forwarded to sinks; they become eligible for forwarding only once a
// subsequent Read actually consumes them.
func (r *Reader) Peek() (byte, error) {
	return r.src.Peek()
}
