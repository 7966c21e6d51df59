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

// Package grammar holds the primitive readers the grammar walker composes
// into the fixed Director Targets document shape: fixed-literal match,
// quoted text, quoted hex, unsigned decimal integers, and the one timestamp
// format the documents use. Every primitive here reads exclusively through
// the caller-supplied Reader, never around it — that's what lets a
// teereader.Reader sit underneath and hash the signed bytes as they're
// consumed.
package grammar

import (
	"fmt"
)

// Reader is the minimal read surface every primitive needs. teereader.Reader
// satisfies it; tests can substitute a bare in-memory implementation.
type Reader interface {
	Read(buf []byte) error
	ReadByte() (byte, error)
	Peek() (byte, error)
}

// Literal reads len(s) bytes and requires them to equal s exactly.
func Literal(r Reader, s string) error {
	if len(s) == 0 {
		return nil
	}
	buf := make([]byte, len(s))
	if err := r.Read(buf); err != nil {
		return fmt.Errorf("%w: reading literal %q: %v", ErrGrammar, s, err)
	}
	if string(buf) != s {
		return fmt.Errorf("%w: expected literal %q, got %q", ErrGrammar, s, buf)
	}
	return nil
}

// Text reads a double-quoted string with no escape processing into dst,
// which must be large enough for the string's contents. It fails if the
// closing quote has not appeared after max bytes. It returns the number of
// bytes written to dst.
func Text(r Reader, dst []byte, max int) (int, error) {
	if err := Literal(r, `"`); err != nil {
		return 0, err
	}
	n := 0
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("%w: reading text body: %v", ErrGrammar, err)
		}
		if b == '"' {
			return n, nil
		}
		if n >= max {
			return 0, fmt.Errorf("%w: text exceeds %d bytes with no closing quote", ErrGrammar, max)
		}
		if n < len(dst) {
			dst[n] = b
		}
		n++
	}
}

// SkipText discards a double-quoted string of unbounded length.
func SkipText(r Reader) error {
	if err := Literal(r, `"`); err != nil {
		return err
	}
	for {
		b, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: skipping text body: %v", ErrGrammar, err)
		}
		if b == '"' {
			return nil
		}
	}
}

// Hex decodes a double-quoted hex string, MSB-first, into dst. It fails on
// an odd number of hex digits, a non-hex character, or more decoded bytes
// than len(dst). It returns the number of bytes decoded.
func Hex(r Reader, dst []byte) (int, error) {
	if err := Literal(r, `"`); err != nil {
		return 0, err
	}
	n := 0
	for {
		b, err := r.Peek()
		if err != nil {
			return 0, fmt.Errorf("%w: reading hex body: %v", ErrGrammar, err)
		}
		if b == '"' {
			if _, err := r.ReadByte(); err != nil {
				return 0, fmt.Errorf("%w: consuming hex closing quote: %v", ErrGrammar, err)
			}
			return n, nil
		}
		if n >= len(dst) {
			return 0, fmt.Errorf("%w: hex value exceeds %d bytes", ErrGrammar, len(dst))
		}
		hi, err := readNibble(r)
		if err != nil {
			return 0, err
		}
		lo, err := readNibble(r)
		if err != nil {
			return 0, err
		}
		dst[n] = hi<<4 | lo
		n++
	}
}

func readNibble(r Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: reading hex nibble: %v", ErrGrammar, err)
	}
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("%w: %q is not a hex digit", ErrGrammar, b)
	}
}

// Uint32 reads one or more decimal digits and accumulates them as
// v = v*10 + d in unsigned 32-bit arithmetic. Overflow behaviour is
// unspecified; callers needing a bounded range (e.g. a 4-digit year) must
// check the result themselves.
func Uint32(r Reader) (uint32, error) {
	var v uint32
	var count int
	for {
		b, err := r.Peek()
		if err != nil {
			return 0, fmt.Errorf("%w: reading digits: %v", ErrGrammar, err)
		}
		if b < '0' || b > '9' {
			break
		}
		if _, err := r.ReadByte(); err != nil {
			return 0, fmt.Errorf("%w: consuming digit: %v", ErrGrammar, err)
		}
		v = v*10 + uint32(b-'0')
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: expected at least one digit", ErrGrammar)
	}
	return v, nil
}

// readFixedDigits reads exactly n digit bytes and returns their decimal
// value. Unlike Uint32, it does not use Peek to find the field's end — the
// timestamp format's fields are fixed-width.
func readFixedDigits(r Reader, n int) (uint32, error) {
	buf := make([]byte, n)
	if err := r.Read(buf); err != nil {
		return 0, fmt.Errorf("%w: reading %d-digit field: %v", ErrGrammar, n, err)
	}
	var v uint32
	for _, b := range buf {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: %q is not a digit", ErrGrammar, b)
		}
		v = v*10 + uint32(b-'0')
	}
	return v, nil
}
