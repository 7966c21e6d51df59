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

// Package walker holds the grammar walker: the recursive-descent parser
// that knows the Director Targets document's exact, fixed field order and
// drives the teereader/pipeline/grammar primitives across it in a single
// forward pass. It never builds a general JSON tree — a document whose
// structure deviates from the expected shape in any way fails fast as a
// grammar mismatch, never as a "field not found" lookup.
package walker

import (
	"errors"
	"fmt"

	"github.com/uptane/uptiny/api"
	"github.com/uptane/uptiny/internal/grammar"
	"github.com/uptane/uptiny/internal/pipeline"
	"github.com/uptane/uptiny/internal/teereader"
)

// supportedMethods is the set of signatures[].method strings the walker
// accepts as plausible before it even looks at which key asserted them.
// The actual verification always uses the trusted key's own algorithm;
// an entry whose method isn't in this set is ignored (its sig is still
// parsed off the wire, just never handed to the pipeline), not a document
// failure — a document may carry signatures this verifier doesn't
// understand alongside ones it does.
var supportedMethods = map[string]bool{
	"rsassa-pss-sha256": true,
	"ed25519":           true,
}

// Walk parses a single Director Targets document from tr, verifying its
// signatures against pl and evaluating the target entry (if any) assigned
// to the ECU identified by ecuID. lastKnownVersion is the last version
// this ECU accepted; now is used to evaluate the document's expiry.
//
// Walk returns a non-nil error alongside api.JSONError when the document
// fails the grammar (or the signature pipeline cannot be finalized), and
// alongside api.NoMemory when a verify-ctx cannot be allocated; every
// other outcome comes back as a Result with a nil error.
func Walk(tr *teereader.Reader, pl *pipeline.Pipeline, ecuID, hardwareID string, lastKnownVersion uint32, now grammar.Timestamp) (api.Result, *api.VerifiedTarget, error) {
	if err := grammar.Literal(tr, `{"signatures":`); err != nil {
		return api.JSONError, nil, err
	}
	if err := walkSignatures(tr, pl); err != nil {
		if errors.Is(err, pipeline.ErrNoVerifyContext) {
			return api.NoMemory, nil, err
		}
		return api.JSONError, nil, err
	}
	if err := grammar.Literal(tr, `,"signed":`); err != nil {
		return api.JSONError, nil, err
	}

	// Every slot a matching signature entry made Present is now known;
	// wire each one's verify-ctx onto the teereader before it starts
	// forwarding the signed subobject's bytes.
	for _, sink := range pl.Sinks() {
		tr.AddSink(sink)
	}

	tr.SetActive(true)
	wrongType, expired, target, duplicate, version, err := walkSigned(tr, ecuID, hardwareID, now)
	if err == nil {
		// This closing brace belongs to the signed object itself, so it
		// must be consumed (and hashed) before forwarding stops.
		err = grammar.Literal(tr, "}")
	}
	tr.SetActive(false)
	if err != nil {
		return api.JSONError, nil, err
	}

	// This closing brace belongs to the top-level document and is never
	// part of the signed content.
	if err := grammar.Literal(tr, `}`); err != nil {
		return api.JSONError, nil, err
	}

	if wrongType {
		return api.WrongType, nil, nil
	}
	if expired {
		return api.Expired, nil, nil
	}
	if version < lastKnownVersion {
		return api.Downgrade, nil, nil
	}
	if duplicate {
		return api.ECUDuplicate, nil, nil
	}

	validCount, err := pl.Finalize()
	if err != nil {
		return api.JSONError, nil, fmt.Errorf("walker: finalizing signature pipeline: %w", err)
	}
	if !pl.ThresholdMet(validCount) {
		return api.SigFail, nil, nil
	}

	if target == nil {
		return api.OKNoImage, nil, nil
	}
	if !target.hashSeen {
		return api.NoHash, nil, nil
	}
	target.Version = version
	if version == lastKnownVersion {
		return api.OKNoUpdate, &target.VerifiedTarget, nil
	}
	return api.OKUpdate, &target.VerifiedTarget, nil
}

// walkSignatures parses the signatures array, recording each entry's
// keyid/sig pair in pl for later threshold evaluation. It never stops
// early because a signature looks malformed or belongs to an untrusted
// key: it always consumes exactly the bytes the grammar says are there.
func walkSignatures(tr *teereader.Reader, pl *pipeline.Pipeline) error {
	if err := grammar.Literal(tr, "["); err != nil {
		return err
	}
	b, err := tr.Peek()
	if err != nil {
		return fmt.Errorf("%w: peeking signatures array: %v", grammar.ErrGrammar, err)
	}
	if b == ']' {
		_, _ = tr.ReadByte()
		return nil
	}

	for count := 0; ; count++ {
		if count >= api.MaxSignatures {
			return fmt.Errorf("%w: signatures array exceeds %d entries", grammar.ErrGrammar, api.MaxSignatures)
		}
		if err := grammar.Literal(tr, `{"keyid":`); err != nil {
			return err
		}
		keyIDRaw := make([]byte, api.KeyIDHexLen/2)
		n, err := grammar.Hex(tr, keyIDRaw)
		if err != nil {
			return err
		}
		if n != api.KeyIDHexLen/2 {
			return fmt.Errorf("%w: keyid is %d bytes, want %d", grammar.ErrGrammar, n*2, api.KeyIDHexLen)
		}
		keyID := []byte(fmt.Sprintf("%x", keyIDRaw))

		if err := grammar.Literal(tr, `,"method":`); err != nil {
			return err
		}
		method := make([]byte, api.MaxMethodBytes)
		mn, err := grammar.Text(tr, method, api.MaxMethodBytes)
		if err != nil {
			return err
		}
		supported := supportedMethods[string(method[:mn])]

		if err := grammar.Literal(tr, `,"sig":`); err != nil {
			return err
		}
		sig := make([]byte, api.MaxSigBytes)
		sn, err := grammar.Hex(tr, sig)
		if err != nil {
			return err
		}

		if err := grammar.Literal(tr, "}"); err != nil {
			return err
		}

		// An entry whose method this verifier doesn't understand is
		// ignored: its sig has still been read off the wire above, but it
		// is never handed to the pipeline. Record itself also silently
		// ignores any keyid that isn't one of the trusted keys.
		if supported {
			if err := pl.Record(string(keyID), sig[:sn]); err != nil {
				return err
			}
		}

		b, err := tr.Peek()
		if err != nil {
			return fmt.Errorf("%w: peeking after signature entry: %v", grammar.ErrGrammar, err)
		}
		if b == ']' {
			_, _ = tr.ReadByte()
			return nil
		}
		if err := grammar.Literal(tr, ","); err != nil {
			return err
		}
	}
}

// matchedTarget is the target entry assigned to the ECU Walk was asked
// about, if any.
type matchedTarget struct {
	api.VerifiedTarget
	hashSeen bool
}

// walkSigned parses the signed subobject's body (the caller has already
// consumed the opening brace's preceding bytes via teereader activation,
// but the brace itself is read here so it's included in the hash).
// It returns whether the _type field mismatched, whether expires is in
// the past, the matched target entry (nil if the ECU has no assignment),
// whether more than one entry claimed the same ECU, and the document's
// own version field.
func walkSigned(tr *teereader.Reader, ecuID, hardwareID string, now grammar.Timestamp) (wrongType, expired bool, target *matchedTarget, duplicate bool, version uint32, err error) {
	if err := grammar.Literal(tr, `{"_type":`); err != nil {
		return false, false, nil, false, 0, err
	}
	typeBuf := make([]byte, 32)
	tn, err := grammar.Text(tr, typeBuf, 32)
	if err != nil {
		return false, false, nil, false, 0, err
	}
	if string(typeBuf[:tn]) != "Targets" {
		wrongType = true
	}

	if err := grammar.Literal(tr, `,"expires":`); err != nil {
		return false, false, nil, false, 0, err
	}
	expires, err := grammar.Time(tr)
	if err != nil {
		return false, false, nil, false, 0, err
	}
	if now.After(expires) {
		expired = true
	}

	if err := grammar.Literal(tr, `,"targets":{`); err != nil {
		return false, false, nil, false, 0, err
	}
	matchCount := 0
	b, err := tr.Peek()
	if err != nil {
		return false, false, nil, false, 0, fmt.Errorf("%w: peeking targets object: %v", grammar.ErrGrammar, err)
	}
	if b != '}' {
		for {
			entry, matches, err := walkTargetEntry(tr, ecuID, hardwareID)
			if err != nil {
				return false, false, nil, false, 0, err
			}
			if matches {
				matchCount++
				target = entry
			}
			b, err := tr.Peek()
			if err != nil {
				return false, false, nil, false, 0, fmt.Errorf("%w: peeking after target entry: %v", grammar.ErrGrammar, err)
			}
			if b == '}' {
				break
			}
			if err := grammar.Literal(tr, ","); err != nil {
				return false, false, nil, false, 0, err
			}
		}
	}
	if err := grammar.Literal(tr, "}"); err != nil {
		return false, false, nil, false, 0, err
	}
	duplicate = matchCount > 1

	if err := grammar.Literal(tr, `,"version":`); err != nil {
		return false, false, nil, false, 0, err
	}
	version, err = grammar.Uint32(tr)
	if err != nil {
		return false, false, nil, false, 0, err
	}

	return wrongType, expired, target, duplicate, version, nil
}

// walkTargetEntry parses one "<path>":{...} member of the targets object
// and reports whether it's assigned to ecuID.
func walkTargetEntry(tr *teereader.Reader, ecuID, hardwareID string) (*matchedTarget, bool, error) {
	pathBuf := make([]byte, api.MaxTargetPathBytes)
	if _, err := grammar.Text(tr, pathBuf, api.MaxTargetPathBytes); err != nil {
		return nil, false, err
	}
	if err := grammar.Literal(tr, `:{"custom":{"ecu_identifier":`); err != nil {
		return nil, false, err
	}
	ecuBuf := make([]byte, api.MaxIdentifierBytes)
	en, err := grammar.Text(tr, ecuBuf, api.MaxIdentifierBytes)
	if err != nil {
		return nil, false, err
	}

	if err := grammar.Literal(tr, `,"hardware_identifier":`); err != nil {
		return nil, false, err
	}
	hwBuf := make([]byte, api.MaxIdentifierBytes)
	hn, err := grammar.Text(tr, hwBuf, api.MaxIdentifierBytes)
	if err != nil {
		return nil, false, err
	}

	if err := grammar.Literal(tr, `,"release_counter":`); err != nil {
		return nil, false, err
	}
	// release_counter is parsed and discarded: it is not enforced by this
	// verifier, which tracks version monotonicity via the signed
	// document's own top-level version field instead.
	if _, err := grammar.Uint32(tr); err != nil {
		return nil, false, err
	}

	if err := grammar.Literal(tr, `},"hashes":{`); err != nil {
		return nil, false, err
	}
	var sha512 [api.SHA512Len]byte
	hashSeen := false
	b, err := tr.Peek()
	if err != nil {
		return nil, false, fmt.Errorf("%w: peeking hashes object: %v", grammar.ErrGrammar, err)
	}
	for b != '}' {
		algBuf := make([]byte, api.MaxMethodBytes)
		an, err := grammar.Text(tr, algBuf, api.MaxMethodBytes)
		if err != nil {
			return nil, false, err
		}
		if err := grammar.Literal(tr, ":"); err != nil {
			return nil, false, err
		}
		if string(algBuf[:an]) == "sha512" {
			if _, err := grammar.Hex(tr, sha512[:]); err != nil {
				return nil, false, err
			}
			hashSeen = true
		} else if err := grammar.SkipText(tr); err != nil {
			return nil, false, err
		}
		b, err = tr.Peek()
		if err != nil {
			return nil, false, fmt.Errorf("%w: peeking hashes object: %v", grammar.ErrGrammar, err)
		}
		if b == '}' {
			break
		}
		// Another pair must follow the separator; a trailing comma is a
		// grammar mismatch, caught by the next iteration's Text.
		if err := grammar.Literal(tr, ","); err != nil {
			return nil, false, err
		}
	}
	if err := grammar.Literal(tr, `},"length":`); err != nil {
		return nil, false, err
	}
	length, err := grammar.Uint32(tr)
	if err != nil {
		return nil, false, err
	}
	if err := grammar.Literal(tr, "}"); err != nil {
		return nil, false, err
	}

	matches := string(ecuBuf[:en]) == ecuID && string(hwBuf[:hn]) == hardwareID
	entry := &matchedTarget{
		VerifiedTarget: api.VerifiedTarget{
			SHA512: sha512,
			Length: length,
		},
		hashSeen: hashSeen,
	}
	return entry, matches, nil
}
