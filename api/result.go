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

package api

// Result is the outcome of verifying a single Director Targets document.
type Result int

const (
	// OKUpdate means the document is valid, addresses this ECU, and carries a
	// newer firmware version than the one previously installed.
	OKUpdate Result = iota
	// OKNoUpdate means the document is valid and addresses this ECU, but the
	// version matches what's already installed.
	OKNoUpdate
	// OKNoImage means the document is valid but names no target for this
	// ECU/hardware pair.
	OKNoImage
	// JSONError is a grammar-level failure: malformed JSON, I/O underflow,
	// an overlong field, or a non-hex digit where hex was required.
	JSONError
	// WrongType means the signed "_type" field was not "Targets".
	WrongType
	// Expired means now is strictly after the signed "expires" timestamp.
	Expired
	// Downgrade means the signed version is less than versionPrev.
	Downgrade
	// SigFail means fewer than threshold signatures verified.
	SigFail
	// ECUDuplicate means more than one target entry matched this ECU.
	ECUDuplicate
	// NoHash means the matching target carried no "sha512" hash entry.
	NoHash
	// NoMemory means a verify-context could not be allocated.
	NoMemory
)

// String returns a short, stable name for the result, suitable for logs.
func (r Result) String() string {
	switch r {
	case OKUpdate:
		return "OK_UPDATE"
	case OKNoUpdate:
		return "OK_NO_UPDATE"
	case OKNoImage:
		return "OK_NO_IMAGE"
	case JSONError:
		return "JSON_ERROR"
	case WrongType:
		return "WRONG_TYPE"
	case Expired:
		return "EXPIRED"
	case Downgrade:
		return "DOWNGRADE"
	case SigFail:
		return "SIG_FAIL"
	case ECUDuplicate:
		return "ECU_DUPLICATE"
	case NoHash:
		return "NO_HASH"
	case NoMemory:
		return "NO_MEMORY"
	default:
		return "UNKNOWN_RESULT"
	}
}

// Succeeded reports whether r is one of the three success variants.
func (r Result) Succeeded() bool {
	switch r {
	case OKUpdate, OKNoUpdate, OKNoImage:
		return true
	default:
		return false
	}
}

// ErrorClass names the five disjoint error classes of the error handling
// design: structural, semantic, trust, resource, and success.
type ErrorClass int

const (
	// ClassSuccess covers the three OK_* results.
	ClassSuccess ErrorClass = iota
	// ClassStructural covers grammar mismatches and I/O underflow.
	ClassStructural
	// ClassSemantic covers WRONG_TYPE, EXPIRED, DOWNGRADE, ECU_DUPLICATE, NO_HASH.
	ClassSemantic
	// ClassTrust covers SIG_FAIL.
	ClassTrust
	// ClassResource covers NO_MEMORY.
	ClassResource
)

// Class returns the error class for r.
func (r Result) Class() ErrorClass {
	switch r {
	case OKUpdate, OKNoUpdate, OKNoImage:
		return ClassSuccess
	case JSONError:
		return ClassStructural
	case WrongType, Expired, Downgrade, ECUDuplicate, NoHash:
		return ClassSemantic
	case SigFail:
		return ClassTrust
	case NoMemory:
		return ClassResource
	default:
		return ClassStructural
	}
}
