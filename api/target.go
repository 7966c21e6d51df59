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

import "fmt"

// SHA512Len is the length in bytes of the one supported hash algorithm's
// digest.
const SHA512Len = 64

// VerifiedTarget is the firmware descriptor extracted from a Targets
// document for this ECU. Its fields are defined only when Process returns
// api.OKUpdate (all three) or api.OKNoUpdate (Version only); for every other
// result they are indeterminate and must not be used.
type VerifiedTarget struct {
	// SHA512 is the 64-byte digest of the firmware image this ECU must
	// install.
	SHA512 [SHA512Len]byte

	// Length is the expected byte length of the firmware image.
	Length uint32

	// Version is the release_counter-independent Targets version this
	// descriptor was published at.
	Version uint32
}

// String returns a compact representation for logs; never used to drive
// control flow.
func (t VerifiedTarget) String() string {
	return fmt.Sprintf("target{sha512=%x, length=%d, version=%d}", t.SHA512, t.Length, t.Version)
}
