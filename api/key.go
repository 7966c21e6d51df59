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

// KeyIDHexLen is the number of hex characters in a serialised keyid.
const KeyIDHexLen = 64

// Key is a trusted Targets-role key, opaque to the verifier core beyond its
// id, declared algorithm and raw material. The crypto collaborator
// interprets Material; the verifier core never does.
type Key struct {
	// KeyID is the lowercase hex keyid as it appears in the document's
	// "signatures[].keyid" field.
	KeyID string

	// Algorithm is the key's own algorithm, e.g. "ed25519" or
	// "rsassa-pss-sha256". A signature entry only activates this key's slot
	// when its "method" field also names a supported algorithm.
	Algorithm string

	// Material is the raw key material, interpreted only by the crypto
	// collaborator (internal/verifycrypto or an equivalent implementation).
	Material []byte
}

// String returns a short identifying string for logs, never including key
// material.
func (k Key) String() string {
	return fmt.Sprintf("Key{id=%s, alg=%s}", k.KeyID, k.Algorithm)
}
