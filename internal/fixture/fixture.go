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

// Package fixture builds well-formed (and deliberately malformed)
// Director Targets documents for tests, the mock director server, and
// anything else that wants a document without standing up a real
// Uptane director.
package fixture

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/uptane/uptiny/api"
)

// Signer is a single trusted key this package can sign documents with.
type Signer struct {
	KeyID string
	priv  ed25519.PrivateKey

	// Key is the corresponding trusted api.Key, suitable for handing to a
	// pipeline or keystore.
	Key api.Key
}

// NewSigner generates a fresh Ed25519 signer, deriving its KeyID the same
// way internal/keystore does: the sha256 hex digest of the public key's
// SSH wire encoding, so fixture documents carry a "keyid" the production
// grammar's api.KeyIDHexLen check actually accepts. label is unused beyond
// letting call sites name their signers; it has no bearing on the derived id.
func NewSigner(label string) (Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Signer{}, fmt.Errorf("fixture: generating signer: %w", err)
	}
	// SSH wire encoding: length-prefixed key type name, then the
	// length-prefixed raw key bytes.
	const keyType = "ssh-ed25519"
	wire := binary.BigEndian.AppendUint32(nil, uint32(len(keyType)))
	wire = append(wire, keyType...)
	wire = binary.BigEndian.AppendUint32(wire, uint32(len(pub)))
	wire = append(wire, pub...)
	keyID := fmt.Sprintf("%x", sha256.Sum256(wire))
	return Signer{
		KeyID: keyID,
		priv:  priv,
		Key:   api.Key{KeyID: keyID, Algorithm: "ed25519", Material: pub},
	}, nil
}

// Sign returns the hex-encoded Ed25519ph signature over signedJSON's exact
// bytes.
func (s Signer) Sign(signedJSON string) string {
	digest := sha512.Sum512([]byte(signedJSON))
	sig, err := s.priv.Sign(rand.Reader, digest[:], &ed25519.Options{Hash: crypto.SHA512})
	if err != nil {
		panic(fmt.Sprintf("fixture: signing: %v", err)) // only crypto/rand failure can cause this
	}
	return fmt.Sprintf("%x", sig)
}

// Target describes one entry of the targets object.
type Target struct {
	Path           string
	ECUID          string
	HardwareID     string
	ReleaseCounter uint32
	SHA512         string            // hex-encoded; leave empty to omit the sha512 hash entirely
	OtherHashes    map[string]string // additional algorithm-name -> hex-string pairs the verifier must skip
	Length         uint32
}

func (tg Target) json() string {
	pairs := make([]string, 0, len(tg.OtherHashes)+1)
	for alg, hex := range tg.OtherHashes {
		pairs = append(pairs, fmt.Sprintf("%q:%q", alg, hex))
	}
	if tg.SHA512 != "" {
		pairs = append(pairs, fmt.Sprintf(`"sha512":%q`, tg.SHA512))
	}
	hashesField := fmt.Sprintf(`"hashes":{%s}`, strings.Join(pairs, ","))
	return fmt.Sprintf(`%q:{"custom":{"ecu_identifier":%q,"hardware_identifier":%q,"release_counter":%d},%s,"length":%d}`,
		tg.Path, tg.ECUID, tg.HardwareID, tg.ReleaseCounter, hashesField, tg.Length)
}

// Document describes an entire Director Targets document to build.
type Document struct {
	Type    string // defaults to "Targets" if empty
	Expires string // "YYYY-MM-DDTHH:MM:SSZ"; required
	Version uint32
	Targets []Target

	// ExtraSignatures are appended to the signatures array verbatim, after
	// every signer's real signature. Useful for exercising a verifier's
	// handling of signature entries whose method it doesn't support.
	ExtraSignatures []RawSignature
}

// RawSignature is a signatures[] entry built with literal field values
// rather than a real Signer, for constructing documents that carry a
// signature entry this verifier should ignore.
type RawSignature struct {
	KeyID  string
	Method string
	Sig    string // hex-encoded
}

func (s RawSignature) json() string {
	return fmt.Sprintf(`{"keyid":%q,"method":%q,"sig":%q}`, s.KeyID, s.Method, s.Sig)
}

// SignedBody renders just the "signed" subobject's exact bytes, the thing
// a Signer actually signs.
func (d Document) SignedBody() string {
	typ := d.Type
	if typ == "" {
		typ = "Targets"
	}
	entries := make([]string, len(d.Targets))
	for i, tg := range d.Targets {
		entries[i] = tg.json()
	}
	return fmt.Sprintf(`{"_type":%q,"expires":%q,"targets":{%s},"version":%d}`,
		typ, d.Expires, strings.Join(entries, ","), d.Version)
}

// Build renders a complete document signed by each of signers, in order,
// followed by any ExtraSignatures.
func (d Document) Build(signers ...Signer) string {
	signed := d.SignedBody()
	sigs := make([]string, 0, len(signers)+len(d.ExtraSignatures))
	for _, s := range signers {
		sigs = append(sigs, fmt.Sprintf(`{"keyid":%q,"method":"ed25519","sig":%q}`, s.KeyID, s.Sign(signed)))
	}
	for _, s := range d.ExtraSignatures {
		sigs = append(sigs, s.json())
	}
	return fmt.Sprintf(`{"signatures":[%s],"signed":%s}`, strings.Join(sigs, ","), signed)
}
