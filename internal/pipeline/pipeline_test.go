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

package pipeline

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"testing"

	"github.com/uptane/uptiny/api"
)

type trustedKey struct {
	keyID string
	priv  ed25519.PrivateKey
	key   api.Key
}

func newTrustedKey(t *testing.T, keyID string) trustedKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return trustedKey{
		keyID: keyID,
		priv:  priv,
		key:   api.Key{KeyID: keyID, Algorithm: "ed25519", Material: pub},
	}
}

func (tk trustedKey) sign(msg []byte) []byte {
	digest := sha512.Sum512(msg)
	sig, err := tk.priv.Sign(rand.Reader, digest[:], &ed25519.Options{Hash: crypto.SHA512})
	if err != nil {
		panic(err)
	}
	return sig
}

func writeToAllSinks(p *Pipeline, msg []byte) {
	for _, s := range p.Sinks() {
		s.Write(msg)
	}
}

func TestFinalizeMeetsThresholdWithEnoughValidSignatures(t *testing.T) {
	k1 := newTrustedKey(t, "key1")
	k2 := newTrustedKey(t, "key2")
	k3 := newTrustedKey(t, "key3")

	p, err := New([]api.Key{k1.key, k2.key, k3.key}, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msg := []byte("the signed payload bytes")
	p.Record("key1", k1.sign(msg))
	p.Record("key2", k2.sign(msg))
	// key3 never signed, so its slot never becomes Present and never
	// receives msg below.
	writeToAllSinks(p, msg)

	valid, err := p.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if valid != 2 {
		t.Errorf("valid = %d, want 2", valid)
	}
	if !p.ThresholdMet(valid) {
		t.Error("ThresholdMet = false, want true")
	}
}

func TestFinalizeDoesNotShortCircuitOnInvalidSignature(t *testing.T) {
	k1 := newTrustedKey(t, "key1")
	k2 := newTrustedKey(t, "key2")

	p, err := New([]api.Key{k1.key, k2.key}, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msg := []byte("the signed payload bytes")
	p.Record("key1", []byte("not a real signature, wrong length entirely"))
	p.Record("key2", k2.sign(msg))
	writeToAllSinks(p, msg)

	valid, err := p.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if valid != 1 {
		t.Errorf("valid = %d, want 1 (key2 only)", valid)
	}
	if p.ThresholdMet(valid) {
		t.Error("ThresholdMet = true, want false: only 1 of 2 required signatures validated")
	}
}

func TestRecordIgnoresUntrustedKeyID(t *testing.T) {
	k1 := newTrustedKey(t, "key1")
	p, err := New([]api.Key{k1.key}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Recording against an unknown key id must not panic or error.
	p.Record("not-a-trusted-key", []byte("whatever"))

	valid, err := p.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if valid != 0 {
		t.Errorf("valid = %d, want 0", valid)
	}
}

func TestNewRejectsDuplicateKeyID(t *testing.T) {
	k1 := newTrustedKey(t, "dup")
	k2 := newTrustedKey(t, "dup")
	if _, err := New([]api.Key{k1.key, k2.key}, 1); err == nil {
		t.Error("New with duplicate key ids: want error, got nil")
	}
}

func TestFinalizeTwiceFails(t *testing.T) {
	k1 := newTrustedKey(t, "key1")
	p, err := New([]api.Key{k1.key}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Finalize(); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if _, err := p.Finalize(); err == nil {
		t.Error("second Finalize: want error, got nil")
	}
}
