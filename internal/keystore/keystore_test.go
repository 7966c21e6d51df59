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

package keystore

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestLoadParsesEd25519Keys(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("NewPublicKey: %v", err)
	}
	line := string(ssh.MarshalAuthorizedKey(sshPub))

	keys, err := Load(strings.NewReader("# a comment\n\n" + line))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("Load returned %d keys, want 1", len(keys))
	}
	if keys[0].Algorithm != "ed25519" {
		t.Errorf("Algorithm = %q, want ed25519", keys[0].Algorithm)
	}
	if !bytes.Equal(keys[0].Material, pub) {
		t.Errorf("Material mismatch")
	}
	if len(keys[0].KeyID) != 64 {
		t.Errorf("KeyID length = %d, want 64", len(keys[0].KeyID))
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	if _, err := Load(strings.NewReader("not a valid authorized_keys line")); err == nil {
		t.Error("Load with malformed line: want error, got nil")
	}
}

func TestLoadEmptyFileReturnsNoKeys(t *testing.T) {
	keys, err := Load(strings.NewReader("\n# just a comment\n\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Load returned %d keys, want 0", len(keys))
	}
}
