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

// Package keystore loads the set of trusted director keys from an
// OpenSSH authorized_keys file: one key per line, same format ops teams
// already use to provision machine access, repurposed here to provision
// the keys a fleet of ECUs trusts to sign Director Targets metadata.
package keystore

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/uptane/uptiny/api"
)

// Load reads an authorized_keys-formatted file from r and returns one
// api.Key per non-blank, non-comment line. Only ed25519 and RSA keys are
// supported; any other key type is a hard error, since a keystore
// containing a key this verifier can't ever use to check a signature is
// almost certainly a misconfiguration.
func Load(r io.Reader) ([]api.Key, error) {
	var keys []api.Key
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("keystore: line %d: %w", lineNo, err)
		}
		key, err := toAPIKey(pub)
		if err != nil {
			return nil, fmt.Errorf("keystore: line %d: %w", lineNo, err)
		}
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("keystore: reading keys: %w", err)
	}
	return keys, nil
}

func toAPIKey(pub ssh.PublicKey) (api.Key, error) {
	cryptoPub, ok := pub.(ssh.CryptoPublicKey)
	if !ok {
		return api.Key{}, fmt.Errorf("key type %s does not expose a crypto.PublicKey", pub.Type())
	}
	raw := cryptoPub.CryptoPublicKey()

	keyID := fmt.Sprintf("%x", sha256.Sum256(pub.Marshal()))

	switch k := raw.(type) {
	case ed25519.PublicKey:
		return api.Key{KeyID: keyID, Algorithm: "ed25519", Material: []byte(k)}, nil
	case *rsa.PublicKey:
		der, err := x509.MarshalPKIXPublicKey(k)
		if err != nil {
			return api.Key{}, fmt.Errorf("marshaling RSA public key: %w", err)
		}
		return api.Key{KeyID: keyID, Algorithm: "rsassa-pss-sha256", Material: der}, nil
	default:
		return api.Key{}, fmt.Errorf("unsupported key type %T", raw)
	}
}
