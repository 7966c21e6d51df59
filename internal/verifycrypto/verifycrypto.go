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

// Package verifycrypto is the reference signature-verification collaborator.
// Each Context is a teereader sink: it hashes every byte written to it as
// the signed subobject streams past, and only once the walker has the
// detached signature bytes in hand does it perform the actual public-key
// operation against the digest it accumulated, never against a buffered
// copy of the message.
package verifycrypto

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/uptane/uptiny/api"
)

// Context is a live signature-verification context: an io.Writer that
// consumes signed bytes as they stream through, plus a Finish step that
// checks a detached signature against the digest accumulated so far.
type Context interface {
	Write(p []byte) (int, error)
	// Finish reports whether sig verifies against the bytes written so far.
	// It may be called at most once; the Context is spent afterwards.
	Finish(sig []byte) (bool, error)
}

// NewContext builds a live verification Context for key, dispatching on
// key.Algorithm. Supported algorithms are "rsassa-pss-sha256" and
// "ed25519", both of which admit an incremental digest rather than needing
// the whole message buffered: RSA-PSS operates directly on a SHA-256
// digest, and Ed25519 is used here in its prehashed (Ed25519ph) form over
// SHA-512, per RFC 8032 section 5.1.
func NewContext(key api.Key) (Context, error) {
	switch key.Algorithm {
	case "rsassa-pss-sha256":
		pub, err := parseRSAPublicKey(key.Material)
		if err != nil {
			return nil, fmt.Errorf("verifycrypto: key %s: %w", key.KeyID, err)
		}
		return &rsaPSSContext{pub: pub, h: sha256.New()}, nil
	case "ed25519":
		if len(key.Material) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("verifycrypto: key %s: ed25519 public key must be %d bytes, got %d", key.KeyID, ed25519.PublicKeySize, len(key.Material))
		}
		pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
		copy(pub, key.Material)
		return &ed25519phContext{pub: pub, h: sha512.New()}, nil
	default:
		return nil, fmt.Errorf("verifycrypto: %w: %q", ErrUnsupportedAlgorithm, key.Algorithm)
	}
}

type rsaPSSContext struct {
	pub  *rsa.PublicKey
	h    hash.Hash
	done bool
}

func (c *rsaPSSContext) Write(p []byte) (int, error) {
	if c.done {
		return 0, fmt.Errorf("verifycrypto: Write after Finish")
	}
	return c.h.Write(p)
}

func (c *rsaPSSContext) Finish(sig []byte) (bool, error) {
	if c.done {
		return false, fmt.Errorf("verifycrypto: Finish called twice")
	}
	c.done = true
	digest := c.h.Sum(nil)
	err := rsa.VerifyPSS(c.pub, crypto.SHA256, digest, sig, nil)
	if err != nil {
		return false, nil
	}
	return true, nil
}

type ed25519phContext struct {
	pub  ed25519.PublicKey
	h    hash.Hash
	done bool
}

func (c *ed25519phContext) Write(p []byte) (int, error) {
	if c.done {
		return 0, fmt.Errorf("verifycrypto: Write after Finish")
	}
	return c.h.Write(p)
}

func (c *ed25519phContext) Finish(sig []byte) (bool, error) {
	if c.done {
		return false, fmt.Errorf("verifycrypto: Finish called twice")
	}
	c.done = true
	digest := c.h.Sum(nil)
	opts := &ed25519.Options{Hash: crypto.SHA512}
	if err := ed25519.VerifyWithOptions(c.pub, digest, sig, opts); err != nil {
		return false, nil
	}
	return true, nil
}
