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

// Package impl holds verifytargets' testable logic, kept out of main so
// it can be exercised directly instead of through a subprocess.
package impl

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/uptane/uptiny/api"
	"github.com/uptane/uptiny/internal/grammar"
	"github.com/uptane/uptiny/internal/keystore"
	"github.com/uptane/uptiny/internal/netsource"
	"github.com/uptane/uptiny/verify"
)

// LoadConfig reads the trusted keystore at keystorePath and builds a
// verify.Config from the remaining flag values.
func LoadConfig(keystorePath string, threshold int, ecuID, hardwareID string, lastKnownVersion uint32) (verify.Config, error) {
	f, err := os.Open(keystorePath)
	if err != nil {
		return verify.Config{}, fmt.Errorf("opening keystore: %w", err)
	}
	defer f.Close()

	keys, err := keystore.Load(f)
	if err != nil {
		return verify.Config{}, fmt.Errorf("loading keystore: %w", err)
	}
	glog.V(1).Infof("loaded %d trusted keys from %s", len(keys), keystorePath)

	return verify.Config{
		TrustedKeys:      keys,
		Threshold:        threshold,
		ECUID:            ecuID,
		HardwareID:       hardwareID,
		LastKnownVersion: lastKnownVersion,
	}, nil
}

// Outcome is one document's verification result.
type Outcome struct {
	Result api.Result
	Target *api.VerifiedTarget
}

// fileSource is a trivial api.ByteSource over an *os.File, used for
// local-path arguments.
type fileSource struct {
	f        *os.File
	peeked   bool
	peekByte byte
	peekErr  error
}

func (s *fileSource) Read(buf []byte) error {
	n := 0
	if s.peeked {
		if s.peekErr != nil {
			return s.peekErr
		}
		if len(buf) == 0 {
			return nil
		}
		buf[0] = s.peekByte
		s.peeked = false
		n = 1
	}
	for n < len(buf) {
		m, err := s.f.Read(buf[n:])
		n += m
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *fileSource) Peek() (byte, error) {
	if s.peeked {
		return s.peekByte, s.peekErr
	}
	var b [1]byte
	_, err := s.f.Read(b[:])
	s.peeked = true
	s.peekByte = b[0]
	s.peekErr = err
	return s.peekByte, s.peekErr
}

// VerifyOne verifies a single document named by target, which may be an
// http(s) URL or a local file path, against vctx. When vctx was built
// with NewPooledContext, its Process draws the document's pipeline from a
// fixed pool shared across every concurrent caller, so mu must guard each
// call to Process against the others — exercising spec.md §5's pooled
// mode external-mutual-exclusion requirement.
func VerifyOne(ctx context.Context, vctx *verify.Context, mu *sync.Mutex, client *http.Client, target string, timeout time.Duration) (Outcome, error) {
	var src api.ByteSource
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		s, err := netsource.Get(ctx, client, target, timeout)
		if err != nil {
			return Outcome{}, fmt.Errorf("fetching: %w", err)
		}
		defer s.Close()
		src = s
	} else {
		f, err := os.Open(target)
		if err != nil {
			return Outcome{}, fmt.Errorf("opening: %w", err)
		}
		defer f.Close()
		src = &fileSource{f: f}
	}

	mu.Lock()
	result, verified, err := vctx.Process(src, grammar.FromTime(time.Now()))
	mu.Unlock()
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Result: result, Target: verified}, nil
}
