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

// Package netsource adapts an HTTP response body into an api.ByteSource,
// so a Director Targets document can be verified as it streams off the
// wire instead of being buffered into memory first. Establishing the
// connection is retried with backoff; once the body starts streaming, a
// read failure partway through is not retried — the walker has almost
// certainly already fed partial bytes into live signature contexts, and
// restarting the request from byte zero without resetting those contexts
// would corrupt them.
package netsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Source is an api.ByteSource backed by an HTTP response body.
type Source struct {
	body io.ReadCloser

	peeked   bool
	peekByte byte
	peekErr  error
}

// Get issues an HTTP GET for url, retrying the request itself (not the
// body read) with exponential backoff up to maxElapsed, and returns a
// Source over the successful response's body. The caller must Close the
// Source when done with it.
func Get(ctx context.Context, client *http.Client, url string, maxElapsed time.Duration) (*Source, error) {
	var resp *http.Response

	eb := backoff.NewExponentialBackOff()
	if maxElapsed > 0 {
		eb.MaxElapsedTime = maxElapsed
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, 5), ctx)

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err) // malformed URL, retrying can't help
		}
		r, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("GET %s: %w", url, err)
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("GET %s: server error %d", url, r.StatusCode)
		}
		if r.StatusCode != http.StatusOK {
			r.Body.Close()
			return backoff.Permanent(fmt.Errorf("GET %s: unexpected status %d", url, r.StatusCode))
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return &Source{body: resp.Body}, nil
}

// Close releases the underlying response body.
func (s *Source) Close() error {
	return s.body.Close()
}

// Read fills buf completely or returns a non-nil error, satisfying
// api.ByteSource.
func (s *Source) Read(buf []byte) error {
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
		m, err := s.body.Read(buf[n:])
		n += m
		if err != nil {
			if err == io.EOF && n == len(buf) {
				break
			}
			return fmt.Errorf("netsource: read: %w", err)
		}
	}
	return nil
}

// Peek returns the next unconsumed byte without advancing past it.
func (s *Source) Peek() (byte, error) {
	if s.peeked {
		return s.peekByte, s.peekErr
	}
	var b [1]byte
	_, err := io.ReadFull(s.body, b[:])
	s.peeked = true
	s.peekByte = b[0]
	if err != nil {
		s.peekErr = fmt.Errorf("netsource: peek: %w", err)
	} else {
		s.peekErr = nil
	}
	return s.peekByte, s.peekErr
}
