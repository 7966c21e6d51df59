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

package netsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetAndReadRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	src, err := Get(context.Background(), srv.Client(), srv.URL, time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer src.Close()

	b, err := src.Peek()
	if err != nil || b != 'h' {
		t.Fatalf("Peek = %c, %v, want 'h', nil", b, err)
	}

	buf := make([]byte, 11)
	if err := src.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "hello world" {
		t.Errorf("Read = %q, want %q", buf, "hello world")
	}
}

func TestGetFailsOnPermanentClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Get(context.Background(), srv.Client(), srv.URL, time.Second); err == nil {
		t.Error("Get against 404: want error, got nil")
	}
}
