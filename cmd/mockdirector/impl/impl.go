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

// Package impl serves fixture Director Targets documents over HTTP, for
// exercising verifytargets (or any other client) against a network
// source without standing up a real director.
package impl

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/uptane/uptiny/internal/fixture"
)

// Server holds the mutable set of targets documents this director serves,
// one per ECU id, along with the signer it uses to sign new documents.
type Server struct {
	log    zerolog.Logger
	signer fixture.Signer

	mu       sync.RWMutex
	docs     map[string]string // ecuID -> rendered document
	versions map[string]uint32
}

// New builds a Server signing every document it serves with signer.
func New(log zerolog.Logger, signer fixture.Signer) *Server {
	return &Server{
		log:      log,
		signer:   signer,
		docs:     make(map[string]string),
		versions: make(map[string]uint32),
	}
}

// Router returns the mux.Router serving this director's endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/targets/{ecuID}", s.handleTargets).Methods(http.MethodGet)
	r.HandleFunc("/assign/{ecuID}", s.handleAssign).Methods(http.MethodPost)
	return r
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	ecuID := mux.Vars(r)["ecuID"]
	s.mu.RLock()
	doc, ok := s.docs[ecuID]
	s.mu.RUnlock()
	if !ok {
		s.log.Warn().Str("ecu_id", ecuID).Msg("no targets document assigned")
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
	s.log.Info().Str("ecu_id", ecuID).Int("bytes", len(doc)).Msg("served targets document")
}

// assignRequest describes a new image to assign to an ECU.
type assignRequest struct {
	HardwareID string `json:"hardware_id"`
	SHA512     string `json:"sha512"`
	Length     uint32 `json:"length"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	ecuID := mux.Vars(r)["ecuID"]
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.versions[ecuID]++
	version := s.versions[ecuID]
	doc := fixture.Document{
		Expires: time.Now().Add(24 * time.Hour).UTC().Format("2006-01-02T15:04:05Z"),
		Version: version,
		Targets: []fixture.Target{
			{Path: "firmware.bin", ECUID: ecuID, HardwareID: req.HardwareID, ReleaseCounter: version, SHA512: req.SHA512, Length: req.Length},
		},
	}.Build(s.signer)
	s.docs[ecuID] = doc
	s.mu.Unlock()

	s.log.Info().Str("ecu_id", ecuID).Uint32("version", version).Msg("assigned new target")
	w.WriteHeader(http.StatusCreated)
}
