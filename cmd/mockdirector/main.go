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

// mockdirector serves fixture Director Targets documents over HTTP,
// letting verifytargets (or any other client) exercise the netsource
// fetch path against a real, if fake, director.
package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/uptane/uptiny/cmd/mockdirector/impl"
	"github.com/uptane/uptiny/internal/fixture"
)

var (
	addr = flag.String("addr", ":8088", "address to listen on")
)

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// The key id a client must trust is derived from the generated public
	// key itself (see internal/fixture.NewSigner), not chosen here.
	signer, err := fixture.NewSigner("mock-director-key")
	if err != nil {
		log.Fatal().Err(err).Msg("generating signer")
	}
	log.Info().Str("key_id", signer.KeyID).Msg("generated director signing key; add its public half to client keystores")

	srv := impl.New(log, signer)
	log.Info().Str("addr", *addr).Msg("listening")
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
