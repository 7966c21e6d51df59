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

package verifycrypto

import (
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
)

// ErrUnsupportedAlgorithm is returned by NewContext for any key algorithm
// this package does not implement.
var ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")

// parseRSAPublicKey accepts a DER-encoded PKIX public key, the form
// keystore produces for RSA entries.
func parseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing RSA public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key material is %T, not an RSA public key", pub)
	}
	return rsaPub, nil
}
