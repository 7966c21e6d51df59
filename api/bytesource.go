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

package api

// ByteSource is the collaborator the verifier core reads a document
// through. Implementations might be backed by a network socket, a local
// file, or raw flash — the core treats all of them as opaque, including
// whatever blocking or deadline behaviour they choose to apply.
//
// Read must fill buf completely or return a non-nil error; there is no
// partial-read contract. Peek must return the next unconsumed byte without
// advancing the source; a byte returned by Peek is not "consumed" until a
// subsequent Read actually moves past it.
type ByteSource interface {
	Read(buf []byte) error
	Peek() (byte, error)
}
