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

package grammar

import "errors"

// ErrGrammar is the sentinel every grammar-level failure wraps. A caller
// that sees errors.Is(err, ErrGrammar) should surface api.JSONError,
// regardless of which underlying byte-source error (if any) caused it.
var ErrGrammar = errors.New("grammar mismatch")
