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

package verify

import (
	"fmt"

	"github.com/uptane/uptiny/api"
)

// Error adapts a non-success Result into the error interface, for callers
// that want a single idiomatic failure path instead of switching on a
// Result themselves.
type Error struct {
	Result api.Result
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Result, e.Cause)
	}
	return e.Result.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AsError returns nil if result.Succeeded(), otherwise an *Error wrapping
// result and cause (which may itself be nil).
func AsError(result api.Result, cause error) error {
	if result.Succeeded() {
		return nil
	}
	return &Error{Result: result, Cause: cause}
}
