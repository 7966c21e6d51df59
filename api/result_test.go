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

package api_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/uptane/uptiny/api"
)

func TestResultString(t *testing.T) {
	for _, test := range []struct {
		r    api.Result
		want string
	}{
		{api.OKUpdate, "OK_UPDATE"},
		{api.OKNoUpdate, "OK_NO_UPDATE"},
		{api.OKNoImage, "OK_NO_IMAGE"},
		{api.JSONError, "JSON_ERROR"},
		{api.WrongType, "WRONG_TYPE"},
		{api.Expired, "EXPIRED"},
		{api.Downgrade, "DOWNGRADE"},
		{api.SigFail, "SIG_FAIL"},
		{api.ECUDuplicate, "ECU_DUPLICATE"},
		{api.NoHash, "NO_HASH"},
		{api.NoMemory, "NO_MEMORY"},
		{api.Result(999), "UNKNOWN_RESULT"},
	} {
		if got := test.r.String(); got != test.want {
			t.Errorf("Result(%d).String() = %q, want %q", test.r, got, test.want)
		}
	}
}

func TestResultSucceededAndClass(t *testing.T) {
	for _, test := range []struct {
		r         api.Result
		succeeded bool
		class     api.ErrorClass
	}{
		{api.OKUpdate, true, api.ClassSuccess},
		{api.OKNoUpdate, true, api.ClassSuccess},
		{api.OKNoImage, true, api.ClassSuccess},
		{api.JSONError, false, api.ClassStructural},
		{api.WrongType, false, api.ClassSemantic},
		{api.Expired, false, api.ClassSemantic},
		{api.Downgrade, false, api.ClassSemantic},
		{api.ECUDuplicate, false, api.ClassSemantic},
		{api.NoHash, false, api.ClassSemantic},
		{api.SigFail, false, api.ClassTrust},
		{api.NoMemory, false, api.ClassResource},
	} {
		if got := test.r.Succeeded(); got != test.succeeded {
			t.Errorf("%v.Succeeded() = %v, want %v", test.r, got, test.succeeded)
		}
		if diff := cmp.Diff(test.class, test.r.Class()); diff != "" {
			t.Errorf("%v.Class() diff (-want +got):\n%s", test.r, diff)
		}
	}
}
