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

// fetchrelease is a reference post-update consumer: given a verified
// target's metadata, it locates the matching asset on a GitHub release,
// downloads it, and confirms its length and sha512 before declaring it
// installable. It never installs the image itself — that step is
// deliberately left to the caller's own update mechanism.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"

	"github.com/uptane/uptiny/api"
	"github.com/uptane/uptiny/cmd/fetchrelease/impl"
)

var (
	owner      = flag.String("owner", "", "GitHub repository owner")
	repo       = flag.String("repo", "", "GitHub repository name")
	releaseTag = flag.String("release_tag", "", "release tag to search for the asset")
	assetName  = flag.String("asset_name", "", "asset file name to locate")
	wantLength = flag.Uint("length", 0, "expected asset size in bytes, from the verified target; 0 skips the length and hash checks")
	wantSHA512 = flag.String("sha512", "", "expected hex-encoded sha512 digest, from the verified target; required alongside -length to download and verify the asset")
)

func main() {
	flag.Parse()
	if *owner == "" || *repo == "" || *releaseTag == "" || *assetName == "" {
		fmt.Fprintln(os.Stderr, "usage: fetchrelease -owner=... -repo=... -release_tag=... -asset_name=...")
		os.Exit(2)
	}

	ctx := context.Background()
	var httpClient = http.DefaultClient
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	client := github.NewClient(httpClient)

	var target *api.VerifiedTarget
	if *wantLength > 0 {
		target = &api.VerifiedTarget{Length: uint32(*wantLength)}
		if *wantSHA512 != "" {
			digest, err := hex.DecodeString(*wantSHA512)
			if err != nil || len(digest) != api.SHA512Len {
				fmt.Fprintln(os.Stderr, "fetchrelease: -sha512 must be a 128-character hex string")
				os.Exit(2)
			}
			copy(target.SHA512[:], digest)
		}
	}

	url, err := impl.FindAsset(ctx, client, *owner, *repo, *releaseTag, *assetName, target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if target != nil && *wantSHA512 != "" {
		if err := impl.VerifyAsset(ctx, httpClient, url, target); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("%s: installable\n", url)
		return
	}
	fmt.Println(url)
}
