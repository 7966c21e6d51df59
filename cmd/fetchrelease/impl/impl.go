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

// Package impl locates, among a GitHub release's assets, the one whose
// name matches a verified target's file name, then downloads and
// confirms it against that target's length and sha512 — the steps a
// post-update consumer takes after Process returns api.OKUpdate, to find
// and authenticate the actual image bytes the verified metadata
// described.
package impl

import (
	"context"
	"crypto/sha512"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-github/v39/github"

	"github.com/uptane/uptiny/api"
)

// FindAsset searches releaseTag's assets for one named assetName and
// returns its browser download URL, failing if the release has no asset
// by that name or if its reported size doesn't match target.Length.
func FindAsset(ctx context.Context, client *github.Client, owner, repo, releaseTag, assetName string, target *api.VerifiedTarget) (string, error) {
	release, _, err := client.Repositories.GetReleaseByTag(ctx, owner, repo, releaseTag)
	if err != nil {
		return "", fmt.Errorf("fetchrelease: getting release %s/%s@%s: %w", owner, repo, releaseTag, err)
	}

	for _, asset := range release.Assets {
		if asset.GetName() != assetName {
			continue
		}
		if target != nil && uint32(asset.GetSize()) != target.Length {
			return "", fmt.Errorf("fetchrelease: asset %q is %d bytes, verified target expects %d", assetName, asset.GetSize(), target.Length)
		}
		return asset.GetBrowserDownloadURL(), nil
	}
	return "", fmt.Errorf("fetchrelease: release %s has no asset named %q", releaseTag, assetName)
}

// VerifyAsset downloads the asset at downloadURL and confirms both its
// length and its sha512 digest match target, declaring it installable
// only once both hold. It streams the response body through a hasher
// rather than buffering it whole, the same constant-memory discipline the
// core verifier itself follows.
func VerifyAsset(ctx context.Context, client *http.Client, downloadURL string, target *api.VerifiedTarget) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("fetchrelease: building download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetchrelease: downloading asset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetchrelease: downloading asset: unexpected status %s", resp.Status)
	}

	h := sha512.New()
	n, err := io.Copy(h, resp.Body)
	if err != nil {
		return fmt.Errorf("fetchrelease: reading asset body: %w", err)
	}
	if uint32(n) != target.Length {
		return fmt.Errorf("fetchrelease: downloaded %d bytes, verified target expects %d", n, target.Length)
	}
	var got [api.SHA512Len]byte
	copy(got[:], h.Sum(nil))
	if got != target.SHA512 {
		return fmt.Errorf("fetchrelease: downloaded asset's sha512 does not match the verified target")
	}
	return nil
}
