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

// verifytargets verifies one or more Director Targets documents against a
// trusted keystore, optionally fetching them over HTTP, and prints each
// one's Result. With more than one document it verifies them concurrently
// against a pooled allocator shared under a mutex, exercising the pooled
// allocator's external-mutual-exclusion contract.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/uptane/uptiny/cmd/verifytargets/impl"
	"github.com/uptane/uptiny/verify"
)

var (
	keystorePath     = flag.String("keystore", "", "path to an authorized_keys file listing trusted director keys")
	threshold        = flag.Int("threshold", 1, "minimum number of valid signatures required")
	ecuID            = flag.String("ecu_id", "", "ECU identifier to evaluate target assignments against")
	hardwareID       = flag.String("hardware_id", "", "hardware identifier to evaluate target assignments against")
	lastKnownVersion = flag.Uint("last_known_version", 0, "this ECU's last-accepted Targets document version")
	poolSize         = flag.Int("pool_size", 8, "pooled allocator capacity shared by every document verified in this run")
)

func main() {
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		glog.Exitf("verifytargets: %v", err)
	}
}

func run(urlsOrPaths []string) error {
	if *keystorePath == "" {
		return fmt.Errorf("-keystore is required")
	}
	if *ecuID == "" {
		return fmt.Errorf("-ecu_id is required")
	}
	if len(urlsOrPaths) == 0 {
		return fmt.Errorf("at least one document URL or path is required")
	}

	cfg, err := impl.LoadConfig(*keystorePath, *threshold, *ecuID, *hardwareID, uint32(*lastKnownVersion))
	if err != nil {
		return err
	}

	// A single pooled Context is shared across every worker below; its
	// pipeline pool has room for poolSize in-flight verifications, and mu
	// serializes the workers' calls to Process against it, per
	// spec.md §5's pooled-mode mutual-exclusion requirement.
	vctx, err := verify.NewPooledContext(cfg, *poolSize)
	if err != nil {
		return err
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(context.Background())
	results := make([]impl.Outcome, len(urlsOrPaths))
	for i, target := range urlsOrPaths {
		i, target := i, target
		g.Go(func() error {
			outcome, err := impl.VerifyOne(ctx, vctx, &mu, http.DefaultClient, target, 10*time.Second)
			if err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			results[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if m, ok := vctx.PoolMetrics(); ok {
		glog.V(1).Infof("pipeline pool: %d/%d busy, high water %d, %d allocs (%d failed)", m.CurrentBusy, m.Capacity, m.HighWaterMark, m.TotalAllocs, m.FailedAllocs)
	}

	for i, target := range urlsOrPaths {
		fmt.Printf("%s: %s\n", target, results[i].Result)
		if results[i].Target != nil {
			fmt.Printf("  version=%d length=%d sha512=%x\n", results[i].Target.Version, results[i].Target.Length, results[i].Target.SHA512)
		}
	}

	glog.Flush()
	exit := 0
	for _, o := range results {
		if !o.Result.Succeeded() {
			exit = 1
		}
	}
	os.Exit(exit)
	return nil
}
