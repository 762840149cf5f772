// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package cachefetch is a client-side data-file cache and fetcher.
//
// Given a declarative registry of logical file names mapped to content
// hashes and optional URLs, a Fetcher guarantees that consumers receive
// the absolute local filesystem path to a verified, up-to-date copy of any
// requested file, materializing it from the network only when necessary.
//
// A typical use:
//
//	reg, err := cachefetch.LoadRegistry(strings.NewReader(registryText), "registry.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fetcher := cachefetch.NewFetcher(reg, cachefetch.CacheDescriptor{
//	    CacheRoot:  "~/.cache/myapp",
//	    BaseURL:    "https://example.org/data/{version}/",
//	    Version:    "1.2.0",
//	    RetryCount: 3,
//	})
//
//	paths, err := fetcher.Fetch(context.Background(), "tiny-data.txt", nil, nil)
//
// For ad hoc single-file downloads without maintaining a registry, use
// Retrieve instead.
package cachefetch
