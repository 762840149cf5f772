// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"context"
	"os"
	"path"
	"path/filepath"
)

// RetrieveOptions configures a one-shot Retrieve call.
type RetrieveOptions struct {
	// Filename overrides the registry name derived from the URL's
	// basename.
	Filename string

	// CachePath overrides the default per-OS cache directory.
	CachePath string

	// AppName names the subdirectory under the default per-OS cache
	// directory when CachePath is empty. Defaults to "cachefetch".
	AppName string

	Transport Transport
	Processor Processor
	Progress  ProgressFunc

	// Display, if set, receives byte-level updates from the underlying
	// transport (see TransportOptions.Progress).
	Display ProgressDisplay

	Logger Logger
}

// Retrieve is a thin entry point for downloading a single (url, hash) pair
// without maintaining a registry file. It synthesizes a one-entry registry
// and delegates to Fetcher.Fetch.
func Retrieve(ctx context.Context, rawURL string, knownHash string, opts RetrieveOptions) ([]string, error) {
	hashSpec, err := ParseHashSpec(knownHash)
	if err != nil {
		return nil, err
	}

	name := opts.Filename
	if name == "" {
		name = uniqueFileName(rawURL)
	}

	reg := NewRegistry()
	if err := reg.Add(RegistryEntry{Name: name, Hash: hashSpec, URL: rawURL}); err != nil {
		return nil, err
	}

	cachePath := opts.CachePath
	if cachePath == "" {
		appName := opts.AppName
		if appName == "" {
			appName = "cachefetch"
		}
		cachePath, err = defaultCacheDir(appName)
		if err != nil {
			return nil, err
		}
	}

	fetcher := NewFetcher(reg, CacheDescriptor{CacheRoot: cachePath})
	if opts.Logger != nil {
		fetcher.Logger = opts.Logger
	}
	fetcher.Progress = opts.Progress
	fetcher.TransportOptions.Progress = opts.Display

	return fetcher.Fetch(ctx, name, opts.Transport, opts.Processor)
}

// uniqueFileName derives a registry-safe name from url's basename, with a
// short hash-of-URL prefix to avoid collisions between different URLs that
// happen to share a basename.
func uniqueFileName(rawURL string) string {
	base := path.Base(rawURL)
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return hashOfURL(rawURL) + "-" + base
}

// defaultCacheDir returns the per-OS user cache directory under appName,
// e.g. "$HOME/.cache/<appName>" on Linux.
func defaultCacheDir(appName string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", &PathError{Path: appName, Err: err}
	}
	return filepath.Join(base, appName), nil
}
