// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"os"
	"path/filepath"
	"strings"
)

// CacheDescriptor describes where fetched files live and how that location
// is derived. Constructing one never touches the filesystem; Resolve does
// the derivation lazily, at fetch time.
//
// Example:
//
//	desc := cachefetch.CacheDescriptor{
//	    CacheRoot:    "~/.cache/myapp",
//	    BaseURL:      "https://example.org/data/{version}/",
//	    Version:      "1.2.0+dirty",
//	    DevLabel:     "main",
//	    EnvOverride:  "MYAPP_DATA_DIR",
//	    RetryCount:   3,
//	    AllowUpdates: true,
//	}
type CacheDescriptor struct {
	// CacheRoot is the default cache directory, used unless EnvOverride
	// names a set, non-empty environment variable.
	CacheRoot string

	// BaseURL is the base remote location; may contain a "{version}"
	// placeholder substituted per the dev-suffix rule.
	BaseURL string

	// Version is the nominal version string. A version containing '+' is
	// a "development version" — see IsDevVersion.
	Version string

	// DevLabel replaces Version in paths and URLs when Version is a
	// development version.
	DevLabel string

	// EnvOverride names an environment variable whose value, if set and
	// non-empty, replaces CacheRoot.
	EnvOverride string

	// RetryCount is how many additional attempts Fetch makes after the
	// first, on retryable failures.
	RetryCount int

	// AllowUpdates controls whether a locally-present file with a
	// mismatched hash is re-downloaded (true) or rejected immediately
	// with HashMismatchLocalError (false).
	AllowUpdates bool
}

// IsDevVersion reports whether v is a development version, defined as
// containing a '+' character.
func IsDevVersion(v string) bool {
	return strings.Contains(v, "+")
}

// effectiveVersion returns DevLabel when Version is a development version,
// else Version itself.
func (d CacheDescriptor) effectiveVersion() string {
	if IsDevVersion(d.Version) {
		return d.DevLabel
	}
	return d.Version
}

// Resolve computes the absolute cache root directory. It never creates the
// directory — lazy creation happens in the fetch state machine, immediately
// before first use, so that building a CacheDescriptor at program startup
// has no import-time side effects.
func (d CacheDescriptor) Resolve() (string, error) {
	root := d.CacheRoot
	if d.EnvOverride != "" {
		if v := os.Getenv(d.EnvOverride); v != "" {
			root = v
		}
	}

	root = expandHome(root)

	if d.Version != "" {
		root = filepath.Join(root, d.effectiveVersion())
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &PathError{Path: root, Err: err}
	}
	return abs, nil
}

// expandHome expands a leading "~" to the current user's home directory.
func expandHome(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// ensureDir creates dir if it doesn't already exist, tolerating concurrent
// creation by a sibling process or goroutine.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return nil
		}
		return &PathError{Path: dir, Err: err}
	}
	return nil
}
