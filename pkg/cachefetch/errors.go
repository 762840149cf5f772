// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the library. Use errors.Is to test for them.
var (
	// ErrUnknownFile is returned when a requested name is not in the registry.
	ErrUnknownFile = errors.New("cachefetch: unknown file")

	// ErrUnsupportedScheme is returned when a URL's scheme has no transport.
	ErrUnsupportedScheme = errors.New("cachefetch: unsupported URL scheme")

	// ErrDOIUnsupported is returned when a DOI resolves to a repository the
	// DOI transport does not recognize, or to a non-dataset object.
	ErrDOIUnsupported = errors.New("cachefetch: unsupported DOI repository")

	// ErrPathTraversal is returned when an archive member would extract
	// outside its extract_dir.
	ErrPathTraversal = errors.New("cachefetch: archive member escapes extract directory")
)

// MalformedRegistryError is returned when a registry text stream has a
// syntactically invalid line.
type MalformedRegistryError struct {
	Source string // displayable name of the registry's source (file path, "<string>", ...)
	Line   int    // 1-based line number
	Text   string // offending line content
	Reason string
}

func (e *MalformedRegistryError) Error() string {
	return fmt.Sprintf("cachefetch: malformed registry %s:%d: %s (line: %q)", e.Source, e.Line, e.Reason, e.Text)
}

// DownloadError wraps a transport-level failure (network error, HTTP
// non-success, FTP/SFTP protocol error, DOI resolution failure).
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("cachefetch: download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// HashMismatchError is returned when a computed digest does not match the
// registry's expectation after a download attempt and retries are exhausted.
type HashMismatchError struct {
	Name     string
	Expected string
	Actual   string
	TempPath string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("cachefetch: hash mismatch for %s: expected %s, got %s (temp file: %s)",
		e.Name, e.Expected, e.Actual, e.TempPath)
}

// HashMismatchLocalError is returned when an existing local file's digest
// does not match expectation and AllowUpdates is false.
type HashMismatchLocalError struct {
	Name     string
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchLocalError) Error() string {
	return fmt.Sprintf("cachefetch: local file %s (%s) does not match registry: expected %s, got %s",
		e.Name, e.Path, e.Expected, e.Actual)
}

// ProcessorFailureError is returned when a post-processor could not
// complete. The original file path is always preserved.
type ProcessorFailureError struct {
	Path string
	Err  error
}

func (e *ProcessorFailureError) Error() string {
	return fmt.Sprintf("cachefetch: processor failed on %s: %v", e.Path, e.Err)
}

func (e *ProcessorFailureError) Unwrap() error {
	return e.Err
}

// PathError is returned when a cache path is not writable, not creatable,
// or a component conflicts with an existing file.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cachefetch: path %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}
