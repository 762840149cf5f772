// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// maxRetryDelay caps the linear backoff between download attempts.
const maxRetryDelay = 10 * time.Second

// Fetcher orchestrates the registry, cache-path resolution, transport
// selection, verification, and post-processing steps described by the
// fetch state machine. The zero value is not usable; construct one with
// NewFetcher.
type Fetcher struct {
	Registry *Registry
	Cache    CacheDescriptor

	// Logger receives advisory messages. Defaults to NopLogger.
	Logger Logger

	// Progress, if non-nil, receives Events at each state transition.
	Progress ProgressFunc

	// TransportOptions is passed to every Transport invocation.
	TransportOptions TransportOptions
}

// NewFetcher constructs a Fetcher over reg and desc.
func NewFetcher(reg *Registry, desc CacheDescriptor) *Fetcher {
	return &Fetcher{Registry: reg, Cache: desc, Logger: NopLogger}
}

func (f *Fetcher) logger() Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return NopLogger
}

func (f *Fetcher) emit(ev Event) {
	if f.Progress != nil {
		if ev.Time.IsZero() {
			ev.Time = time.Now().UTC()
		}
		f.Progress(ev)
	}
}

// localPath resolves name to its absolute path under the Fetcher's cache
// root, creating intermediate directories as needed. This is the
// filesystem half of step 1 of Fetch; GetURL and IsAvailable do not call
// it, so they never touch the filesystem.
func (f *Fetcher) localPath(name string) (string, error) {
	root, err := f.Cache.Resolve()
	if err != nil {
		return "", err
	}
	if err := ensureDir(root); err != nil {
		return "", err
	}

	local := filepath.Join(root, filepath.FromSlash(name))
	if err := ensureDir(filepath.Dir(local)); err != nil {
		return "", err
	}
	return local, nil
}

// GetURL resolves name's effective remote URL without downloading
// anything.
func (f *Fetcher) GetURL(name string) (string, error) {
	if !f.Registry.Contains(name) {
		return "", &DownloadError{URL: name, Err: ErrUnknownFile}
	}
	return FullURL(f.Registry, name, f.Cache)
}

// IsAvailable resolves name's URL and delegates to transport's
// availability probe, or the scheme-selected default transport when
// transport is nil.
func (f *Fetcher) IsAvailable(ctx context.Context, name string, transport Transport) (bool, error) {
	url, err := f.GetURL(name)
	if err != nil {
		return false, err
	}
	if transport == nil {
		transport, err = SelectTransport(url)
		if err != nil {
			return false, err
		}
	}
	return transport.IsAvailable(ctx, url, f.TransportOptions)
}

// classify implements step 2 of the state machine: decide what action this
// fetch represents, given the current state of the local file.
func (f *Fetcher) classify(local string, expected HashSpec) (Action, error) {
	if _, err := os.Stat(local); err != nil {
		return Downloaded, nil
	}

	matches, err := HashesMatch(expected, local)
	if err != nil {
		return Downloaded, err
	}
	if matches {
		return Fetched, nil
	}

	if !f.Cache.AllowUpdates {
		actual, _ := HashFile(local, resolveAlgorithm(expected))
		return 0, &HashMismatchLocalError{Path: local, Expected: expected.String(), Actual: actual}
	}
	return Updated, nil
}

func resolveAlgorithm(h HashSpec) string {
	if h.Unknown {
		return DefaultAlgorithm
	}
	return h.Algorithm
}

// Fetch executes the full state machine for name: resolve, classify,
// download with retry, verify, publish, and (if processor is non-nil)
// post-process. transport and processor, when nil, are resolved by
// scheme and skipped respectively.
func (f *Fetcher) Fetch(ctx context.Context, name string, transport Transport, processor Processor) ([]string, error) {
	entry, ok := f.Registry.Get(name)
	if !ok {
		return nil, &DownloadError{URL: name, Err: ErrUnknownFile}
	}

	url, err := FullURL(f.Registry, name, f.Cache)
	if err != nil {
		return nil, err
	}

	local, err := f.localPath(name)
	if err != nil {
		return nil, err
	}

	f.emit(Event{Kind: "resolve", Name: name, URL: url})

	action, err := f.classify(local, entry.Hash)
	if err != nil {
		return nil, err
	}

	if action != Fetched {
		if err := f.downloadWithRetry(ctx, name, url, local, entry.Hash, transport); err != nil {
			return nil, err
		}
		f.emit(Event{Kind: "publish", Name: name})
	}

	if processor == nil {
		f.emit(Event{Kind: "done", Name: name})
		return []string{local}, nil
	}

	f.emit(Event{Kind: "process", Name: name})
	paths, err := processor.Process(ctx, local, action, f)
	if err != nil {
		return nil, err
	}

	f.emit(Event{Kind: "done", Name: name})
	return paths, nil
}

// downloadWithRetry implements steps 3 and 4: select a transport, stream
// to a temporary path, verify, and retry on transport or integrity
// failures with a linear 1s,2s,...,10s-capped backoff. Filesystem errors,
// unsupported schemes, and registry lookup failures are not retried.
func (f *Fetcher) downloadWithRetry(ctx context.Context, name, url, local string, expected HashSpec, transport Transport) error {
	if transport == nil {
		var err error
		transport, err = SelectTransport(url)
		if err != nil {
			return err
		}
	}

	opts := f.TransportOptions
	if opts.Logger == nil {
		opts.Logger = f.logger()
	}

	var lastErr error
	for attempt := 0; attempt <= f.Cache.RetryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		f.emit(Event{Kind: "download_start", Name: name, URL: url, Attempt: attempt + 1})

		tmp := local + ".tmp-" + uuid.NewString()
		err := transport.Download(ctx, url, tmp, opts)
		if err == nil {
			f.emit(Event{Kind: "verify", Name: name})
			matches, verr := HashesMatch(expected, tmp)
			if verr == nil && matches {
				if rerr := os.Rename(tmp, local); rerr != nil {
					os.Remove(tmp)
					return &PathError{Path: local, Err: rerr}
				}
				return nil
			}
			actual, _ := HashFile(tmp, resolveAlgorithm(expected))
			os.Remove(tmp)
			lastErr = &HashMismatchError{Name: name, Expected: expected.String(), Actual: actual, TempPath: tmp}
		} else {
			os.Remove(tmp)
			var pathErr *PathError
			if errors.As(err, &pathErr) {
				f.emit(Event{Kind: "error", Name: name, Message: err.Error()})
				return err
			}
			lastErr = err
		}

		if attempt < f.Cache.RetryCount {
			delay := time.Duration(attempt+1) * time.Second
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			f.emit(Event{Kind: "retry", Name: name, Attempt: attempt + 1, Message: lastErr.Error()})
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
		}
	}

	f.emit(Event{Kind: "error", Name: name, Message: lastErr.Error()})
	return lastErr
}

// sleepCtx waits for d or returns false if ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
