// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// defaultHTTPConnectTimeout is used when TransportOptions.Timeout is zero.
// Body streaming itself is never time-limited.
const defaultHTTPConnectTimeout = 30 * time.Second

// HTTPTransport downloads http(s) URLs with net/http, following redirects
// by default.
type HTTPTransport struct {
	// Client, if set, is reused instead of constructing a default one.
	Client *http.Client
}

func (t *HTTPTransport) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          64,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Download streams rawURL's body into a unique temporary file in
// destination's directory, then renames it over destination.
func (t *HTTPTransport) Download(ctx context.Context, rawURL, destination string, opts TransportOptions) error {
	timeout := defaultHTTPConnectTimeout
	if opts.Timeout > 0 {
		timeout = time.Duration(opts.Timeout)
	}
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	connectTimer := time.AfterFunc(timeout, cancel)

	// The connect timer above only bounds the wait for response headers;
	// once they arrive it is stopped and streaming continues on ctx.
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	if opts.BasicAuth.Username != "" {
		req.SetBasicAuth(opts.BasicAuth.Username, opts.BasicAuth.Password)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client().Do(req)
	connectTimer.Stop()
	if err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DownloadError{URL: rawURL, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	tmp := destination + ".tmp-" + uuid.NewString()
	out, err := os.Create(tmp)
	if err != nil {
		return &PathError{Path: tmp, Err: err}
	}

	var reader io.Reader = resp.Body
	if opts.Progress != nil {
		opts.Progress.SetTotal(resp.ContentLength)
		reader = &progressCountingReader{r: resp.Body, progress: opts.Progress}
	}

	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		os.Remove(tmp)
		return &DownloadError{URL: rawURL, Err: err}
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return &DownloadError{URL: rawURL, Err: err}
	}

	if err := os.Rename(tmp, destination); err != nil {
		os.Remove(tmp)
		return &PathError{Path: destination, Err: err}
	}
	return nil
}

// IsAvailable issues a HEAD request and reports true only on a success
// status code, without transferring the body.
func (t *HTTPTransport) IsAvailable(ctx context.Context, rawURL string, opts TransportOptions) (bool, error) {
	timeout := defaultHTTPConnectTimeout
	if opts.Timeout > 0 {
		timeout = time.Duration(opts.Timeout)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false, err
	}
	if opts.BasicAuth.Username != "" {
		req.SetBasicAuth(opts.BasicAuth.Username, opts.BasicAuth.Password)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client().Do(req)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// progressCountingReader wraps an io.Reader and reports bytes read to a
// ProgressDisplay.
type progressCountingReader struct {
	r        io.Reader
	progress ProgressDisplay
	done     int64
}

func (p *progressCountingReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.progress.Update(p.done)
	}
	return n, err
}
