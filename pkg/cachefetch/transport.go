// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"context"
	"fmt"
	"net/url"
)

// Transport fetches a URL to a destination path, or probes its
// availability. Implementations are strategies, selected by URL scheme;
// callers may supply their own.
//
// Download must stream bytes to a temporary path in the same directory as
// destination (so the rename onto destination is filesystem-local) and
// either complete fully or leave no partial artifact at destination itself;
// the built-in transports rename their temporary file onto destination once
// the transfer completes. Fetcher passes a temporary path of its own as
// destination and itself performs the rename onto the final cache path.
type Transport interface {
	Download(ctx context.Context, rawURL, destination string, opts TransportOptions) error
	IsAvailable(ctx context.Context, rawURL string, opts TransportOptions) (bool, error)
}

// TransportOptions carries the optional collaborators and knobs a
// Transport may use.
type TransportOptions struct {
	// BasicAuth, if Username is non-empty, is sent on HTTP(S) requests.
	BasicAuth struct {
		Username string
		Password string
	}

	// Headers are additional request headers for HTTP(S) requests.
	Headers map[string]string

	// Timeout bounds HTTP(S) connection setup, up to the arrival of the
	// response headers; zero means the transport's default. Body streaming
	// itself is never time-limited by Timeout.
	Timeout int64 // nanoseconds; see time.Duration

	// Credentials supplies (username, password) for FTP/SFTP when the
	// URL itself carries none. Optional.
	Credentials CredentialProvider

	// Progress, if non-nil, receives byte-level updates during Download.
	Progress ProgressDisplay

	// Logger receives advisory messages. For downloads, Fetcher fills it
	// with its own logger when nil; IsAvailable passes it through as set.
	Logger Logger
}

// SelectTransport returns the built-in Transport registered for rawURL's
// scheme. ErrUnsupportedScheme is returned for anything else; callers that
// want to support additional schemes pass their own Transport to Fetch
// instead of relying on selection.
func SelectTransport(rawURL string) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("cachefetch: parsing URL %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return &HTTPTransport{}, nil
	case "ftp":
		return &FTPTransport{}, nil
	case "sftp":
		return &SFTPTransport{}, nil
	case "doi":
		return &DOITransport{}, nil
	default:
		return nil, fmt.Errorf("cachefetch: scheme %q: %w", u.Scheme, ErrUnsupportedScheme)
	}
}
