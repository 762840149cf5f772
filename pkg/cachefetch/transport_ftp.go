// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jlaffaye/ftp"
)

// defaultFTPPort is used when the URL carries no explicit port.
const defaultFTPPort = "21"

// defaultFTPDialTimeout bounds control-connection setup.
const defaultFTPDialTimeout = 30 * time.Second

// FTPTransport fetches ftp:// URLs over a passive-mode data connection.
// Credentials come from the URL's userinfo, or from
// TransportOptions.Credentials, or default to anonymous.
type FTPTransport struct{}

func (t *FTPTransport) connect(ctx context.Context, rawURL string, opts TransportOptions) (*ftp.ServerConn, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("cachefetch: parsing FTP URL %q: %w", rawURL, err)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = defaultFTPPort
	}

	user, pass := "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	} else if opts.Credentials != nil {
		if cu, cp, ok := opts.Credentials(rawURL); ok {
			user, pass = cu, cp
		}
	}

	conn, err := ftp.Dial(host+":"+port, ftp.DialWithContext(ctx), ftp.DialWithTimeout(defaultFTPDialTimeout))
	if err != nil {
		return nil, "", &DownloadError{URL: rawURL, Err: err}
	}
	if err := conn.Login(user, pass); err != nil {
		conn.Quit()
		return nil, "", &DownloadError{URL: rawURL, Err: err}
	}
	return conn, u.Path, nil
}

// Download retrieves the FTP path into a unique temporary file beside
// destination, then renames it into place.
func (t *FTPTransport) Download(ctx context.Context, rawURL, destination string, opts TransportOptions) error {
	conn, remotePath, err := t.connect(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	defer conn.Quit()

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	defer resp.Close()

	tmp := destination + ".tmp-" + uuid.NewString()
	out, err := os.Create(tmp)
	if err != nil {
		return &PathError{Path: tmp, Err: err}
	}

	var reader io.Reader = resp
	if opts.Progress != nil {
		reader = &progressCountingReader{r: resp, progress: opts.Progress}
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

// IsAvailable lists the parent directory and reports whether the target
// basename appears in it.
func (t *FTPTransport) IsAvailable(ctx context.Context, rawURL string, opts TransportOptions) (bool, error) {
	conn, remotePath, err := t.connect(ctx, rawURL, opts)
	if err != nil {
		return false, nil
	}
	defer conn.Quit()

	dir := path.Dir(remotePath)
	base := path.Base(remotePath)

	entries, err := conn.List(dir)
	if err != nil {
		return false, nil
	}
	for _, e := range entries {
		if strings.TrimSpace(e.Name) == base {
			return true, nil
		}
	}
	return false, nil
}
