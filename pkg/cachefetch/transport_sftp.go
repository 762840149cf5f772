// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// defaultSFTPPort is used when the URL carries no explicit port.
const defaultSFTPPort = "22"

// defaultSFTPDialTimeout bounds SSH handshake setup.
const defaultSFTPDialTimeout = 30 * time.Second

// SFTPTransport fetches sftp:// URLs over an authenticated SSH session.
// Credentials come from the URL's userinfo, or from
// TransportOptions.Credentials. There is no anonymous SFTP mode: a
// transport with no credentials available fails.
type SFTPTransport struct {
	// HostKeyCallback overrides the default (ssh.InsecureIgnoreHostKey),
	// which callers handling untrusted networks should replace.
	HostKeyCallback ssh.HostKeyCallback
}

func (t *SFTPTransport) connect(ctx context.Context, rawURL string, opts TransportOptions) (*sftp.Client, *ssh.Client, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, "", fmt.Errorf("cachefetch: parsing SFTP URL %q: %w", rawURL, err)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = defaultSFTPPort
	}

	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	if pass == "" && opts.Credentials != nil {
		if cu, cp, ok := opts.Credentials(rawURL); ok {
			user, pass = cu, cp
		}
	}
	if user == "" {
		return nil, nil, "", &DownloadError{URL: rawURL, Err: fmt.Errorf("no SFTP credentials available")}
	}

	hostKeyCallback := t.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(pass)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         defaultSFTPDialTimeout,
	}

	sshConn, err := ssh.Dial("tcp", host+":"+port, cfg)
	if err != nil {
		return nil, nil, "", &DownloadError{URL: rawURL, Err: err}
	}

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, nil, "", &DownloadError{URL: rawURL, Err: err}
	}
	return client, sshConn, u.Path, nil
}

// Download streams the remote path into a unique temporary file beside
// destination, then renames it into place.
func (t *SFTPTransport) Download(ctx context.Context, rawURL, destination string, opts TransportOptions) error {
	client, sshConn, remotePath, err := t.connect(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	defer client.Close()
	defer sshConn.Close()

	remote, err := client.Open(remotePath)
	if err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	defer remote.Close()

	tmp := destination + ".tmp-" + uuid.NewString()
	out, err := os.Create(tmp)
	if err != nil {
		return &PathError{Path: tmp, Err: err}
	}

	var reader io.Reader = remote
	if opts.Progress != nil {
		if info, statErr := remote.Stat(); statErr == nil {
			opts.Progress.SetTotal(info.Size())
		}
		reader = &progressCountingReader{r: remote, progress: opts.Progress}
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

// IsAvailable stats the remote path.
func (t *SFTPTransport) IsAvailable(ctx context.Context, rawURL string, opts TransportOptions) (bool, error) {
	client, sshConn, remotePath, err := t.connect(ctx, rawURL, opts)
	if err != nil {
		return false, nil
	}
	defer client.Close()
	defer sshConn.Close()

	_, err = client.Stat(remotePath)
	return err == nil, nil
}
