// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// doiRepository resolves a download URL for one file inside a DOI-named
// archive. A nil error with an empty URL means "this DOI does not belong
// to my repository, try the next one."
type doiRepository interface {
	resolve(ctx context.Context, client *http.Client, doi, landingURL, filename string) (string, error)
}

// DOITransport resolves doi:<DOI>/<filename> URLs against figshare,
// Zenodo, or Dataverse, then delegates the actual transfer to
// HTTPTransport. Repositories are probed in sequence; the first to
// recognize the DOI's landing host serves the request.
type DOITransport struct {
	// HTTP is the underlying transport used once a download URL is
	// resolved. Defaults to &HTTPTransport{} when nil.
	HTTP *HTTPTransport

	// Client is used for DOI resolution and repository API calls.
	Client *http.Client

	// repositories overrides the default probe order; used by tests.
	repositories []doiRepository
}

func (t *DOITransport) httpTransport() *HTTPTransport {
	if t.HTTP != nil {
		return t.HTTP
	}
	return &HTTPTransport{Client: t.Client}
}

func (t *DOITransport) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return &http.Client{}
}

func (t *DOITransport) repos() []doiRepository {
	if t.repositories != nil {
		return t.repositories
	}
	return []doiRepository{&zenodoRepository{}, &figshareRepository{}, &dataverseRepository{}}
}

// parseDOIURL splits "doi:<DOI>/<filename>" into its DOI and filename
// parts. A DOI always contains a '/' between its prefix and suffix, so a
// URL whose part before the last '/' has none lacks a filename.
func parseDOIURL(rawURL string) (doi, filename string, err error) {
	rest := strings.TrimPrefix(rawURL, "doi:")
	if rest == rawURL {
		return "", "", fmt.Errorf("cachefetch: %q is not a doi: URL", rawURL)
	}
	idx := strings.LastIndex(rest, "/")
	if idx < 0 {
		return "", "", fmt.Errorf("cachefetch: doi URL %q missing /<filename> suffix", rawURL)
	}
	doi, filename = rest[:idx], rest[idx+1:]
	if doi == "" || filename == "" || !strings.Contains(doi, "/") {
		return "", "", fmt.Errorf("cachefetch: doi URL %q missing DOI or filename", rawURL)
	}
	return doi, filename, nil
}

// isCollectionDOI reports whether a DOI names a figshare collection
// (".c." in the suffix) rather than a single dataset version.
func isCollectionDOI(doi string) bool {
	return strings.Contains(doi, ".c.")
}

// resolveDOIDownloadURL follows https://doi.org/<DOI> to its landing page
// and asks each known repository, in turn, to resolve filename's download
// URL within the version the DOI names.
func (t *DOITransport) resolveDOIDownloadURL(ctx context.Context, rawURL string, opts TransportOptions) (string, error) {
	doi, filename, err := parseDOIURL(rawURL)
	if err != nil {
		return "", err
	}
	if isCollectionDOI(doi) {
		return "", fmt.Errorf("cachefetch: doi:%s: %w: collection DOIs are not datasets", doi, ErrDOIUnsupported)
	}

	client := t.client()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://doi.org/"+doi, nil)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: err}
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", &DownloadError{URL: rawURL, Err: fmt.Errorf("doi:%s not found (see %s)", doi, resp.Request.URL)}
	}
	landingURL := resp.Request.URL.String()

	for _, repo := range t.repos() {
		downloadURL, err := repo.resolve(ctx, client, doi, landingURL, filename)
		if err != nil {
			return "", err
		}
		if downloadURL != "" {
			return downloadURL, nil
		}
	}

	landingHost := landingURL
	if u, err := url.Parse(landingURL); err == nil {
		landingHost = u.Host
	}
	return "", fmt.Errorf("cachefetch: doi:%s resolves to unsupported repository %s: %w", doi, landingHost, ErrDOIUnsupported)
}

// Download resolves rawURL to a concrete HTTP(S) download URL and
// delegates the transfer to the HTTP transport.
func (t *DOITransport) Download(ctx context.Context, rawURL, destination string, opts TransportOptions) error {
	downloadURL, err := t.resolveDOIDownloadURL(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	return t.httpTransport().Download(ctx, downloadURL, destination, opts)
}

// IsAvailable resolves rawURL and delegates availability probing to the
// HTTP transport.
func (t *DOITransport) IsAvailable(ctx context.Context, rawURL string, opts TransportOptions) (bool, error) {
	downloadURL, err := t.resolveDOIDownloadURL(ctx, rawURL, opts)
	if err != nil {
		return false, err
	}
	return t.httpTransport().IsAvailable(ctx, downloadURL, opts)
}

// zenodoRepository resolves download URLs via the Zenodo records API.
type zenodoRepository struct{}

func (z *zenodoRepository) resolve(ctx context.Context, client *http.Client, doi, landingURL, filename string) (string, error) {
	u, err := url.Parse(landingURL)
	if err != nil || u.Host != "zenodo.org" {
		return "", nil
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	articleID := parts[len(parts)-1]

	var record struct {
		Files []struct {
			Key   string `json:"key"`
			Links struct {
				Self string `json:"self"`
			} `json:"links"`
		} `json:"files"`
	}
	if err := getJSON(ctx, client, fmt.Sprintf("https://zenodo.org/api/records/%s", articleID), &record); err != nil {
		return "", &DownloadError{URL: landingURL, Err: err}
	}
	for _, f := range record.Files {
		if f.Key == filename {
			return f.Links.Self, nil
		}
	}
	return "", fmt.Errorf("cachefetch: file %q not found in zenodo record %s (doi:%s)", filename, articleID, doi)
}

// figshareRepository resolves download URLs via the figshare articles API.
type figshareRepository struct{}

func (fs *figshareRepository) resolve(ctx context.Context, client *http.Client, doi, landingURL, filename string) (string, error) {
	u, err := url.Parse(landingURL)
	if err != nil || u.Host != "figshare.com" {
		return "", nil
	}

	var articles []struct {
		ID int64 `json:"id"`
	}
	if err := getJSON(ctx, client, fmt.Sprintf("https://api.figshare.com/v2/articles?doi=%s", doi), &articles); err != nil {
		return "", &DownloadError{URL: landingURL, Err: err}
	}
	if len(articles) == 0 {
		return "", fmt.Errorf("cachefetch: no figshare article found for doi:%s", doi)
	}

	var files []struct {
		Name        string `json:"name"`
		DownloadURL string `json:"download_url"`
	}
	if err := getJSON(ctx, client, fmt.Sprintf("https://api.figshare.com/v2/articles/%d/files", articles[0].ID), &files); err != nil {
		return "", &DownloadError{URL: landingURL, Err: err}
	}
	for _, f := range files {
		if f.Name == filename {
			return f.DownloadURL, nil
		}
	}
	return "", fmt.Errorf("cachefetch: file %q not found in figshare article %d (doi:%s)", filename, articles[0].ID, doi)
}

// dataverseRepository resolves download URLs via a Dataverse instance's
// dataset API. Any Dataverse-compatible host is supported, not just
// dataverse.harvard.edu. Files are looked up in the dataset's latest
// version.
type dataverseRepository struct{}

func (dv *dataverseRepository) resolve(ctx context.Context, client *http.Client, doi, landingURL, filename string) (string, error) {
	u, err := url.Parse(landingURL)
	if err != nil {
		return "", nil
	}
	api := fmt.Sprintf("%s://%s/api", u.Scheme, u.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/datasets/:persistentId?persistentId=doi:%s", api, doi), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		// Not a Dataverse instance (or this DOI isn't hosted there).
		return "", nil
	}

	var dataset struct {
		Data struct {
			LatestVersion struct {
				Files []struct {
					DataFile struct {
						Filename     string `json:"filename"`
						PersistentID string `json:"persistentId"`
					} `json:"dataFile"`
				} `json:"files"`
			} `json:"latestVersion"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dataset); err != nil {
		return "", &DownloadError{URL: landingURL, Err: err}
	}
	for _, f := range dataset.Data.LatestVersion.Files {
		if f.DataFile.Filename == filename {
			return fmt.Sprintf("%s/access/datafile/:persistentId?persistentId=%s", api, f.DataFile.PersistentID), nil
		}
	}
	return "", fmt.Errorf("cachefetch: file %q not found in dataverse dataset (doi:%s)", filename, doi)
}

// getJSON performs a GET request and decodes a JSON response body into v.
func getJSON(ctx context.Context, client *http.Client, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
