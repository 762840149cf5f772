// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import "testing"

func TestParseDOIURL(t *testing.T) {
	doi, filename, err := parseDOIURL("doi:10.6084/m9.figshare.14763051.v1/tiny-data.txt")
	if err != nil {
		t.Fatal(err)
	}
	if doi != "10.6084/m9.figshare.14763051.v1" || filename != "tiny-data.txt" {
		t.Errorf("got doi=%q filename=%q", doi, filename)
	}
}

func TestParseDOIURL_NotDOIScheme(t *testing.T) {
	if _, _, err := parseDOIURL("https://example.org/x"); err == nil {
		t.Error("expected error for non-doi URL")
	}
}

func TestParseDOIURL_MissingFilename(t *testing.T) {
	if _, _, err := parseDOIURL("doi:10.1234/abcd"); err == nil {
		t.Error("expected error when no /<filename> suffix is present")
	}
}

func TestIsCollectionDOI(t *testing.T) {
	if !isCollectionDOI("10.6084/m9.figshare.c.123456.v1") {
		t.Error("expected collection DOI (.c.) to be recognized")
	}
	if isCollectionDOI("10.6084/m9.figshare.14763051.v1") {
		t.Error("expected ordinary dataset DOI to not be a collection")
	}
}
