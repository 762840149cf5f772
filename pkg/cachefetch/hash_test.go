// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseHashSpec(t *testing.T) {
	cases := []struct {
		spec      string
		wantAlgo  string
		wantHex   string
		wantUnk   bool
		wantError bool
	}{
		{spec: "sha256:abc123", wantAlgo: "sha256", wantHex: "abc123"},
		{spec: "ABCDEF", wantAlgo: "sha256", wantHex: "abcdef"},
		{spec: "unknown", wantUnk: true},
		{spec: "UNKNOWN", wantUnk: true},
		{spec: "md5:ABCDEF", wantAlgo: "md5", wantHex: "abcdef"},
		{spec: "notanalgo:abc", wantError: true},
		{spec: "sha256:zzzz", wantError: true},
		{spec: "sha256:", wantError: true},
	}

	for _, c := range cases {
		got, err := ParseHashSpec(c.spec)
		if c.wantError {
			if err == nil {
				t.Errorf("ParseHashSpec(%q): expected error, got nil", c.spec)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHashSpec(%q): unexpected error: %v", c.spec, err)
			continue
		}
		if got.Unknown != c.wantUnk {
			t.Errorf("ParseHashSpec(%q): Unknown = %v, want %v", c.spec, got.Unknown, c.wantUnk)
		}
		if !c.wantUnk {
			if got.Algorithm != c.wantAlgo || got.Digest != c.wantHex {
				t.Errorf("ParseHashSpec(%q) = %+v, want algo %q hex %q", c.spec, got, c.wantAlgo, c.wantHex)
			}
		}
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Errorf("HashFile() = %q, want %q", got, want)
	}
}

func TestHashesMatch_UnknownSentinelAlwaysMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("anything"), 0o644); err != nil {
		t.Fatal(err)
	}

	matches, err := HashesMatch(HashSpec{Unknown: true}, path)
	if err != nil {
		t.Fatal(err)
	}
	if !matches {
		t.Error("expected unknown sentinel to always match")
	}
}

func TestHashesMatch_CaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	expected := HashSpec{Algorithm: "sha256", Digest: "B94D27B9934D3E08A52E52D7DA7DABFAC484EFE37A5380EE9088F7ACE2EFCDE"}
	// HashesMatch compares case-insensitively via strings.EqualFold, so an
	// uppercase expected digest (not normally produced by ParseHashSpec,
	// which lowercases) must still match.
	matches, err := HashesMatch(expected, path)
	if err != nil {
		t.Fatal(err)
	}
	if !matches {
		t.Error("expected case-insensitive digest comparison to match")
	}
}

func TestHashInvarianceUnderAlgorithmPrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	bare, err := ParseHashSpec("b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9")
	if err != nil {
		t.Fatal(err)
	}
	prefixed, err := ParseHashSpec("sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9")
	if err != nil {
		t.Fatal(err)
	}

	m1, err := HashesMatch(bare, path)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := HashesMatch(prefixed, path)
	if err != nil {
		t.Fatal(err)
	}
	if m1 != m2 || !m1 {
		t.Errorf("bare and sha256-prefixed hash specs must behave identically, got %v and %v", m1, m2)
	}
}
