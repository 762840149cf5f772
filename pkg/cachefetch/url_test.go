// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import "testing"

func TestFullURL_BaseURLWithVersion(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Add(RegistryEntry{Name: "tiny-data.txt", Hash: HashSpec{Algorithm: "sha256", Digest: "abc"}}); err != nil {
		t.Fatal(err)
	}
	desc := CacheDescriptor{BaseURL: "https://example.org/v{version}", Version: "1"}

	got, err := FullURL(reg, "tiny-data.txt", desc)
	if err != nil {
		t.Fatal(err)
	}
	want := "https://example.org/v1/tiny-data.txt"
	if got != want {
		t.Errorf("FullURL() = %q, want %q", got, want)
	}
}

func TestFullURL_DevVersionSubstitution(t *testing.T) {
	reg := NewRegistry()
	reg.Add(RegistryEntry{Name: "x.bin", Hash: HashSpec{Algorithm: "sha256", Digest: "abc"}})
	desc := CacheDescriptor{BaseURL: "https://example.org/{version}/", Version: "1.0.0+dirty", DevLabel: "main"}

	got, err := FullURL(reg, "x.bin", desc)
	if err != nil {
		t.Fatal(err)
	}
	want := "https://example.org/main/x.bin"
	if got != want {
		t.Errorf("FullURL() = %q, want %q", got, want)
	}
}

func TestFullURL_PerFileOverrideIgnoresVersion(t *testing.T) {
	reg := NewRegistry()
	reg.Add(RegistryEntry{
		Name: "x.bin",
		Hash: HashSpec{Algorithm: "sha256", Digest: "abc"},
		URL:  "ftp://mirror.example.org/x.bin",
	})
	desc := CacheDescriptor{BaseURL: "https://primary.example.org/{version}/", Version: "9"}

	got, err := FullURL(reg, "x.bin", desc)
	if err != nil {
		t.Fatal(err)
	}
	want := "ftp://mirror.example.org/x.bin"
	if got != want {
		t.Errorf("FullURL() = %q, want %q (override must ignore version substitution)", got, want)
	}
}

func TestFullURL_UnknownName(t *testing.T) {
	reg := NewRegistry()
	desc := CacheDescriptor{BaseURL: "https://example.org/"}
	if _, err := FullURL(reg, "missing.txt", desc); err == nil {
		t.Error("expected error for name absent from registry")
	}
}
