// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsDevVersion(t *testing.T) {
	cases := map[string]bool{
		"1.2.3":      false,
		"1.2.3+dirty": true,
		"":           false,
		"+":          true,
	}
	for v, want := range cases {
		if got := IsDevVersion(v); got != want {
			t.Errorf("IsDevVersion(%q) = %v, want %v", v, got, want)
		}
	}
}

func TestCacheDescriptor_Resolve_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CACHEFETCH_TEST_DIR", dir)

	desc := CacheDescriptor{CacheRoot: "/should-not-be-used", EnvOverride: "CACHEFETCH_TEST_DIR"}
	got, err := desc.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("Resolve() = %q, want %q", got, dir)
	}
}

func TestCacheDescriptor_Resolve_VersionSegment(t *testing.T) {
	desc := CacheDescriptor{CacheRoot: "/cache", Version: "2.0.0", DevLabel: "main"}
	got, err := desc.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("/cache", "2.0.0")
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestCacheDescriptor_Resolve_DevVersionUsesLabel(t *testing.T) {
	desc := CacheDescriptor{CacheRoot: "/cache", Version: "2.0.0+dirty", DevLabel: "main"}
	got, err := desc.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("/cache", "main")
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestCacheDescriptor_Resolve_NeverTouchesFilesystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does", "not", "exist", "yet")
	desc := CacheDescriptor{CacheRoot: dir}
	if _, err := desc.Resolve(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err == nil {
		t.Error("Resolve() must not create the cache directory")
	}
}
