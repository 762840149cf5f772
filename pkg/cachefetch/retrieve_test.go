// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestRetrieve_SynthesizesRegistryAndFetches(t *testing.T) {
	content := []byte("retrieved content")
	digest := sha256Hex(content)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	paths, err := Retrieve(context.Background(), srv.URL+"/tiny-data.txt", "sha256:"+digest, RetrieveOptions{CachePath: cacheDir})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}

	got, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestRetrieve_UnknownSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("anything"))
	}))
	defer srv.Close()

	_, err := Retrieve(context.Background(), srv.URL+"/x.bin", "unknown", RetrieveOptions{CachePath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
}

func TestUniqueFileName(t *testing.T) {
	a := uniqueFileName("https://example.org/data/a.txt")
	b := uniqueFileName("https://example.org/other/a.txt")
	if a == b {
		t.Error("expected different URLs with the same basename to produce different names")
	}
}
