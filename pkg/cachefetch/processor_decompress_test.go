// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeGzipFile(t *testing.T, path string, content []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gw := gzip.NewWriter(f)
	if _, err := gw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDecompressProcessor_Gzip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt.gz")
	writeGzipFile(t, src, []byte("hello decompressed world"))

	p := &DecompressProcessor{Method: MethodAuto}
	paths, err := p.Process(context.Background(), src, Downloaded, nil)
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
	if !bytes.Equal(got, []byte("hello decompressed world")) {
		t.Errorf("unexpected decompressed content: %q", got)
	}
	if filepath.Base(paths[0]) != "data.txt.gz.decomp" {
		t.Errorf("unexpected default output name: %q", paths[0])
	}
}

func TestDecompressProcessor_IdempotentOnFetched(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt.gz")
	writeGzipFile(t, src, []byte("version one"))

	p := &DecompressProcessor{Method: MethodAuto}
	ctx := context.Background()

	first, err := p.Process(ctx, src, Downloaded, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Mutate the source archive without changing the decompressed output;
	// a Fetched call must not redo the work.
	writeGzipFile(t, src, []byte("version two, should not appear"))

	second, err := p.Process(ctx, src, Fetched, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second[0] != first[0] {
		t.Fatalf("expected same output path, got %q and %q", first[0], second[0])
	}

	got, err := os.ReadFile(second[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "version one" {
		t.Errorf("Fetched action must not re-decompress: got %q", got)
	}
}

func TestDecompressProcessor_CustomName(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt.gz")
	writeGzipFile(t, src, []byte("x"))

	p := &DecompressProcessor{Method: MethodGzip, Name: "out.txt"}
	paths, err := p.Process(context.Background(), src, Downloaded, nil)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(paths[0]) != "out.txt" {
		t.Errorf("expected custom name out.txt, got %q", paths[0])
	}
}
