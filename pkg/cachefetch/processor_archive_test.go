// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTestZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestUnzipProcessor_MemberSubsetThenSuperset(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.zip")
	writeTestZip(t, archivePath, map[string]string{
		"a.txt": "A",
		"b.txt": "B",
		"c.txt": "C",
	})
	ctx := context.Background()

	first := NewUnzipProcessor([]string{"a.txt"}, "")
	got, err := first.Process(ctx, archivePath, Downloaded, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 extracted file, got %d: %v", len(got), got)
	}

	second := NewUnzipProcessor([]string{"a.txt", "b.txt"}, "")
	got2, err := second.Process(ctx, archivePath, Fetched, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got2) != 2 {
		t.Fatalf("expected 2 extracted files after superset request, got %d: %v", len(got2), got2)
	}

	if _, err := os.Stat(filepath.Join(archivePath+".unzip", "c.txt")); err == nil {
		t.Error("c.txt should not have been extracted; it was never requested")
	}
}

func TestUnzipProcessor_AllMembers(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive.zip")
	writeTestZip(t, archivePath, map[string]string{"a.txt": "A", "b.txt": "B"})

	p := NewUnzipProcessor(nil, "")
	got, err := p.Process(context.Background(), archivePath, Downloaded, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(got), got)
	}
}

func TestSafeJoin_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	if _, err := safeJoin(dir, "../../etc/passwd"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	if _, err := safeJoin(dir, "/etc/passwd"); err == nil {
		t.Error("expected absolute path to be rejected")
	}
	if _, err := safeJoin(dir, "sub/dir/file.txt"); err != nil {
		t.Errorf("expected ordinary relative path to be accepted, got %v", err)
	}
}
