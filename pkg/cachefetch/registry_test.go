// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoadRegistry_TwoField(t *testing.T) {
	reg, err := LoadRegistry(strings.NewReader("tiny-data.txt sha256:abc123\n"), "<string>")
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := reg.Get("tiny-data.txt")
	if !ok {
		t.Fatal("expected entry to be present")
	}
	if entry.Hash.Algorithm != "sha256" || entry.Hash.Digest != "abc123" || entry.URL != "" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestLoadRegistry_ThreeField(t *testing.T) {
	reg, err := LoadRegistry(strings.NewReader("x.bin sha256:abc123 https://example.org/x.bin\n"), "<string>")
	if err != nil {
		t.Fatal(err)
	}
	entry, _ := reg.Get("x.bin")
	if entry.URL != "https://example.org/x.bin" {
		t.Errorf("unexpected URL: %q", entry.URL)
	}
}

func TestLoadRegistry_FilenameWithSpaces(t *testing.T) {
	reg, err := LoadRegistry(strings.NewReader("my data file.txt sha256:abc123 https://example.org/data\n"), "<string>")
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := reg.Get("my data file.txt")
	if !ok {
		t.Fatalf("expected name with embedded spaces to be parsed; names: %v", reg.ListNames())
	}
	if entry.URL != "https://example.org/data" {
		t.Errorf("unexpected URL: %q", entry.URL)
	}
}

func TestLoadRegistry_CommentsAndBlankLines(t *testing.T) {
	text := "# a comment\n\n  \na.txt sha256:abc123\n"
	reg, err := LoadRegistry(strings.NewReader(text), "<string>")
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.ListNames()) != 1 {
		t.Errorf("expected exactly 1 entry, got %d", len(reg.ListNames()))
	}
}

func TestLoadRegistry_MalformedLine(t *testing.T) {
	_, err := LoadRegistry(strings.NewReader("onlyonefield\n"), "reg.txt")
	if err == nil {
		t.Fatal("expected error for line with < 2 fields")
	}
	var mre *MalformedRegistryError
	if !asMalformed(err, &mre) {
		t.Fatalf("expected *MalformedRegistryError, got %T: %v", err, err)
	}
	if mre.Line != 1 || mre.Source != "reg.txt" {
		t.Errorf("unexpected error fields: %+v", mre)
	}
}

func TestLoadRegistry_DuplicateName(t *testing.T) {
	text := "a.txt sha256:abc123\na.txt sha256:def456\n"
	if _, err := LoadRegistry(strings.NewReader(text), "reg.txt"); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestLoadRegistry_UnknownSentinel(t *testing.T) {
	reg, err := LoadRegistry(strings.NewReader("a.txt unknown\n"), "<string>")
	if err != nil {
		t.Fatal(err)
	}
	entry, _ := reg.Get("a.txt")
	if !entry.Hash.Unknown {
		t.Error("expected unknown sentinel to parse")
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	text := "a.txt sha256:abc123\nb.bin md5:def456 https://example.org/b.bin\n"
	reg, err := LoadRegistry(strings.NewReader(text), "<string>")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := reg.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != text {
		t.Errorf("round trip mismatch:\n got: %q\nwant: %q", buf.String(), text)
	}
}

func asMalformed(err error, out **MalformedRegistryError) bool {
	if mre, ok := err.(*MalformedRegistryError); ok {
		*out = mre
		return true
	}
	return false
}
