// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"
)

// CompressionMethod names a supported single-file decompression codec, or
// "auto" to detect it from the input file's extension.
type CompressionMethod string

const (
	MethodAuto  CompressionMethod = "auto"
	MethodGzip  CompressionMethod = "gzip"
	MethodBzip2 CompressionMethod = "bzip2"
	MethodXZ    CompressionMethod = "xz"
)

var compressionExtensions = map[string]CompressionMethod{
	".gz":  MethodGzip,
	".bz2": MethodBzip2,
	".xz":  MethodXZ,
}

// DecompressProcessor decompresses a single-file archive (gzip, bzip2, or
// lzma/xz) into a sibling plain file.
type DecompressProcessor struct {
	// Method selects the codec, or MethodAuto to detect it from the
	// input path's extension.
	Method CompressionMethod

	// Name overrides the output file's base name. It must not include a
	// directory component. Defaults to the input path plus ".decomp".
	Name string
}

func (p *DecompressProcessor) outputPath(fname string) string {
	if p.Name != "" {
		return filepath.Join(filepath.Dir(fname), p.Name)
	}
	return fname + ".decomp"
}

func (p *DecompressProcessor) resolveMethod(fname string) (CompressionMethod, error) {
	method := p.Method
	if method == "" {
		method = MethodAuto
	}
	if method != MethodAuto {
		return method, nil
	}
	ext := strings.ToLower(filepath.Ext(fname))
	resolved, ok := compressionExtensions[ext]
	if !ok {
		return "", fmt.Errorf("cachefetch: unrecognized extension %q for auto decompression", ext)
	}
	return resolved, nil
}

func openCompressed(method CompressionMethod, f *os.File) (io.Reader, error) {
	switch method {
	case MethodGzip:
		return gzip.NewReader(f)
	case MethodBzip2:
		return bzip2.NewReader(f), nil
	case MethodXZ:
		return xz.NewReader(f)
	default:
		return nil, fmt.Errorf("cachefetch: unknown compression method %q", method)
	}
}

// Process decompresses fname, unless action is Fetched and the output
// already exists, in which case it just returns the existing path.
func (p *DecompressProcessor) Process(ctx context.Context, fname string, action Action, fetcher *Fetcher) ([]string, error) {
	out := p.outputPath(fname)

	if action == Fetched {
		if _, err := os.Stat(out); err == nil {
			return []string{out}, nil
		}
	}

	method, err := p.resolveMethod(fname)
	if err != nil {
		return nil, &ProcessorFailureError{Path: fname, Err: err}
	}

	in, err := os.Open(fname)
	if err != nil {
		return nil, &ProcessorFailureError{Path: fname, Err: err}
	}
	defer in.Close()

	reader, err := openCompressed(method, in)
	if err != nil {
		return nil, &ProcessorFailureError{Path: fname, Err: err}
	}

	tmp := out + ".tmp-" + uuid.NewString()
	dst, err := os.Create(tmp)
	if err != nil {
		return nil, &ProcessorFailureError{Path: fname, Err: err}
	}

	if _, err := io.Copy(dst, reader); err != nil {
		dst.Close()
		os.Remove(tmp)
		return nil, &ProcessorFailureError{Path: fname, Err: err}
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return nil, &ProcessorFailureError{Path: fname, Err: err}
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return nil, &ProcessorFailureError{Path: fname, Err: err}
	}

	return []string{out}, nil
}
