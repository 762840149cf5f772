// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mholt/archives"
)

// archiveExtractor is the shared logic behind UnzipProcessor and
// UntarProcessor: both resolve an extract directory, decide whether
// re-extraction is needed, extract via a uniform archive reader, and
// collect the member paths the caller asked for.
type archiveExtractor struct {
	// ExtractDir, if set, is interpreted as a path relative to the
	// archive's own directory. If empty, defaults to the archive path
	// plus defaultSuffix.
	ExtractDir string

	// Members, if non-nil, restricts extraction/return to these archive
	// member names (and, for directories, their recursive contents). A
	// nil slice means "all members."
	Members []string

	defaultSuffix string
}

func (p *archiveExtractor) resolveExtractDir(fname string) string {
	if p.ExtractDir == "" {
		return fname + p.defaultSuffix
	}
	return filepath.Join(filepath.Dir(fname), p.ExtractDir)
}

// needsReExtraction implements the idempotence rule from §4.6.b: always
// re-extract on Downloaded/Updated; on Fetched, re-extract only if any
// requested member is missing from extractDir. A processor must not trust
// that a previous invocation extracted a superset of today's request.
func needsReExtraction(action Action, extractDir string, members []string) bool {
	if action != Fetched {
		return true
	}
	info, err := os.Stat(extractDir)
	if err != nil || !info.IsDir() {
		return true
	}
	if members == nil {
		return false
	}
	for _, m := range members {
		if _, err := os.Stat(filepath.Join(extractDir, filepath.FromSlash(m))); err != nil {
			return true
		}
	}
	return false
}

// extractArchive extracts archivePath into extractDir via a format-agnostic
// reader, restricted to members when non-nil. Every extracted path is
// validated against extractDir to reject zip-slip / tar-traversal archives.
func extractArchive(ctx context.Context, archivePath, extractDir string, members []string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return err
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer closer.Close()
	}

	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return err
	}

	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		if members != nil && !memberSelected(path, members) {
			return nil
		}

		targetPath, err := safeJoin(extractDir, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0o755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return extractSymlink(fsys, path, targetPath, extractDir)
		}
		return extractRegularFile(fsys, path, targetPath, info)
	})
}

// safeJoin joins extractDir and archivePath, rejecting any result that
// would escape extractDir (a '..' or absolute-path archive member).
func safeJoin(extractDir, archivePath string) (string, error) {
	cleaned := filepath.Clean(archivePath)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || filepath.IsAbs(cleaned) {
		return "", &ProcessorFailureError{Path: archivePath, Err: fmt.Errorf("%w: %s", ErrPathTraversal, archivePath)}
	}
	target := filepath.Join(extractDir, cleaned)
	if target != extractDir && !strings.HasPrefix(target, extractDir+string(filepath.Separator)) {
		return "", &ProcessorFailureError{Path: archivePath, Err: fmt.Errorf("%w: %s", ErrPathTraversal, archivePath)}
	}
	return target, nil
}

func extractSymlink(fsys fs.FS, path, targetPath, extractDir string) error {
	f, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	if _, err := safeJoin(extractDir, filepath.ToSlash(filepath.Join(filepath.Dir(path), string(data)))); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}
	os.Remove(targetPath)
	return os.Symlink(string(data), targetPath)
}

func extractRegularFile(fsys fs.FS, path, targetPath string, info fs.FileInfo) error {
	src, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}
	dst, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// cleanupAfterFailedExtract removes a partially-extracted directory after
// extractArchive fails, so a retried Fetch doesn't see a half-written
// extractDir and mistake it for a complete prior extraction. It never
// removes a directory that predates this extraction attempt. Any removal
// failure is aggregated alongside the original extraction error rather than
// masking it.
func cleanupAfterFailedExtract(extractDir string, preexisting bool, extractErr error) error {
	if preexisting {
		return extractErr
	}
	result := multierror.Append(nil, extractErr)
	if err := os.RemoveAll(extractDir); err != nil {
		result = multierror.Append(result, fmt.Errorf("cleanup of %s: %w", extractDir, err))
	}
	return result.ErrorOrNil()
}

// memberSelected reports whether archivePath is one of the requested
// members or lies beneath one of them (a selected directory yields its
// full recursive contents).
func memberSelected(archivePath string, members []string) bool {
	for _, m := range members {
		m = strings.TrimSuffix(m, "/")
		if archivePath == m || strings.HasPrefix(archivePath, m+"/") {
			return true
		}
	}
	return false
}

// collectExtracted returns the absolute paths of every file under
// extractDir that the request asked for (all of them, when members is
// nil; otherwise only files at or beneath a requested member).
func collectExtracted(extractDir string, members []string) ([]string, error) {
	var out []string
	err := filepath.Walk(extractDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if members != nil {
			rel, err := filepath.Rel(extractDir, path)
			if err != nil {
				return err
			}
			if !memberSelected(filepath.ToSlash(rel), members) {
				return nil
			}
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (p *archiveExtractor) process(ctx context.Context, fname string, action Action) ([]string, error) {
	extractDir := p.resolveExtractDir(fname)

	if needsReExtraction(action, extractDir, p.Members) {
		preexisting := false
		if info, err := os.Stat(extractDir); err == nil && info.IsDir() {
			preexisting = true
		}
		if err := extractArchive(ctx, fname, extractDir, p.Members); err != nil {
			return nil, &ProcessorFailureError{Path: fname, Err: cleanupAfterFailedExtract(extractDir, preexisting, err)}
		}
	}

	results, err := collectExtracted(extractDir, p.Members)
	if err != nil {
		return nil, &ProcessorFailureError{Path: fname, Err: err}
	}
	return results, nil
}

// UnzipProcessor extracts a zip archive's members into extractDir,
// defaulting to the archive path with ".unzip" appended.
type UnzipProcessor struct {
	archiveExtractor
}

// NewUnzipProcessor constructs an UnzipProcessor. members == nil extracts
// everything; extractDir == "" uses the default "<archive>.unzip" layout.
func NewUnzipProcessor(members []string, extractDir string) *UnzipProcessor {
	return &UnzipProcessor{archiveExtractor{ExtractDir: extractDir, Members: members, defaultSuffix: ".unzip"}}
}

// Process implements Processor.
func (p *UnzipProcessor) Process(ctx context.Context, fname string, action Action, fetcher *Fetcher) ([]string, error) {
	return p.process(ctx, fname, action)
}

// UntarProcessor extracts a tar (optionally compressed) archive's members
// into extractDir, defaulting to the archive path with ".untar" appended.
type UntarProcessor struct {
	archiveExtractor
}

// NewUntarProcessor constructs an UntarProcessor. members == nil extracts
// everything; extractDir == "" uses the default "<archive>.untar" layout.
func NewUntarProcessor(members []string, extractDir string) *UntarProcessor {
	return &UntarProcessor{archiveExtractor{ExtractDir: extractDir, Members: members, defaultSuffix: ".untar"}}
}

// Process implements Processor.
func (p *UntarProcessor) Process(ctx context.Context, fname string, action Action, fetcher *Fetcher) ([]string, error) {
	return p.process(ctx, fname, action)
}
