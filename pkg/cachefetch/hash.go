// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

// UnknownHash is the sentinel hash specifier meaning "never verify, never
// treat mismatch as an error."
const UnknownHash = "unknown"

// DefaultAlgorithm is the algorithm implied by a bare hex digest with no
// "algorithm:" prefix.
const DefaultAlgorithm = "sha256"

// streamBufferSize bounds memory use while hashing arbitrarily large files.
const streamBufferSize = 64 * 1024

// HashSpec is a parsed "algorithm:hexdigest" specifier, or the unknown
// sentinel.
type HashSpec struct {
	Algorithm string // lowercase algorithm name, empty when Unknown is true
	Digest    string // lowercase hex digest, empty when Unknown is true
	Unknown   bool
}

// String renders the spec back into "algorithm:digest" form, or "unknown".
func (h HashSpec) String() string {
	if h.Unknown {
		return UnknownHash
	}
	return h.Algorithm + ":" + h.Digest
}

// newHasher constructs a hash.Hash for the given algorithm name. Unknown
// algorithm names fail here, at construction, never lazily at hash time.
func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "sha256":
		return sha256.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "md5":
		return md5.New(), nil
	case "sha512":
		return sha512.New(), nil
	case "xxh64":
		return xxhash.New(), nil
	case "xxh128":
		return xxh3.New128(), nil
	default:
		return nil, fmt.Errorf("cachefetch: unsupported hash algorithm %q", algorithm)
	}
}

// ParseHashSpec parses a "<algorithm>:<hex-digest>" or bare "<hex-digest>"
// string. A spec lacking a prefix defaults to sha256. The special value
// "unknown" (case-insensitive) yields a sentinel spec that always matches.
func ParseHashSpec(spec string) (HashSpec, error) {
	if strings.EqualFold(spec, UnknownHash) {
		return HashSpec{Unknown: true}, nil
	}

	algorithm := DefaultAlgorithm
	digest := spec
	if idx := strings.IndexByte(spec, ':'); idx >= 0 {
		algorithm = strings.ToLower(spec[:idx])
		digest = spec[idx+1:]
	}
	digest = strings.ToLower(digest)

	if _, err := newHasher(algorithm); err != nil {
		return HashSpec{}, err
	}
	if digest == "" {
		return HashSpec{}, fmt.Errorf("cachefetch: empty digest in hash spec %q", spec)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return HashSpec{}, fmt.Errorf("cachefetch: hash spec %q is not valid hex: %w", spec, err)
	}

	return HashSpec{Algorithm: algorithm, Digest: digest}, nil
}

// HashFile streams path's contents through the named algorithm and returns
// the lowercase hex digest. Memory use is constant regardless of file size.
func HashFile(path string, algorithm string) (string, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, streamBufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashesMatch reports whether the file at path satisfies expected. The
// "unknown" sentinel always returns true without touching the filesystem.
func HashesMatch(expected HashSpec, path string) (bool, error) {
	if expected.Unknown {
		return true, nil
	}
	actual, err := HashFile(path, expected.Algorithm)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected.Digest), nil
}
