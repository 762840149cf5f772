// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cachefetch

import (
	"fmt"
	"strings"
)

// FullURL computes the effective remote URL for a registry entry named
// name, given desc. A per-file URL override is used verbatim — no version
// substitution, no name appending. Otherwise descriptor.BaseURL is
// required; "{version}" is substituted per the dev-suffix rule, a trailing
// slash is ensured, and name is concatenated.
func FullURL(reg *Registry, name string, desc CacheDescriptor) (string, error) {
	entry, ok := reg.Get(name)
	if !ok {
		return "", &DownloadError{URL: name, Err: ErrUnknownFile}
	}

	if entry.URL != "" {
		return entry.URL, nil
	}

	if desc.BaseURL == "" {
		return "", fmt.Errorf("cachefetch: no per-file URL for %q and no base URL configured", name)
	}

	base := strings.ReplaceAll(desc.BaseURL, "{version}", desc.effectiveVersion())
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + name, nil
}
