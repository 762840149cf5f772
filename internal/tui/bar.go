// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/cachefetch/cachefetch/pkg/cachefetch"
)

// BarProgressDisplay adapts a cheggaaa/pb bar to cachefetch.ProgressDisplay,
// for commands that fetch a single name and want a classic terminal
// progress bar rather than the multi-row LiveRenderer table.
type BarProgressDisplay struct {
	mu   sync.Mutex
	bar  *pb.ProgressBar
	name string
}

// NewBarProgressDisplay creates a progress bar labeled with name. The bar
// is started lazily on the first SetTotal call.
func NewBarProgressDisplay(name string) *BarProgressDisplay {
	return &BarProgressDisplay{name: name}
}

// SetTotal implements cachefetch.ProgressDisplay.
func (b *BarProgressDisplay) SetTotal(bytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.SetTotal(bytes)
		return
	}
	b.bar = pb.New64(bytes)
	b.bar.Set(pb.Bytes, true)
	b.bar.Set("prefix", b.name+" ")
	b.bar.SetRefreshRate(100 * time.Millisecond)
	b.bar.Start()
}

// Update implements cachefetch.ProgressDisplay.
func (b *BarProgressDisplay) Update(bytesDone int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}
	b.bar.SetCurrent(bytesDone)
}

// Reset implements cachefetch.ProgressDisplay, restarting the bar for a
// retried attempt of the same name.
func (b *BarProgressDisplay) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}
	b.bar.SetCurrent(0)
}

// Close implements cachefetch.ProgressDisplay.
func (b *BarProgressDisplay) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}
	b.bar.Finish()
	b.bar = nil
}

var _ cachefetch.ProgressDisplay = (*BarProgressDisplay)(nil)
