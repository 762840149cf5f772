// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package tui renders cachefetch.Event streams as a live, adaptive terminal
// table.
package tui

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/cachefetch/cachefetch/pkg/cachefetch"
)

// LiveRenderer renders a cross-platform, adaptive, colorful progress table
// for a single Fetch/Retrieve call.
// - Uses ANSI when available; plain text fallback otherwise.
// - Adapts to terminal width/height.
// - Shows a header line plus one row per name currently resolving,
//   downloading, or recently finished.
type LiveRenderer struct {
	label string

	mu         sync.Mutex
	start      time.Time
	events     chan cachefetch.Event
	done       chan struct{}
	stopped    bool
	hideCur    bool
	supports   bool // ANSI + interactive
	noColor    bool
	lastRedraw time.Time

	totalBytes int64

	names map[string]*nameState

	lastTotalBytes int64
	lastTick       time.Time
	smoothedSpeed  float64 // EMA smoothed overall speed
}

type nameState struct {
	name    string
	url     string
	total   int64
	bytes   int64
	status  string // "resolving","downloading","verifying","processing","done","error"
	attempt int
	err     string

	lastBytes     int64
	lastTime      time.Time
	smoothedSpeed float64

	started time.Time
}

// speedSmoothingFactor is the EMA smoothing factor (0.1 = very smooth,
// 0.5 = responsive).
const speedSmoothingFactor = 0.3

func smoothSpeed(current, previous float64) float64 {
	if previous == 0 {
		return current
	}
	return speedSmoothingFactor*current + (1-speedSmoothingFactor)*previous
}

// NewLiveRenderer creates a new live TUI renderer. label is shown in the
// header (typically the registry path or a short description of the
// running command).
func NewLiveRenderer(label string) *LiveRenderer {
	lr := &LiveRenderer{
		label:   label,
		start:   time.Now(),
		events:  make(chan cachefetch.Event, 2048),
		done:    make(chan struct{}),
		names:   map[string]*nameState{},
		noColor: os.Getenv("NO_COLOR") != "",
	}
	lr.supports = isInteractive() && ansiOkay()
	if lr.supports && !lr.noColor {
		fmt.Fprint(os.Stdout, "\x1b[?25l")
		lr.hideCur = true
	}
	go lr.loop()
	return lr
}

// Close stops the renderer and restores the terminal.
func (lr *LiveRenderer) Close() {
	lr.mu.Lock()
	if lr.stopped {
		lr.mu.Unlock()
		return
	}
	lr.stopped = true
	close(lr.done)
	lr.mu.Unlock()
	time.Sleep(60 * time.Millisecond)
	if lr.hideCur {
		fmt.Fprint(os.Stdout, "\x1b[?25h")
	}
	fmt.Fprintln(os.Stdout)
}

// Handler returns a ProgressFunc that feeds events to the renderer.
func (lr *LiveRenderer) Handler() cachefetch.ProgressFunc {
	return func(ev cachefetch.Event) {
		select {
		case lr.events <- ev:
		default:
			// Drop events if the UI is congested; keep rendering smoothly.
		}
	}
}

func (lr *LiveRenderer) loop() {
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-lr.done:
			lr.render(true)
			return
		case ev := <-lr.events:
			lr.apply(ev)
		case <-ticker.C:
			lr.render(false)
		}
	}
}

func (lr *LiveRenderer) apply(ev cachefetch.Event) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	ns := lr.ensure(ev.Name)
	switch ev.Kind {
	case "resolve":
		ns.url = ev.URL
		ns.status = "resolving"
	case "download_start":
		ns.status = "downloading"
		ns.attempt = ev.Attempt
		if ev.Total > 0 {
			ns.total = ev.Total
		}
		if ns.started.IsZero() {
			ns.started = time.Now()
		}
	case "verify":
		ns.status = "verifying"
	case "retry":
		ns.attempt = ev.Attempt
		ns.err = ev.Message
	case "publish", "process":
		ns.status = "processing"
	case "done":
		ns.status = "done"
		ns.bytes = ns.total
	case "error":
		ns.status = "error"
		ns.err = ev.Message
	}
}

func (lr *LiveRenderer) ensure(name string) *nameState {
	if ns, ok := lr.names[name]; ok {
		return ns
	}
	ns := &nameState{name: name}
	lr.names[name] = ns
	return ns
}

func (lr *LiveRenderer) render(final bool) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	w, h := termSize()
	minW := 70
	if w < minW {
		w = minW
	}
	if h < 12 {
		h = 12
	}

	var aggBytes int64
	var active []*nameState
	var doneCnt, errCnt int
	for _, ns := range lr.names {
		switch ns.status {
		case "downloading", "resolving", "verifying", "processing":
			active = append(active, ns)
		case "done":
			doneCnt++
		case "error":
			errCnt++
		}
		if ns.bytes > 0 {
			aggBytes += ns.bytes
		}
	}

	now := time.Now()
	if !lr.lastTick.IsZero() && now.After(lr.lastTick) {
		deltaB := aggBytes - lr.lastTotalBytes
		deltaT := now.Sub(lr.lastTick).Seconds()
		if deltaT > 0.05 {
			instantSpeed := float64(deltaB) / deltaT
			if instantSpeed >= 0 {
				lr.smoothedSpeed = smoothSpeed(instantSpeed, lr.smoothedSpeed)
			}
			lr.lastTick = now
			lr.lastTotalBytes = aggBytes
		}
	} else if lr.lastTick.IsZero() {
		lr.lastTick = now
		lr.lastTotalBytes = aggBytes
	}
	speed := lr.smoothedSpeed

	if lr.supports {
		fmt.Fprint(os.Stdout, "\x1b[H\x1b[2J")
	}

	headline := fmt.Sprintf("cachefetch: %s", lr.label)
	fmt.Fprintln(os.Stdout, colorize(bold(headline), "fg=cyan", lr))
	statusLine := fmt.Sprintf("Active: %d  Done: %d  Err: %d  Speed: %s/s", len(active), doneCnt, errCnt, humanBytes(int64(speed)))
	fmt.Fprintln(os.Stdout, dim(statusLine))

	fmt.Fprintln(os.Stdout)
	cols := []string{"Status", "Name", "Progress", "Speed", "Attempt"}
	fmt.Fprintln(os.Stdout, headerRow(cols, w))

	maxRows := h - 8
	if maxRows < 3 {
		maxRows = 3
	}

	shown := 0
	for _, ns := range active {
		if shown >= maxRows {
			break
		}
		shown++
		fmt.Fprintln(os.Stdout, renderNameRow(ns, w, lr))
	}

	if shown < maxRows {
		for _, ns := range lr.names {
			if shown >= maxRows {
				break
			}
			if ns.status == "done" || ns.status == "error" {
				fmt.Fprintln(os.Stdout, renderNameRow(ns, w, lr))
				shown++
			}
		}
	}

	if lr.supports {
		fmt.Fprintln(os.Stdout, dim(fmt.Sprintf("Press Ctrl+C to cancel • %s %s", runtime.GOOS, runtime.GOARCH)))
	}
}

func renderNameRow(ns *nameState, w int, lr *LiveRenderer) string {
	statusW := 11
	speedW := 10
	attemptW := 8
	remain := w - (statusW + speedW + attemptW + 8)
	if remain < 20 {
		remain = 20
	}
	nameW := remain

	var st, col string
	switch ns.status {
	case "downloading":
		st, col = "▶", "fg=yellow"
	case "resolving", "verifying", "processing":
		st, col = "…", "fg=magenta"
	case "done":
		st, col = "✓", "fg=green"
	case "error":
		st, col = "×", "fg=red"
	default:
		st, col = "•", "fg=blue"
	}
	status := pad(colorize(st+" "+ns.status, col, lr), statusW)
	name := ellipsizeMiddle(ns.name, nameW)

	now := time.Now()
	if !ns.lastTime.IsZero() {
		dt := now.Sub(ns.lastTime).Seconds()
		if dt > 0.05 {
			delta := ns.bytes - ns.lastBytes
			instantSpeed := float64(delta) / dt
			if instantSpeed >= 0 {
				ns.smoothedSpeed = smoothSpeed(instantSpeed, ns.smoothedSpeed)
			}
			ns.lastTime = now
			ns.lastBytes = ns.bytes
		}
	} else {
		ns.lastTime = now
		ns.lastBytes = ns.bytes
	}
	speedTxt := pad(humanBytes(int64(ns.smoothedSpeed))+"/s", speedW)
	attemptTxt := pad(fmt.Sprintf("%d", ns.attempt), attemptW)

	return fmt.Sprintf("%s  %s  %s  %s", status, pad(name, nameW), speedTxt, attemptTxt)
}

func headerRow(cols []string, w int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = bold(c)
	}
	s := strings.Join(parts, "  ")
	if utf8.RuneCountInString(s) > w {
		runes := []rune(s)
		return string(runes[:w])
	}
	return s
}

func ellipsizeMiddle(s string, w int) string {
	if w <= 3 || utf8.RuneCountInString(s) <= w {
		return pad(s, w)
	}
	runes := []rune(s)
	half := (w - 3) / 2
	if 2*half+3 > len(runes) {
		return pad(s, w)
	}
	return pad(string(runes[:half])+"..."+string(runes[len(runes)-half:]), w)
}

func pad(s string, w int) string {
	r := utf8.RuneCountInString(s)
	if r >= w {
		return s
	}
	return s + strings.Repeat(" ", w-r)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n/div >= unit && exp < 6 {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func termSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 100, 30
	}
	return w, h
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func ansiOkay() bool {
	termEnv := strings.ToLower(os.Getenv("TERM"))
	if termEnv == "dumb" {
		return false
	}
	return true
}

func colorize(s, style string, lr *LiveRenderer) string {
	if lr.noColor || !lr.supports {
		return s
	}
	switch style {
	case "fg=green":
		return "\x1b[32m" + s + "\x1b[0m"
	case "fg=yellow":
		return "\x1b[33m" + s + "\x1b[0m"
	case "fg=red":
		return "\x1b[31m" + s + "\x1b[0m"
	case "fg=blue":
		return "\x1b[34m" + s + "\x1b[0m"
	case "fg=magenta":
		return "\x1b[35m" + s + "\x1b[0m"
	case "fg=cyan":
		return "\x1b[36m" + s + "\x1b[0m"
	default:
		return s
	}
}

func bold(s string) string { return "\x1b[1m" + s + "\x1b[0m" }
func dim(s string) string  { return "\x1b[2m" + s + "\x1b[0m" }
