// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cachefetch/cachefetch/internal/tui"
	"github.com/cachefetch/cachefetch/pkg/cachefetch"
)

// RootOpts holds global CLI options.
type RootOpts struct {
	Token    string
	JSONOut  bool
	Quiet    bool
	Verbose  bool
	Config   string
	LogFile  string
	LogLevel string
}

// Execute runs the CLI with the given version string.
func Execute(version string) error {
	ro := &RootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "cachefetch",
		Short:         "Fetch and cache versioned data files, verified by content hash",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	// Global flags
	root.PersistentFlags().StringVarP(&ro.Token, "token", "t", "", "credential token for authenticated transports (also reads CACHEFETCH_TOKEN env)")
	root.PersistentFlags().BoolVar(&ro.JSONOut, "json", false, "emit machine-readable JSON events (progress, results)")
	root.PersistentFlags().BoolVarP(&ro.Quiet, "quiet", "q", false, "quiet mode (minimal logs, no TUI)")
	root.PersistentFlags().BoolVarP(&ro.Verbose, "verbose", "v", false, "verbose logs (debug details)")
	root.PersistentFlags().StringVar(&ro.Config, "config", "", "path to config file (JSON or YAML)")
	root.PersistentFlags().StringVar(&ro.LogFile, "log-file", "", "write logs to file (in addition to stderr)")
	root.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(newFetchCmd(ctx, ro))
	root.AddCommand(newGetURLCmd(ctx, ro))
	root.AddCommand(newIsAvailableCmd(ctx, ro))
	root.AddCommand(newRetrieveCmd(ctx, ro))
	root.AddCommand(newRegistryCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd(version))
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func resolveToken(ro *RootOpts) string {
	tok := strings.TrimSpace(ro.Token)
	if tok == "" {
		tok = strings.TrimSpace(os.Getenv("CACHEFETCH_TOKEN"))
	}
	return tok
}

// buildFetcher loads the configured registry and constructs a Fetcher,
// wiring progress/logging per the selected output mode. fc must already
// have config-file and flag precedence applied (see applyConfigDefaults).
func buildFetcher(ro *RootOpts, fc *FetchConfig) (*cachefetch.Fetcher, error) {
	reg, err := loadRegistryFile(fc.RegistryPath)
	if err != nil {
		return nil, err
	}

	desc := cachefetch.CacheDescriptor{
		CacheRoot:    fc.CacheRoot,
		BaseURL:      fc.BaseURL,
		Version:      fc.Version,
		DevLabel:     fc.DevLabel,
		EnvOverride:  fc.EnvOverride,
		RetryCount:   fc.RetryCount,
		AllowUpdates: fc.AllowUpdates,
	}

	fetcher := cachefetch.NewFetcher(reg, desc)
	fetcher.Logger = cliLogger(ro)

	if tok := resolveToken(ro); tok != "" {
		fetcher.TransportOptions.Credentials = func(string) (string, string, bool) {
			return tok, "", true
		}
	}

	if ro.JSONOut {
		fetcher.Progress = jsonProgress(os.Stdout)
	} else if !ro.Quiet {
		ui := tui.NewLiveRenderer(fc.RegistryPath)
		fetcher.Progress = ui.Handler()
	} else {
		fetcher.TransportOptions.Progress = tui.NewBarProgressDisplay(fc.RegistryPath)
	}

	return fetcher, nil
}

func loadRegistryFile(path string) (*cachefetch.Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("no registry file configured; pass --registry or set \"registry\" in the config file")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening registry %s: %w", path, err)
	}
	defer f.Close()
	return cachefetch.LoadRegistry(f, path)
}

func cliLogger(ro *RootOpts) cachefetch.Logger {
	if ro.Quiet {
		return cachefetch.NopLogger
	}
	return cachefetch.LoggerFunc(func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
}

// jsonProgress returns a JSON-lines progress handler.
func jsonProgress(w io.Writer) cachefetch.ProgressFunc {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var mu sync.Mutex
	return func(ev cachefetch.Event) {
		mu.Lock()
		_ = enc.Encode(ev)
		mu.Unlock()
	}
}
