// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cachefetch/cachefetch/internal/tui"
	"github.com/cachefetch/cachefetch/pkg/cachefetch"
)

// addFetchConfigFlags binds the flags every fetch-shaped command shares:
// registry location and the cache descriptor fields. Values are applied
// over the config-file defaults in each command's PreRunE via applyConfigDefaults,
// so a flag the user actually sets always wins.
func addFetchConfigFlags(cmd *cobra.Command, fc *FetchConfig) {
	cmd.Flags().StringVar(&fc.RegistryPath, "registry", "", "path to the registry.txt file")
	cmd.Flags().StringVar(&fc.CacheRoot, "cache-root", "", "cache root directory")
	cmd.Flags().StringVar(&fc.BaseURL, "base-url", "", "base URL, may contain a {version} placeholder")
	cmd.Flags().StringVar(&fc.Version, "version-tag", "", "nominal version string; a '+' marks it a dev version")
	cmd.Flags().StringVar(&fc.DevLabel, "dev-label", "", "label substituted for a dev version")
	cmd.Flags().StringVar(&fc.EnvOverride, "env-override", "", "environment variable that overrides cache-root")
	cmd.Flags().IntVar(&fc.RetryCount, "retries", 0, "additional download attempts after the first")
	cmd.Flags().BoolVar(&fc.AllowUpdates, "allow-updates", false, "re-download a locally mismatched file instead of failing")
}

func newFetchCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	fc := &FetchConfig{}
	var unzip, untar, decompress bool
	var members []string

	cmd := &cobra.Command{
		Use:   "fetch NAME",
		Short: "Resolve, download if needed, verify, and optionally post-process a registered file",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfigDefaults(cmd, ro, fc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher, err := buildFetcher(ro, fc)
			if err != nil {
				return err
			}

			var processor cachefetch.Processor
			switch {
			case unzip:
				processor = cachefetch.NewUnzipProcessor(members, "")
			case untar:
				processor = cachefetch.NewUntarProcessor(members, "")
			case decompress:
				processor = &cachefetch.DecompressProcessor{Method: cachefetch.MethodAuto}
			}

			paths, err := fetcher.Fetch(ctx, args[0], nil, processor)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}

	addFetchConfigFlags(cmd, fc)
	cmd.Flags().BoolVar(&unzip, "unzip", false, "extract the downloaded file as a zip archive")
	cmd.Flags().BoolVar(&untar, "untar", false, "extract the downloaded file as a tar archive (tar, tar.gz, tar.bz2, tar.xz)")
	cmd.Flags().BoolVar(&decompress, "decompress", false, "decompress the downloaded file (gzip, bzip2, xz)")
	cmd.Flags().StringSliceVar(&members, "member", nil, "archive member to extract (repeatable); omit to extract everything")

	return cmd
}

func newGetURLCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	fc := &FetchConfig{}

	cmd := &cobra.Command{
		Use:   "get-url NAME",
		Short: "Print the resolved remote URL for a registered name, without downloading",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfigDefaults(cmd, ro, fc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher, err := buildFetcher(ro, fc)
			if err != nil {
				return err
			}
			fetcher.Progress = nil
			url, err := fetcher.GetURL(args[0])
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}

	addFetchConfigFlags(cmd, fc)
	return cmd
}

func newIsAvailableCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	fc := &FetchConfig{}

	cmd := &cobra.Command{
		Use:   "is-available NAME",
		Short: "Check whether a registered name's remote URL is reachable",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfigDefaults(cmd, ro, fc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher, err := buildFetcher(ro, fc)
			if err != nil {
				return err
			}
			fetcher.Progress = nil
			ok, err := fetcher.IsAvailable(ctx, args[0], nil)
			if err != nil {
				return err
			}
			if ok {
				fmt.Println("available")
				return nil
			}
			fmt.Println("unavailable")
			return fmt.Errorf("not available")
		},
	}

	addFetchConfigFlags(cmd, fc)
	return cmd
}

func newRetrieveCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var cachePath, appName, filename string

	cmd := &cobra.Command{
		Use:   "retrieve URL HASH",
		Short: "Download a single ad hoc (url, hash) pair without a registry file",
		Long: `retrieve downloads url, verifies it against hash ("algorithm:digest",
a bare hex digest, or "unknown" to skip verification), and prints the
cached local path. Useful for one-off files outside a maintained registry.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cachefetch.RetrieveOptions{
				Filename:  filename,
				CachePath: cachePath,
				AppName:   appName,
				Logger:    cliLogger(ro),
			}
			switch {
			case ro.JSONOut:
				opts.Progress = jsonProgress(cmd.OutOrStdout())
			case !ro.Quiet:
				bar := tui.NewBarProgressDisplay(args[0])
				defer bar.Close()
				opts.Display = bar
			}

			paths, err := cachefetch.Retrieve(ctx, args[0], args[1], opts)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cachePath, "cache-path", "", "cache directory (defaults to the per-OS user cache dir)")
	cmd.Flags().StringVar(&appName, "app-name", "", "subdirectory name under the default cache dir (default \"cachefetch\")")
	cmd.Flags().StringVar(&filename, "filename", "", "override the derived local filename")

	return cmd
}
