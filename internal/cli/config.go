// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// FetchConfig holds the cache descriptor and registry location a fetch
// command resolves from flags, config file, and built-in defaults, in that
// precedence order (flags win, then config file, then built-in defaults).
type FetchConfig struct {
	RegistryPath string
	CacheRoot    string
	BaseURL      string
	Version      string
	DevLabel     string
	EnvOverride  string
	RetryCount   int
	AllowUpdates bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() map[string]any {
	return map[string]any{
		"registry":      "registry.txt",
		"cache-root":    "~/.cache/cachefetch",
		"base-url":      "",
		"version":       "",
		"dev-label":     "dev",
		"env-override":  "CACHEFETCH_DATA_DIR",
		"retries":       3,
		"allow-updates": true,
		"token":         "",
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func defaultConfigPath(ext string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find home directory: %w", err)
	}
	return filepath.Join(home, ".config", "cachefetch"+ext), nil
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		useYAML bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Long: `Creates a default configuration file at ~/.config/cachefetch.json (or .yaml)

The configuration file sets default values for cache root, base URL,
version, and registry path. CLI flags always override config file values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ext := ".json"
			if useYAML {
				ext = ".yaml"
			}
			configPath, err := defaultConfigPath(ext)
			if err != nil {
				return err
			}
			configDir := filepath.Dir(configPath)

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
			}

			if err := os.MkdirAll(configDir, 0o755); err != nil {
				return fmt.Errorf("could not create config directory: %w", err)
			}

			cfg := DefaultConfig()
			var data []byte
			if useYAML {
				data, err = yaml.Marshal(cfg)
			} else {
				data, err = json.MarshalIndent(cfg, "", "  ")
			}
			if err != nil {
				return err
			}

			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return fmt.Errorf("could not write config file: %w", err)
			}

			fmt.Printf("Created config file: %s\n", configPath)
			fmt.Println()
			fmt.Println("Edit this file to set your defaults. For example:")
			fmt.Println("  - Point \"registry\" at your registry.txt")
			fmt.Println("  - Set \"base-url\" and \"version\"")
			fmt.Println("  - Adjust \"cache-root\" and \"retries\"")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing config file")
	cmd.Flags().BoolVar(&useYAML, "yaml", false, "create YAML config instead of JSON")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := defaultConfigPath(".json")
			if err != nil {
				return err
			}

			if _, err := os.Stat(configPath); err != nil {
				fmt.Println("No config file found.")
				fmt.Printf("Run 'cachefetch config init' to create one at:\n  %s\n", configPath)
				return nil
			}

			data, err := os.ReadFile(configPath)
			if err != nil {
				return err
			}

			fmt.Printf("Config file: %s\n\n", configPath)
			fmt.Println(string(data))

			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := defaultConfigPath(".json")
			if err != nil {
				return err
			}
			fmt.Println(configPath)
			return nil
		},
	}
}

// builtinFetchDefaults are applied to a field only when neither a flag nor
// the config file set it.
var builtinFetchDefaults = FetchConfig{
	CacheRoot:    "~/.cache/cachefetch",
	DevLabel:     "dev",
	EnvOverride:  "CACHEFETCH_DATA_DIR",
	RetryCount:   3,
	AllowUpdates: true,
}

// applyConfigDefaults loads the config file (explicit --config, or the
// default ~/.config/cachefetch.{json,yaml,yml}; a file that does not exist
// is treated as no config file), filling dst from it for
// every flag the caller did not explicitly set, then falls back to
// builtinFetchDefaults for whatever neither a flag nor the config file
// provided. Precedence: flag > config file > built-in default.
func applyConfigDefaults(cmd *cobra.Command, ro *RootOpts, dst *FetchConfig) error {
	allowUpdatesSet := cmd.Flags().Changed("allow-updates")
	retriesSet := cmd.Flags().Changed("retries")

	defer func() {
		if dst.CacheRoot == "" {
			dst.CacheRoot = builtinFetchDefaults.CacheRoot
		}
		if dst.DevLabel == "" {
			dst.DevLabel = builtinFetchDefaults.DevLabel
		}
		if dst.EnvOverride == "" {
			dst.EnvOverride = builtinFetchDefaults.EnvOverride
		}
		if !retriesSet {
			dst.RetryCount = builtinFetchDefaults.RetryCount
		}
		if !allowUpdatesSet {
			dst.AllowUpdates = builtinFetchDefaults.AllowUpdates
		}
	}()

	path := ro.Config
	if path == "" {
		home, _ := os.UserHomeDir()
		jsonPath := filepath.Join(home, ".config", "cachefetch.json")
		yamlPath := filepath.Join(home, ".config", "cachefetch.yaml")
		ymlPath := filepath.Join(home, ".config", "cachefetch.yml")

		if _, err := os.Stat(jsonPath); err == nil {
			path = jsonPath
		} else if _, err := os.Stat(yamlPath); err == nil {
			path = yamlPath
		} else if _, err := os.Stat(ymlPath); err == nil {
			path = ymlPath
		}
	}
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var cfg map[string]any
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("invalid YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("invalid JSON config file: %w", err)
		}
	}

	setStr := func(flagName string, set func(string)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			set(fmt.Sprint(v))
		}
	}
	setInt := func(flagName string, set func(int)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			var x int
			fmt.Sscan(fmt.Sprint(v), &x)
			set(x)
		}
	}
	setBool := func(flagName string, set func(bool)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			set(strings.EqualFold(fmt.Sprint(v), "true"))
		}
	}

	setStr("registry", func(v string) { dst.RegistryPath = v })
	setStr("cache-root", func(v string) { dst.CacheRoot = v })
	setStr("base-url", func(v string) { dst.BaseURL = v })
	if !cmd.Flags().Changed("version-tag") {
		setStr("version", func(v string) { dst.Version = v })
	}
	setStr("dev-label", func(v string) { dst.DevLabel = v })
	setStr("env-override", func(v string) { dst.EnvOverride = v })
	if _, ok := cfg["retries"]; ok {
		setInt("retries", func(v int) { dst.RetryCount = v; retriesSet = true })
	}
	if _, ok := cfg["allow-updates"]; ok {
		setBool("allow-updates", func(v bool) { dst.AllowUpdates = v; allowUpdatesSet = true })
	}

	if !cmd.Flags().Changed("token") && os.Getenv("CACHEFETCH_TOKEN") == "" {
		if v, ok := cfg["token"]; ok && v != nil {
			ro.Token = fmt.Sprint(v)
		}
	}

	return nil
}
