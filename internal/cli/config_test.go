// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetchCmd(fc *FetchConfig) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addFetchConfigFlags(cmd, fc)
	return cmd
}

func TestApplyConfigDefaults_NoConfigFile(t *testing.T) {
	ro := &RootOpts{Config: filepath.Join(t.TempDir(), "missing.json")}
	fc := &FetchConfig{}
	cmd := newTestFetchCmd(fc)

	err := applyConfigDefaults(cmd, ro, fc)
	require.NoError(t, err)
	assert.Equal(t, "~/.cache/cachefetch", fc.CacheRoot)
	assert.Equal(t, "dev", fc.DevLabel)
	assert.Equal(t, 3, fc.RetryCount)
	assert.True(t, fc.AllowUpdates)
}

func TestApplyConfigDefaults_JSONFileFillsUnsetFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cachefetch.json")
	content := `{"registry":"reg.txt","cache-root":"/var/cache/x","retries":7,"allow-updates":false}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ro := &RootOpts{Config: path}
	fc := &FetchConfig{}
	cmd := newTestFetchCmd(fc)

	require.NoError(t, applyConfigDefaults(cmd, ro, fc))
	assert.Equal(t, "reg.txt", fc.RegistryPath)
	assert.Equal(t, "/var/cache/x", fc.CacheRoot)
	assert.Equal(t, 7, fc.RetryCount)
	assert.False(t, fc.AllowUpdates)
}

func TestApplyConfigDefaults_ExplicitFlagWinsOverConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cachefetch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cache-root":"/from/config"}`), 0o644))

	ro := &RootOpts{Config: path}
	fc := &FetchConfig{}
	cmd := newTestFetchCmd(fc)
	require.NoError(t, cmd.Flags().Set("cache-root", "/from/flag"))

	require.NoError(t, applyConfigDefaults(cmd, ro, fc))
	assert.Equal(t, "/from/flag", fc.CacheRoot)
}

func TestApplyConfigDefaults_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cachefetch.yaml")
	content := "registry: reg.txt\nbase-url: https://example.org/data/\nversion: 1.2.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ro := &RootOpts{Config: path}
	fc := &FetchConfig{}
	cmd := newTestFetchCmd(fc)

	require.NoError(t, applyConfigDefaults(cmd, ro, fc))
	assert.Equal(t, "reg.txt", fc.RegistryPath)
	assert.Equal(t, "https://example.org/data/", fc.BaseURL)
	assert.Equal(t, "1.2.0", fc.Version)
}
