// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cachefetch/cachefetch/pkg/cachefetch"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and generate registry files",
	}

	cmd.AddCommand(newRegistryListCmd())
	cmd.AddCommand(newRegistryDumpCmd())
	cmd.AddCommand(newRegistryGenerateCmd())

	return cmd
}

func newRegistryListCmd() *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the names registered in a registry file",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistryFile(registryPath)
			if err != nil {
				return err
			}
			for _, name := range reg.ListNames() {
				fmt.Println(name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "registry.txt", "path to the registry.txt file")
	return cmd
}

func newRegistryDumpCmd() *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Re-serialize a registry file in canonical form",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistryFile(registryPath)
			if err != nil {
				return err
			}
			return reg.Dump(os.Stdout)
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "registry.txt", "path to the registry.txt file")
	return cmd
}

func newRegistryGenerateCmd() *cobra.Command {
	var algorithm, output string

	cmd := &cobra.Command{
		Use:   "generate DIR",
		Short: "Hash every file under DIR and write a registry file covering them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := cachefetch.GenerateRegistry(args[0], algorithm)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return reg.Dump(os.Stdout)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			return reg.Dump(f)
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", cachefetch.DefaultAlgorithm, "hash algorithm to use")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output path, or \"-\" for stdout")
	return cmd
}
