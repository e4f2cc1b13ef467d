// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dotandev/wasmdbg/internal/cache"
	"github.com/dotandev/wasmdbg/internal/localization"
	"github.com/spf13/cobra"
)

var cacheForce bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: localization.Get("cli.cache.short"),
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cache directory, size and file count",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := cacheManager()
		if err != nil {
			return err
		}
		dir, err := mgr.GetCacheDir()
		if err != nil {
			return err
		}
		size, err := mgr.GetCacheSize()
		if err != nil {
			return err
		}
		files, err := mgr.ListCachedFiles()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cache dir:  %s\ncache size: %d bytes\nfiles:      %d\n", dir, size, len(files))
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Evict least-recently-used cache entries down to half the configured size limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := cacheManager()
		if err != nil {
			return err
		}
		status, err := mgr.Clean(cacheForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d files, freed %d bytes (%d -> %d)\n",
			status.FilesDeleted, status.SpaceFreed, status.OriginalSize, status.FinalSize)
		return nil
	},
}

func init() {
	cacheCleanCmd.Flags().BoolVar(&cacheForce, "force", false, "skip the confirmation prompt")
	cacheCmd.AddCommand(cacheStatusCmd, cacheCleanCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cacheManager() (*cache.Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".cache", "wasmdbg")
	return cache.NewManager(dir, cache.DefaultConfig()), nil
}
