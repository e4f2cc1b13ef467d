// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// CommitSHA is the git commit the binary was built from, overridden at
// build time via -ldflags.
var CommitSHA = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the wasmdbg version and build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "wasmdbg %s (commit %s, %s)\n", Version, CommitSHA, runtime.Version())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
