// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/dotandev/wasmdbg/internal/localization"
	"github.com/dotandev/wasmdbg/internal/updater"
	"github.com/dotandev/wasmdbg/internal/visualizer"
	"github.com/spf13/cobra"
)

var themeFlag string
var langFlag string

// Version is the CLI's semantic version, overridden at build time via
// -ldflags "-X github.com/dotandev/wasmdbg/internal/cmd.Version=...".
var Version = "dev"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wasmdbg",
	Short: localization.Get("cli.root.short"),
	Long: `wasmdbg loads a WebAssembly module, decodes its structural sections,
extracts DWARF debug information embedded in custom sections, instantiates
the module inside an embedded execution engine, and exposes a source-level
debugging interface: breakpoints, stepping, variable inspection, memory
dumps, and disassembly correlated with source lines.

Examples:
  wasmdbg debug ./contract.wasm       Start an interactive debug session
  wasmdbg cache status                Check the on-disk analysis cache
  wasmdbg version                     Show build information

Get started with 'wasmdbg debug --help'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := localization.LoadTranslations(); err != nil {
			return err
		}
		if langFlag != "" {
			if err := localization.SetLanguage(localization.Language(langFlag)); err != nil {
				return err
			}
		}
		if themeFlag != "" {
			visualizer.SetTheme(visualizer.Theme(themeFlag))
		} else {
			visualizer.SetTheme(visualizer.DetectTheme())
		}
		checkForUpdatesAsync()
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&themeFlag, "theme", "",
		"color theme: default, deuteranopia, protanopia, tritanopia, high-contrast")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "",
		"output language: en, es, zh (defaults to WASMDBG_LANG, then en)")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main() exactly once.
func Execute() error {
	return rootCmd.Execute()
}

// checkForUpdatesAsync runs the update check in a goroutine so it never
// blocks CLI startup; failures are swallowed by the checker itself.
func checkForUpdatesAsync() {
	go func() {
		checker := updater.NewChecker(Version)
		checker.CheckForUpdates()
	}()
}
