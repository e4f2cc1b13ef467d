// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dotandev/wasmdbg/internal/config"
	"github.com/dotandev/wasmdbg/internal/debugger"
	"github.com/dotandev/wasmdbg/internal/errors"
	"github.com/dotandev/wasmdbg/internal/localization"
	"github.com/dotandev/wasmdbg/internal/shell"
	"github.com/dotandev/wasmdbg/internal/shutdown"
	"github.com/dotandev/wasmdbg/internal/telemetry"
	"github.com/spf13/cobra"
)

var debugBreakpoints []string

var debugCmd = &cobra.Command{
	Use:   "debug <module.wasm>",
	Short: localization.Get("cli.debug.short"),
	Long: `debug loads the given .wasm file, extracts its structural sections and
any embedded DWARF debug information, instantiates it inside an embedded
WebAssembly runtime, and drops into an interactive REPL supporting:

  break <function>         set a breakpoint
  run                      run the init sequence and enter the state machine
  step                     advance one instruction
  continue                 run until the next breakpoint
  print <name>             inspect a global or DWARF-backed variable
  memdump <name> [length]  hexdump memory at a symbol's address
  symbols [query]          list functions and globals
  disassemble <function>   show a function's annotated instruction listing
  quit                     end the session`,
	Args: cobra.ExactArgs(1),
	RunE: runDebug,
}

func init() {
	debugCmd.Flags().StringSliceVarP(&debugBreakpoints, "break", "b", nil, localization.Get("cli.debug.flag.break"))
	rootCmd.AddCommand(debugCmd)
}

func runDebug(cmd *cobra.Command, args []string) error {
	path := args[0]
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapConfigError(localization.Translate("error.read_module", path), err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	cleanupTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.TelemetryEnabled,
		ExporterURL: cfg.TelemetryExporterURL,
		ServiceName: "wasmdbg",
	})
	if err != nil {
		return errors.WrapConfigError("failed to initialize telemetry", err)
	}

	sd := shutdown.NewCoordinator()
	sd.Register("telemetry", func(context.Context) error {
		cleanupTelemetry()
		return nil
	})
	defer sd.Run(ctx)

	dbg, err := debugger.Load(ctx, wasmBytes)
	if err != nil {
		return err
	}
	sd.Register("debugger", func(context.Context) error { return dbg.Close() })

	for _, name := range debugBreakpoints {
		dbg.Break(name)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, localization.Translate("repl.loaded", path))

	session := shell.NewSession(dbg, out)
	return session.Run(cmd.InOrStdin())
}
