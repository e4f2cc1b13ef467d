// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/dotandev/wasmdbg/internal/cmd"
	"github.com/dotandev/wasmdbg/internal/config"
	"github.com/dotandev/wasmdbg/internal/crashreport"
)

// Build-time variables injected via -ldflags.
var (
	version   = "dev"
	commitSHA = "unknown"
)

// run executes the CLI and returns the process exit code. Extracted from
// main so tests can drive it without calling os.Exit.
func run(execute func() error, stderr io.Writer) int {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		// Non-fatal: fall back to a reporter that is disabled by default.
		cfg = config.DefaultConfig()
	}

	reporter := crashreport.New(crashreport.Config{
		Enabled:   cfg.CrashReporting,
		SentryDSN: cfg.CrashSentryDSN,
		Endpoint:  cfg.CrashEndpoint,
		Version:   version,
		CommitSHA: commitSHA,
	})
	defer reporter.HandlePanic(ctx, "wasmdbg")

	execErr := execute()
	if execErr == nil {
		return 0
	}

	if cmd.IsInterrupted(execErr) {
		fmt.Fprintln(stderr, "Interrupted. Shutting down...")
		return cmd.InterruptExitCode
	}

	if reporter.IsEnabled() {
		stack := debug.Stack()
		_ = reporter.Send(ctx, execErr, stack, "wasmdbg")
	}
	fmt.Fprintf(stderr, "Error: %v\n", execErr)
	return 1
}

func main() {
	cmd.Version = version
	cmd.CommitSHA = commitSHA
	os.Exit(run(cmd.Execute, os.Stderr))
}
