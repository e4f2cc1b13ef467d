// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/dotandev/wasmdbg/internal/debugger"
	"github.com/dotandev/wasmdbg/internal/errors"
	"github.com/dotandev/wasmdbg/internal/localization"
	"github.com/dotandev/wasmdbg/internal/profile"
	"github.com/dotandev/wasmdbg/internal/visualizer"
	"github.com/spf13/cobra"
)

var (
	profileOutput     string
	profileFlamegraph bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <module.wasm>",
	Short: localization.Get("cli.profile.short"),
	Long: `profile loads the given .wasm file, steps it to termination, and converts
the recorded sequence of instructions into a pprof-compliant profile. The
profile can be inspected with 'go tool pprof' (flat/cum views, flame graphs).

With --flamegraph, wasmdbg additionally shells out to 'go tool pprof -svg'
and injects a dark-mode-aware <style> block into the resulting SVG.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVarP(&profileOutput, "output", "o", "profile.pb.gz", "pprof profile output path")
	profileCmd.Flags().BoolVar(&profileFlamegraph, "flamegraph", false, "also render a dark-mode-aware flamegraph SVG (requires 'go tool pprof')")
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	path := args[0]
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapConfigError(localization.Translate("error.read_module", path), err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbg, err := debugger.Load(ctx, wasmBytes)
	if err != nil {
		return err
	}
	defer dbg.Close()

	var steps []debugger.StepResult
	res, err := dbg.Run()
	if err != nil {
		return err
	}
	steps = append(steps, res)
	for res.State != debugger.Terminated {
		res, err = dbg.Step()
		if err != nil {
			return err
		}
		steps = append(steps, res)
	}

	out, err := os.Create(profileOutput)
	if err != nil {
		return errors.WrapConfigError("cannot create profile output", err)
	}
	defer out.Close()

	if err := profile.WritePprof(steps, path, out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s wrote pprof profile to %s (%d samples)\n", visualizer.Success(), profileOutput, len(steps))

	if profileFlamegraph {
		svgPath := profileOutput + ".svg"
		pprofCmd := exec.CommandContext(ctx, "go", "tool", "pprof", "-svg", "-output", svgPath, profileOutput)
		pprofCmd.Stderr = os.Stderr
		if err := pprofCmd.Run(); err != nil {
			return errors.WrapConfigError("go tool pprof -svg failed; ensure graphviz's 'dot' is installed", err)
		}
		svgBytes, err := os.ReadFile(svgPath)
		if err != nil {
			return errors.WrapConfigError("cannot read generated flamegraph SVG", err)
		}
		darkened := visualizer.InjectDarkMode(string(svgBytes))
		if err := os.WriteFile(svgPath, []byte(darkened), 0o644); err != nil {
			return errors.WrapConfigError("cannot write dark-mode flamegraph SVG", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s wrote flamegraph to %s\n", visualizer.Success(), svgPath)
	}

	return nil
}
