// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script for your shell",
	Long: `Generate shell completion scripts for wasmdbg commands.

The completion script must be evaluated to provide interactive completion of
wasmdbg commands. This can be done by sourcing it from your shell profile or
piping it to the appropriate location.

Installation instructions:

  Bash:
    $ wasmdbg completion bash > /etc/bash_completion.d/wasmdbg
    $ source ~/.bashrc

  Zsh:
    $ wasmdbg completion zsh > "${fpath[1]}/_wasmdbg"
    # or place in your custom completions directory:
    $ mkdir -p ~/.zsh/completions
    $ wasmdbg completion zsh > ~/.zsh/completions/_wasmdbg
    # then add to your ~/.zshrc: fpath=(~/.zsh/completions $fpath)

  Fish:
    $ wasmdbg completion fish > ~/.config/fish/completions/wasmdbg.fish
    $ source ~/.config/fish/config.fish

  PowerShell:
    PS> wasmdbg completion powershell | Out-String | Invoke-Expression
    # To load completions for every new session, add to your PowerShell profile:
    PS> wasmdbg completion powershell >> $PROFILE

For detailed instructions on setting up completions for your shell, consult your shell's documentation.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := args[0]

		switch shell {
		case "bash":
			return rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unsupported shell type %q. Valid shells: bash, zsh, fish, powershell", shell)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
