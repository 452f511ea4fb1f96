package main

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for plyview.

To load completions:

Bash:

  $ source <(plyview completion bash)

  To load completions for each session, execute once:
  Linux:
    $ plyview completion bash > /etc/bash_completion.d/plyview
  macOS:
    $ plyview completion bash > /usr/local/etc/bash_completion.d/plyview

Zsh:

  If shell completion is not already enabled in your environment,
  you will need to enable it. You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  To load completions for each session, execute once:
  $ plyview completion zsh > "${fpath[1]}/_plyview"

  You will need to start a new shell for this setup to take effect.

Fish:

  $ plyview completion fish | source

  To load completions for each session, execute once:
  $ plyview completion fish > ~/.config/fish/completions/plyview.fish

PowerShell:

  PS> plyview completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		default:
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
