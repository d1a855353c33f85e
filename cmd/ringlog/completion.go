package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for ringlog.

To load completions:

Bash:
  $ source <(ringlog completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ ringlog completion bash > /etc/bash_completion.d/ringlog
  # macOS:
  $ ringlog completion bash > $(brew --prefix)/etc/bash_completion.d/ringlog

Zsh:
  $ source <(ringlog completion zsh)
  # To load completions for each session, execute once:
  $ ringlog completion zsh > "${fpath[1]}/_ringlog"

Fish:
  $ ringlog completion fish | source
  # To load completions for each session, execute once:
  $ ringlog completion fish > ~/.config/fish/completions/ringlog.fish
`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			}
			return nil
		},
	}

	return cmd
}
