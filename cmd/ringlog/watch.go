package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/avoronov/ringlog/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		server   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard for a running collector",
		Long:  "Watch polls the collector status endpoint and renders buffer occupancy, capture rates, and per-level counts.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			model := watch.NewModel(watch.NewStatusFunc(server), server, interval)
			p := tea.NewProgram(model, tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("TUI: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "collector base URL")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")

	return cmd
}
