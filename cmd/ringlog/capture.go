package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/avoronov/ringlog/internal/cli"
	"github.com/avoronov/ringlog/internal/logrec"
	"github.com/avoronov/ringlog/internal/push"
	"github.com/avoronov/ringlog/internal/severity"
)

func newCaptureCmd() *cobra.Command {
	var (
		server string
		level  string
		errno  int32
		detail string
		hint   string
	)

	cmd := &cobra.Command{
		Use:   "capture <message>",
		Short: "Send one log event to a collector",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := severity.Code(level); err != nil {
				return cli.NewUsageError(err.Error())
			}

			ev := logrec.Event{
				Level:   level,
				Errno:   errno,
				Message: strings.Join(args, " "),
				Detail:  detail,
				Hint:    hint,
			}

			ctx, cancel := clusterContext()
			defer cancel()

			pusher := push.NewPusher(server)
			if err := pusher.Push(ctx, []logrec.Event{ev}); err != nil {
				return cli.NewNetworkError(err.Error())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "collector base URL")
	cmd.Flags().StringVar(&level, "level", "log", "severity level name")
	cmd.Flags().Int32Var(&errno, "errno", 0, "errno to attach to the event")
	cmd.Flags().StringVar(&detail, "detail", "", "optional detail text")
	cmd.Flags().StringVar(&hint, "hint", "", "optional hint text")

	return cmd
}
