package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/avoronov/ringlog/internal/cli"
	"github.com/avoronov/ringlog/internal/collect"
)

func newStatusCmd() *cobra.Command {
	var (
		server     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show collector buffer occupancy and counters",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(server, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "collector base URL")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runStatus(server string, jsonOutput bool) error {
	ctx, cancel := clusterContext()
	defer cancel()

	resp, err := doServer(ctx, http.MethodGet, server, statusPath)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var st collect.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return cli.NewInternalError(fmt.Sprintf("decode status: %v", err))
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	pct := 0.0
	if st.CapacityBytes > 0 {
		pct = float64(st.UsedBytes) / float64(st.CapacityBytes) * 100
	}
	fmt.Fprintf(os.Stderr, "Buffer:    %d / %d bytes (%.1f%%)\n", st.UsedBytes, st.CapacityBytes, pct)
	fmt.Fprintf(os.Stderr, "Min level: %s\n", st.MinLevel)
	fmt.Fprintf(os.Stderr, "Captured:  %d\n", st.Counters.Captured)
	fmt.Fprintf(os.Stderr, "Rejected:  %d\n", st.Counters.Rejected)
	fmt.Fprintf(os.Stderr, "Truncated: %d\n", st.Counters.Truncated)
	fmt.Fprintf(os.Stderr, "Drained:   %d (%d drains)\n", st.Counters.Drained, st.Counters.Drains)
	fmt.Fprintf(os.Stderr, "Resets:    %d\n", st.Counters.Resets)
	if len(st.Counters.ByLevel) > 0 {
		fmt.Fprintln(os.Stderr, "By level:")
		for _, lc := range st.Counters.ByLevel {
			fmt.Fprintf(os.Stderr, "  %-10s %d\n", lc.Level, lc.Count)
		}
	}
	return nil
}
