package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func newDrainCmd() *cobra.Command {
	var (
		server     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Fetch and print pending records",
		Long:  "Drain consumes all pending records from the collector. Records are removed from the buffer once fetched.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrain(server, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "collector base URL")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output records as JSON lines")

	return cmd
}

func runDrain(server string, jsonOutput bool) error {
	ctx, cancel := clusterContext()
	defer cancel()

	recs, err := drainRecords(ctx, server)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		for _, rec := range recs {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}

	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no pending records")
		return nil
	}
	for _, rec := range recs {
		printRecord(os.Stdout, rec)
	}
	fmt.Fprintf(os.Stderr, "%d records drained\n", len(recs))
	return nil
}

func newResetCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard all pending records",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := clusterContext()
			defer cancel()

			resp, err := doServer(ctx, http.MethodPost, server, resetPath)
			if err != nil {
				return err
			}
			_ = resp.Body.Close()
			fmt.Fprintln(os.Stderr, "buffer reset")
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "collector base URL")

	return cmd
}
