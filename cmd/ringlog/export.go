package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avoronov/ringlog/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		server     string
		formatStr  string
		outPath    string
		compress   bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Drain records to parquet, CSV, or JSONL",
		Long:  "Export drains all pending records from the collector and writes them to a file for ingestion into analytics systems (DuckDB, pandas, BigQuery, etc.).",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(server, formatStr, outPath, compress, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "collector base URL")
	cmd.Flags().StringVar(&formatStr, "format", "", "output format: parquet, csv, jsonl (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "output file path (required)")
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress JSONL output")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output summary as JSON")
	_ = cmd.MarkFlagRequired("format")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runExport(server, formatStr, outPath string, compress, jsonOutput bool) error {
	format, err := parseExportFormat(formatStr)
	if err != nil {
		return err
	}

	ctx, cancel := clusterContext()
	defer cancel()

	recs, err := drainRecords(ctx, server)
	if err != nil {
		return err
	}

	opts := export.Options{Compress: compress}
	if err := export.Export(outPath, format, opts, recs); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return nil
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"format":  formatStr,
			"output":  outPath,
			"records": len(recs),
			"bytes":   info.Size(),
		})
	}

	fmt.Fprintf(os.Stderr, "Exported %d records -> %s (%d bytes)\n", len(recs), outPath, info.Size())
	return nil
}

func parseExportFormat(s string) (export.Format, error) {
	switch s {
	case "parquet":
		return export.FormatParquet, nil
	case "csv":
		return export.FormatCSV, nil
	case "jsonl":
		return export.FormatJSONL, nil
	default:
		return "", fmt.Errorf("unsupported format %q: expected parquet, csv, or jsonl", s)
	}
}
