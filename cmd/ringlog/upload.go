package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/avoronov/ringlog/internal/cloud"
	"github.com/avoronov/ringlog/internal/export"
)

func newUploadCmd() *cobra.Command {
	var (
		server    string
		to        string
		formatStr string
		compress  bool
		shareStr  string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload records to cloud storage",
		Long: `Upload copies an exported file to S3 or GCS. With no file argument it
drains the collector and uploads the records directly in the chosen format.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return fmt.Errorf("--to is required")
			}
			var share time.Duration
			if shareStr != "" {
				var err error
				share, err = time.ParseDuration(shareStr)
				if err != nil {
					return fmt.Errorf("invalid --share: %w", err)
				}
			}
			if len(args) == 1 {
				return runUploadFile(args[0], to, share, jsonOut)
			}
			return runUploadDrain(server, to, formatStr, compress, share, jsonOut)
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "collector base URL (drain mode)")
	cmd.Flags().StringVar(&to, "to", "", "destination URL (s3://bucket/prefix or gs://bucket/prefix)")
	cmd.Flags().StringVar(&formatStr, "format", "jsonl", "format for drain mode: parquet, csv, jsonl")
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress JSONL output (drain mode)")
	cmd.Flags().StringVar(&shareStr, "share", "", "print a presigned URL valid for this duration (e.g. 1h)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output summary as JSON")

	return cmd
}

func runUploadFile(file, toURL string, share time.Duration, jsonOut bool) error {
	scheme, bucket, prefix, err := cloud.ParseURL(toURL)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	ctx, cancel := clusterContext()
	defer cancel()

	backend, err := cloud.NewBackend(ctx, scheme, bucket)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", scheme, err)
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	key := path.Join(prefix, filepath.Base(file))
	if err := backend.Upload(ctx, key, f, info.Size()); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	return reportUpload(ctx, backend, toURL, key, info.Size(), share, jsonOut)
}

func runUploadDrain(server, toURL, formatStr string, compress bool, share time.Duration, jsonOut bool) error {
	format, err := parseExportFormat(formatStr)
	if err != nil {
		return err
	}

	scheme, bucket, prefix, err := cloud.ParseURL(toURL)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	ctx, cancel := clusterContext()
	defer cancel()

	backend, err := cloud.NewBackend(ctx, scheme, bucket)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", scheme, err)
	}

	recs, err := drainRecords(ctx, server)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no pending records")
		return nil
	}

	uploader := cloud.NewUploader(backend, prefix)
	key, err := uploader.UploadRecords(ctx, recs, format, export.Options{Compress: compress})
	if err != nil {
		return fmt.Errorf("upload records: %w", err)
	}

	return reportUpload(ctx, backend, toURL, key, 0, share, jsonOut)
}

func reportUpload(ctx context.Context, backend cloud.Backend, toURL, key string, size int64, share time.Duration, jsonOut bool) error {
	var shareURL string
	if share > 0 {
		var err error
		shareURL, err = backend.ShareURL(ctx, key, share)
		if err != nil {
			return fmt.Errorf("presign %s: %w", key, err)
		}
	}

	if jsonOut {
		out := map[string]any{
			"destination": toURL,
			"key":         key,
		}
		if size > 0 {
			out["bytes"] = size
		}
		if shareURL != "" {
			out["share_url"] = shareURL
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Fprintf(os.Stderr, "Uploaded: %s (key %s)\n", toURL, key)
	if shareURL != "" {
		fmt.Fprintf(os.Stdout, "%s\n", shareURL)
	}
	return nil
}
