package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:9280"

// clusterContext returns a context with the configured timeout for cluster
// operations. The caller must call cancel when done.
func clusterContext() (context.Context, context.CancelFunc) {
	timeout := defaultTimeout

	// Flag overrides config
	if timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil {
			timeout = d
		}
	} else if cfg != nil && cfg.Defaults.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Defaults.Timeout); err == nil {
			timeout = d
		}
	}

	return context.WithTimeout(context.Background(), timeout)
}

// applyConfigDefaults sets flag values from config when the flag
// was not explicitly set on the command line. Flags > env > config > defaults.
// The config package already handles env > config, so we just need to
// check if the flag was changed and apply config if not.
func applyConfigDefaults(cmd *cobra.Command) {
	if cfg == nil {
		return
	}

	setDefault := func(name, value string) {
		if value != "" && !cmd.Flags().Changed(name) {
			if f := cmd.Flags().Lookup(name); f != nil {
				_ = f.Value.Set(value)
			}
		}
	}

	// serve defaults
	setDefault("addr", cfg.Serve.Addr)
	setDefault("audit-log", cfg.Serve.AuditLog)
	setDefault("kafka-brokers", cfg.Serve.Kafka)
	setDefault("kafka-topic", cfg.Serve.Topic)

	// buffer defaults
	setDefault("buffer-size", cfg.Buffer.Size)
	setDefault("min-level", cfg.Buffer.MinLevel)
	if cfg.Buffer.Check && !cmd.Flags().Changed("check-integrity") {
		if f := cmd.Flags().Lookup("check-integrity"); f != nil {
			_ = f.Value.Set("true")
		}
	}

	// client defaults
	setDefault("server", cfg.Defaults.Server)

	// deploy defaults
	setDefault("namespace", cfg.Deploy.Namespace)
	setDefault("image", cfg.Deploy.Image)
	setDefault("cpu", cfg.Deploy.CPU)
	setDefault("memory", cfg.Deploy.Memory)
}
