package main

import (
	"context"
	"fmt"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avoronov/ringlog/internal/collect"
	"github.com/avoronov/ringlog/internal/forward"
	"github.com/avoronov/ringlog/internal/redact"
	"github.com/avoronov/ringlog/internal/ring"
	"github.com/avoronov/ringlog/internal/serve"
	"github.com/avoronov/ringlog/internal/severity"
)

func newServeCmd() *cobra.Command {
	var (
		addr            string
		bufSizeStr      string
		minLevelStr     string
		checkIntegrity  bool
		auditLog        string
		kafkaBrokers    string
		kafkaTopic      string
		forwardInterval time.Duration
		tlsCert         string
		tlsKey          string
		redactSpec      string
		redactFile      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the log collector",
		Long:  "Accept log events over HTTP, hold them in a fixed-size ring buffer, and serve drain, reset, and status endpoints.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(serveOpts{
				addr:            addr,
				bufSize:         bufSizeStr,
				minLevel:        minLevelStr,
				checkIntegrity:  checkIntegrity,
				auditLog:        auditLog,
				kafkaBrokers:    kafkaBrokers,
				kafkaTopic:      kafkaTopic,
				forwardInterval: forwardInterval,
				tlsCert:         tlsCert,
				tlsKey:          tlsKey,
				redactSpec:      redactSpec,
				redactFile:      redactFile,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9280", "address to listen on")
	cmd.Flags().StringVar(&bufSizeStr, "buffer-size", "1MB", "ring buffer capacity")
	cmd.Flags().StringVar(&minLevelStr, "min-level", "debug5", "minimum severity to capture")
	cmd.Flags().BoolVar(&checkIntegrity, "check-integrity", false, "validate frame markers during drain")
	cmd.Flags().StringVar(&auditLog, "audit-log", "", "JSONL audit trail file path")
	cmd.Flags().StringVar(&kafkaBrokers, "kafka-brokers", "", "comma-separated Kafka brokers for forwarding")
	cmd.Flags().StringVar(&kafkaTopic, "kafka-topic", "ringlog.records", "Kafka topic for forwarded records")
	cmd.Flags().DurationVar(&forwardInterval, "forward-interval", 10*time.Second, "how often to drain into Kafka")
	cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "TLS certificate file")
	cmd.Flags().StringVar(&tlsKey, "tls-key", "", "TLS key file")
	cmd.Flags().StringVar(&redactSpec, "redact", "", "mask sensitive values: 'true' for all patterns or a comma-separated subset")
	cmd.Flags().StringVar(&redactFile, "redact-patterns", "", "YAML file with additional redaction patterns")

	return cmd
}

type serveOpts struct {
	addr            string
	bufSize         string
	minLevel        string
	checkIntegrity  bool
	auditLog        string
	kafkaBrokers    string
	kafkaTopic      string
	forwardInterval time.Duration
	tlsCert         string
	tlsKey          string
	redactSpec      string
	redactFile      string
}

func runServe(opts serveOpts) error {
	capacity, err := parseByteSize(opts.bufSize)
	if err != nil {
		return fmt.Errorf("invalid --buffer-size: %w", err)
	}
	minLevel, err := severity.Code(opts.minLevel)
	if err != nil {
		return fmt.Errorf("invalid --min-level: %w", err)
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	buf, err := ring.New(ring.Config{
		Capacity:       int(capacity),
		CheckIntegrity: opts.checkIntegrity,
	})
	if err != nil {
		return fmt.Errorf("init buffer: %w", err)
	}

	metrics := collect.NewMetrics(prometheus.DefaultRegisterer)
	metrics.BufferCapacity.Set(float64(buf.Capacity()))
	collector := collect.New(buf, minLevel, metrics)

	srv := serve.NewServer(opts.addr, collector, log)
	srv.SetVersion(version)

	if enabled, names := redact.ParseSpec(opts.redactSpec); enabled {
		r, err := redact.New(names)
		if err != nil {
			return err
		}
		if opts.redactFile != "" {
			if err := r.LoadCustomPatterns(opts.redactFile); err != nil {
				return err
			}
		}
		r.SetOnHit(func(pattern string) {
			metrics.RedactionsTotal.WithLabelValues(pattern).Inc()
		})
		srv.SetRedactor(r)
		log.Info("redaction enabled", zap.Strings("patterns", r.PatternNames()))
	}

	if opts.auditLog != "" {
		audit, err := serve.NewAuditLogger(opts.auditLog)
		if err != nil {
			return fmt.Errorf("init audit logger: %w", err)
		}
		defer func() { _ = audit.Close() }()
		srv.SetAuditLogger(audit)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Kafka forwarding is optional; without brokers records stay in the
	// buffer until a client drains them.
	if opts.kafkaBrokers != "" {
		sink, err := forward.NewSink(strings.Split(opts.kafkaBrokers, ","), opts.kafkaTopic, log)
		if err != nil {
			return fmt.Errorf("init kafka sink: %w", err)
		}
		defer func() { _ = sink.Close() }()

		fwd := forward.New(collector, sink, opts.forwardInterval, log)
		go fwd.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		var srvErr error
		if opts.tlsCert != "" && opts.tlsKey != "" {
			srvErr = srv.ListenAndServeTLS(opts.tlsCert, opts.tlsKey)
		} else {
			srvErr = srv.ListenAndServe()
		}
		if srvErr != nil {
			errCh <- srvErr
		}
	}()

	log.Info("collector listening",
		zap.String("addr", opts.addr),
		zap.Int("capacity", buf.Capacity()),
		zap.String("min_level", opts.minLevel))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err.Error() != "http: Server closed" {
			return err
		}
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	st := collector.Status()
	log.Info("done",
		zap.Int64("captured", st.Counters.Captured),
		zap.Int64("drained", st.Counters.Drained))
	return nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

var byteSizePattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(KB|MB|GB|B)?$`)

func parseByteSize(s string) (int64, error) {
	m := byteSizePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, err
	}
	unit := strings.ToUpper(m[2])
	switch unit {
	case "GB":
		val *= 1 << 30
	case "MB":
		val *= 1 << 20
	case "KB":
		val *= 1 << 10
	case "B", "":
		// bytes
	}
	return int64(val), nil
}
