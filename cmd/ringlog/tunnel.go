package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avoronov/ringlog/internal/k8s"
)

func newTunnelCmd() *cobra.Command {
	var (
		namespace string
		port      int32
		localPort int
	)

	cmd := &cobra.Command{
		Use:   "tunnel",
		Short: "Port-forward to the in-cluster collector",
		Long:  "Tunnel opens a port-forward to the collector pod so drain, status, and capture endpoints are reachable from this machine.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTunnel(namespace, int(port), localPort)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "ringlog", "namespace of collector resources")
	cmd.Flags().Int32Var(&port, "port", defaultPort, "collector listen port")
	cmd.Flags().IntVar(&localPort, "local-port", 0, "local port (0 = allocate dynamically)")

	return cmd
}

func runTunnel(namespace string, remotePort, localPort int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := k8s.NewClient(namespace)
	if err != nil {
		return fmt.Errorf("connect to cluster: %w", err)
	}

	tunnel, err := k8s.NewTunnel(c, k8s.TunnelSpec{
		Namespace:  c.NS,
		PodName:    k8s.CollectorName,
		RemotePort: remotePort,
		LocalPort:  localPort,
	}, os.Stderr, os.Stderr)
	if err != nil {
		return fmt.Errorf("create tunnel: %w", err)
	}

	local, err := tunnel.Start(ctx)
	if err != nil {
		return err
	}
	defer tunnel.Stop()

	fmt.Fprintf(os.Stderr, "collector reachable at http://localhost:%d\n", local)
	fmt.Fprintf(os.Stderr, "  ringlog drain --server http://localhost:%d\n", local)
	fmt.Fprintln(os.Stderr, "press Ctrl+C to stop")

	<-ctx.Done()
	return nil
}
