package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/avoronov/ringlog/internal/k8s"
)

const (
	defaultImage = "ghcr.io/avoronov/ringlog:latest"
	defaultPort  = int32(9280)
)

func newDeployCmd() *cobra.Command {
	var (
		namespace string
		image     string
		port      int32
		bufSize   string
		minLevel  string
		cpu       string
		memory    string
		ttlStr    string
		wait      bool
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Run the collector in a Kubernetes cluster",
		Long: `Deploy creates a collector Pod and Service inside the Kubernetes cluster
so workloads can capture to it over the cluster network.

After deploying, point emitters at the printed target address. Use
'ringlog tunnel' to reach the drain and status endpoints from outside.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var ttl time.Duration
			if ttlStr != "" {
				var err error
				ttl, err = time.ParseDuration(ttlStr)
				if err != nil {
					return fmt.Errorf("invalid --ttl: %w", err)
				}
			}
			return runDeploy(deployOpts{
				namespace: namespace,
				image:     image,
				port:      port,
				bufSize:   bufSize,
				minLevel:  minLevel,
				cpu:       cpu,
				memory:    memory,
				ttl:       ttl,
				wait:      wait,
				dryRun:    dryRun,
			})
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "ringlog", "namespace for collector resources")
	cmd.Flags().StringVar(&image, "image", defaultImage, "collector image")
	cmd.Flags().Int32Var(&port, "port", defaultPort, "collector listen port")
	cmd.Flags().StringVar(&bufSize, "buffer-size", "1MB", "ring buffer capacity")
	cmd.Flags().StringVar(&minLevel, "min-level", "debug5", "minimum severity to capture")
	cmd.Flags().StringVar(&cpu, "cpu", "", "CPU limit (e.g. 100m)")
	cmd.Flags().StringVar(&memory, "memory", "", "memory limit (e.g. 128Mi)")
	cmd.Flags().StringVar(&ttlStr, "ttl", "", "collector pod TTL (e.g. 4h)")
	cmd.Flags().BoolVar(&wait, "wait", true, "wait for the pod to become ready")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print manifests without applying")

	return cmd
}

type deployOpts struct {
	namespace string
	image     string
	port      int32
	bufSize   string
	minLevel  string
	cpu       string
	memory    string
	ttl       time.Duration
	wait      bool
	dryRun    bool
}

func collectorSpec(opts deployOpts, ns string) k8s.CollectorSpec {
	return k8s.CollectorSpec{
		Image:     opts.image,
		Namespace: ns,
		PodName:   k8s.CollectorName,
		SvcName:   k8s.CollectorName,
		Port:      opts.port,
		Args: []string{
			"serve",
			"--addr", fmt.Sprintf(":%d", opts.port),
			"--buffer-size", opts.bufSize,
			"--min-level", opts.minLevel,
		},
		Labels: k8s.DefaultLabels(),
		CPU:    opts.cpu,
		Memory: opts.memory,
		TTL:    opts.ttl,
	}
}

func runDeploy(opts deployOpts) error {
	if opts.dryRun {
		out, err := k8s.RenderManifests(collectorSpec(opts, opts.namespace))
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, out)
		return nil
	}

	ctx, cancel := clusterContext()
	defer cancel()

	c, err := k8s.NewClient(opts.namespace)
	if err != nil {
		return fmt.Errorf("connect to cluster: %w", err)
	}

	spec := collectorSpec(opts, c.NS)
	target := fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", k8s.CollectorName, c.NS, opts.port)

	fmt.Fprintf(os.Stderr, "Deploying collector in namespace %q...\n", c.NS)

	res, err := k8s.DeployCollector(ctx, c, spec)
	if err != nil {
		// Attempt cleanup on partial failure
		if res != nil {
			fmt.Fprintf(os.Stderr, "Partial failure, cleaning up...\n")
			_ = k8s.DeleteCollector(ctx, c, res)
		}
		return fmt.Errorf("deploy collector: %w", err)
	}

	if opts.wait {
		fmt.Fprintf(os.Stderr, "Waiting for collector to be ready...\n")
		if err := k8s.WaitForPodReady(ctx, c, c.NS, k8s.CollectorName, defaultTimeout); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (pod may still be starting)\n", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\nCollector deployed.\n\n")
	fmt.Fprintf(os.Stderr, "Target: %s\n", target)
	fmt.Fprintf(os.Stderr, "\nUsage:\n")
	fmt.Fprintf(os.Stderr, "  ringlog-emitter < events.jsonl   (with RINGLOG_TARGET=%s)\n", target)
	fmt.Fprintf(os.Stderr, "  ringlog tunnel -n %s             (reach drain/status from outside)\n", c.NS)
	fmt.Fprintf(os.Stderr, "\nCleanup:\n")
	fmt.Fprintf(os.Stderr, "  ringlog undeploy -n %s\n", c.NS)

	return nil
}

func newUndeployCmd() *cobra.Command {
	var (
		namespace string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "undeploy",
		Short: "Remove the in-cluster collector",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndeploy(namespace, dryRun)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "ringlog", "namespace of collector resources")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without applying")

	return cmd
}

func runUndeploy(namespace string, dryRun bool) error {
	ctx, cancel := clusterContext()
	defer cancel()

	c, err := k8s.NewClient(namespace)
	if err != nil {
		return fmt.Errorf("connect to cluster: %w", err)
	}

	res := &k8s.CollectorResources{
		Namespace: c.NS,
		PodName:   k8s.CollectorName,
		SvcName:   k8s.CollectorName,
		CreatedNS: false, // never delete the namespace on cleanup
	}

	if dryRun {
		fmt.Fprintf(os.Stderr, "[dry-run] Would delete in namespace %q:\n", c.NS)
		fmt.Fprintf(os.Stderr, "  Pod:     %s\n", k8s.CollectorName)
		fmt.Fprintf(os.Stderr, "  Service: %s\n", k8s.CollectorName)
		return nil
	}

	fmt.Fprintf(os.Stderr, "Removing collector in namespace %q...\n", c.NS)
	if err := k8s.DeleteCollector(ctx, c, res); err != nil {
		return fmt.Errorf("undeploy: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Collector removed.\n")

	return nil
}
