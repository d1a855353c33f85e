package k8s

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"
)

// TunnelSpec describes a port-forward tunnel to the collector pod.
type TunnelSpec struct {
	Namespace  string
	PodName    string
	RemotePort int
	LocalPort  int // 0 = allocate dynamically
}

// Tunnel manages a port-forward connection to the collector pod so the
// capture and drain endpoints are reachable from outside the cluster.
type Tunnel struct {
	fw      *portforward.PortForwarder
	stopCh  chan struct{}
	readyCh chan struct{}
	errCh   chan error
}

// NewTunnel creates a port-forward tunnel. The client must carry a REST
// config, so fake clientsets cannot tunnel.
func NewTunnel(c *Client, spec TunnelSpec, out, errOut io.Writer) (*Tunnel, error) {
	if c.Rest == nil {
		return nil, fmt.Errorf("REST config required for port-forward")
	}

	transport, upgrader, err := spdy.RoundTripperFor(c.Rest)
	if err != nil {
		return nil, fmt.Errorf("create SPDY transport: %w", err)
	}

	path := fmt.Sprintf("/api/v1/namespaces/%s/pods/%s/portforward", spec.Namespace, spec.PodName)
	hostURL, err := url.Parse(c.Rest.Host)
	if err != nil {
		return nil, fmt.Errorf("parse host URL: %w", err)
	}
	hostURL.Path = path

	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, hostURL)

	ports := []string{fmt.Sprintf("%d:%d", spec.LocalPort, spec.RemotePort)}
	stopCh := make(chan struct{})
	readyCh := make(chan struct{})

	fw, err := portforward.New(dialer, ports, stopCh, readyCh, out, errOut)
	if err != nil {
		return nil, fmt.Errorf("create port-forwarder: %w", err)
	}

	return &Tunnel{
		fw:      fw,
		stopCh:  stopCh,
		readyCh: readyCh,
		errCh:   make(chan error, 1),
	}, nil
}

// Start runs the forwarder in the background and blocks until the tunnel is
// ready, the forwarder fails, or ctx is cancelled. It returns the local port.
func (t *Tunnel) Start(ctx context.Context) (int, error) {
	go func() {
		t.errCh <- t.fw.ForwardPorts()
	}()

	select {
	case <-t.readyCh:
	case err := <-t.errCh:
		return 0, fmt.Errorf("port-forward: %w", err)
	case <-ctx.Done():
		t.Stop()
		return 0, ctx.Err()
	}

	ports, err := t.fw.GetPorts()
	if err != nil {
		return 0, err
	}
	if len(ports) == 0 {
		return 0, fmt.Errorf("no forwarded ports")
	}
	return int(ports[0].Local), nil
}

// Stop closes the port-forward tunnel.
func (t *Tunnel) Stop() {
	close(t.stopCh)
}
