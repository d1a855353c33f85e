package k8s

import (
	"testing"

	"k8s.io/client-go/kubernetes/fake"
)

func TestNewClientFromInterface(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "test-ns")

	if c.NS != "test-ns" {
		t.Errorf("NS = %q, want %q", c.NS, "test-ns")
	}
	if c.CS != cs {
		t.Error("CS not set")
	}
	if c.Rest != nil {
		t.Error("Rest should be nil for fake clientsets")
	}
}
