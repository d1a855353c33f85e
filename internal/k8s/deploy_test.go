package k8s

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func testCollectorSpec(ns string) CollectorSpec {
	return CollectorSpec{
		Image:     "ghcr.io/avoronov/ringlog:latest",
		Namespace: ns,
		PodName:   CollectorName,
		SvcName:   CollectorName,
		Port:      9280,
		Args:      []string{"serve", "--addr", ":9280", "--buffer-size", "1MB"},
		Labels:    DefaultLabels(),
		CPU:       "100m",
		Memory:    "128Mi",
	}
}

func TestDeployCollector(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "test-ns")

	res, err := DeployCollector(context.Background(), c, testCollectorSpec("test-ns"))
	if err != nil {
		t.Fatal(err)
	}

	if !res.CreatedNS {
		t.Error("CreatedNS = false, want true")
	}

	ns, err := cs.CoreV1().Namespaces().Get(context.Background(), "test-ns", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("namespace not found: %v", err)
	}
	if ns.Labels[LabelManagedBy] != ManagedByValue {
		t.Errorf("namespace label = %q, want %q", ns.Labels[LabelManagedBy], ManagedByValue)
	}

	pod, err := cs.CoreV1().Pods("test-ns").Get(context.Background(), CollectorName, metav1.GetOptions{})
	if err != nil {
		t.Fatalf("pod not found: %v", err)
	}
	if pod.Spec.Containers[0].Image != "ghcr.io/avoronov/ringlog:latest" {
		t.Errorf("image = %q", pod.Spec.Containers[0].Image)
	}
	if pod.Labels[LabelName] != CollectorName {
		t.Errorf("pod label = %q, want %q", pod.Labels[LabelName], CollectorName)
	}

	limits := pod.Spec.Containers[0].Resources.Limits
	if cpu := limits.Cpu().String(); cpu != "100m" {
		t.Errorf("cpu limit = %q, want 100m", cpu)
	}
	if mem := limits.Memory().String(); mem != "128Mi" {
		t.Errorf("memory limit = %q, want 128Mi", mem)
	}

	svc, err := cs.CoreV1().Services("test-ns").Get(context.Background(), CollectorName, metav1.GetOptions{})
	if err != nil {
		t.Fatalf("service not found: %v", err)
	}
	if svc.Spec.Ports[0].Port != 9280 {
		t.Errorf("service port = %d, want 9280", svc.Spec.Ports[0].Port)
	}
}

func TestDeployCollector_ExistingNamespace(t *testing.T) {
	existingNS := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "existing-ns"},
	}
	cs := fake.NewSimpleClientset(existingNS) //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "existing-ns")

	res, err := DeployCollector(context.Background(), c, testCollectorSpec("existing-ns"))
	if err != nil {
		t.Fatal(err)
	}

	if res.CreatedNS {
		t.Error("CreatedNS = true, want false (namespace already existed)")
	}
}

func TestDeployCollector_NoResourceLimits(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "test-ns")

	spec := testCollectorSpec("test-ns")
	spec.CPU = ""
	spec.Memory = ""

	if _, err := DeployCollector(context.Background(), c, spec); err != nil {
		t.Fatal(err)
	}

	pod, err := cs.CoreV1().Pods("test-ns").Get(context.Background(), CollectorName, metav1.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if pod.Spec.Containers[0].Resources.Limits != nil {
		t.Error("expected no resource limits")
	}
}

func TestDeployCollector_BadResourceLimit(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "test-ns")

	spec := testCollectorSpec("test-ns")
	spec.Memory = "lots"

	_, err := DeployCollector(context.Background(), c, spec)
	if err == nil {
		t.Fatal("expected error for bad memory quantity")
	}
	if !strings.Contains(err.Error(), "memory limit") {
		t.Errorf("err = %q, want 'memory limit'", err.Error())
	}
}

func TestDeleteCollector(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "test-ns")

	res, err := DeployCollector(context.Background(), c, testCollectorSpec("test-ns"))
	if err != nil {
		t.Fatal(err)
	}

	if err := DeleteCollector(context.Background(), c, res); err != nil {
		t.Fatal(err)
	}

	if _, err := cs.CoreV1().Pods("test-ns").Get(context.Background(), CollectorName, metav1.GetOptions{}); err == nil {
		t.Error("pod still exists after delete")
	}
	if _, err := cs.CoreV1().Services("test-ns").Get(context.Background(), CollectorName, metav1.GetOptions{}); err == nil {
		t.Error("service still exists after delete")
	}
	if _, err := cs.CoreV1().Namespaces().Get(context.Background(), "test-ns", metav1.GetOptions{}); err == nil {
		t.Error("namespace still exists after delete (CreatedNS was true)")
	}
}

func TestDeleteCollector_PreservesNamespace(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "test-ns")

	res, err := DeployCollector(context.Background(), c, testCollectorSpec("test-ns"))
	if err != nil {
		t.Fatal(err)
	}

	// pretend we did not create the namespace
	res.CreatedNS = false

	if err := DeleteCollector(context.Background(), c, res); err != nil {
		t.Fatal(err)
	}

	if _, err := cs.CoreV1().Namespaces().Get(context.Background(), "test-ns", metav1.GetOptions{}); err != nil {
		t.Error("namespace was deleted even though CreatedNS was false")
	}
}

func TestDeployCollector_NamespaceError(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	cs.PrependReactor("create", "namespaces", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, fmt.Errorf("injected ns error")
	})
	c := NewClientFromInterface(cs, "test-ns")

	_, err := DeployCollector(context.Background(), c, testCollectorSpec("test-ns"))
	if err == nil {
		t.Fatal("expected error for namespace creation failure")
	}
}

func TestDeployCollector_ServiceError(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	cs.PrependReactor("create", "services", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, fmt.Errorf("injected svc error")
	})
	c := NewClientFromInterface(cs, "test-ns")

	res, err := DeployCollector(context.Background(), c, testCollectorSpec("test-ns"))
	if err == nil {
		t.Fatal("expected error for service creation failure")
	}
	if res == nil {
		t.Fatal("resources should be returned even on error")
	}
}

func TestDeployCollector_PodError(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	cs.PrependReactor("create", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, fmt.Errorf("injected pod error")
	})
	c := NewClientFromInterface(cs, "test-ns")

	res, err := DeployCollector(context.Background(), c, testCollectorSpec("test-ns"))
	if err == nil {
		t.Fatal("expected error for pod creation failure")
	}
	if res == nil {
		t.Fatal("resources should be returned even on error")
	}
}

func TestDeleteCollector_PodDeleteError(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "test-ns")

	res, err := DeployCollector(context.Background(), c, testCollectorSpec("test-ns"))
	if err != nil {
		t.Fatal(err)
	}

	cs.PrependReactor("delete", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, fmt.Errorf("injected pod delete error")
	})

	err = DeleteCollector(context.Background(), c, res)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "delete pod") {
		t.Errorf("err = %q, want 'delete pod'", err.Error())
	}
}

func TestWaitForPodReady_ContextCancel(t *testing.T) {
	cs := fake.NewSimpleClientset() //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "test-ns")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForPodReady(ctx, c, "test-ns", "nonexistent", 10*time.Second)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestWaitForPodReady_Timeout(t *testing.T) {
	// pod exists but never becomes ready
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: CollectorName, Namespace: "test-ns"},
		Status: corev1.PodStatus{
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodReady, Status: corev1.ConditionFalse},
			},
		},
	}
	cs := fake.NewSimpleClientset(pod) //nolint:staticcheck // NewClientset requires generated apply configs
	c := NewClientFromInterface(cs, "test-ns")

	err := WaitForPodReady(context.Background(), c, "test-ns", CollectorName, 2*time.Second)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("err = %q, want timeout message", err.Error())
	}
}

func TestWaitForPodReady(t *testing.T) {
	cs := fake.NewSimpleClientset(&corev1.Pod{ //nolint:staticcheck // NewClientset requires generated apply configs
		ObjectMeta: metav1.ObjectMeta{Name: CollectorName, Namespace: "test-ns"},
		Status: corev1.PodStatus{
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodReady, Status: corev1.ConditionTrue},
			},
		},
	})
	c := NewClientFromInterface(cs, "test-ns")

	err := WaitForPodReady(context.Background(), c, "test-ns", CollectorName, 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForPodReady: %v", err)
	}
}
