package k8s

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

// RenderManifests returns the namespace, Service, and Pod the deploy would
// create, as a multi-document YAML stream for dry runs.
func RenderManifests(spec CollectorSpec) (string, error) {
	ns := &corev1.Namespace{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   spec.Namespace,
			Labels: spec.Labels,
		},
	}

	svc := buildCollectorService(spec)
	svc.TypeMeta = metav1.TypeMeta{APIVersion: "v1", Kind: "Service"}

	pod, err := buildCollectorPod(spec)
	if err != nil {
		return "", err
	}
	pod.TypeMeta = metav1.TypeMeta{APIVersion: "v1", Kind: "Pod"}

	var b strings.Builder
	for _, obj := range []any{ns, svc, pod} {
		out, err := yaml.Marshal(obj)
		if err != nil {
			return "", fmt.Errorf("marshal manifest: %w", err)
		}
		b.WriteString("---\n")
		b.Write(out)
	}
	return b.String(), nil
}
