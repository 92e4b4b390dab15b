package k8s

import (
	"context"
	"fmt"
	"io"
	"sort"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DeploymentReplicas reads the ready and desired replica counts for the
// named deployment.
func (c *Client) DeploymentReplicas(ctx context.Context, namespace, name string) (ready, desired int32, err error) {
	deployment, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get deployment %s/%s: %w", namespace, name, err)
	}

	if deployment.Spec.Replicas != nil {
		desired = *deployment.Spec.Replicas
	}
	return deployment.Status.ReadyReplicas, desired, nil
}

// Pods lists pods in the namespace matching the label selector.
func (c *Client) Pods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error) {
	podList, err := c.Clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}
	return podList.Items, nil
}

// PodLogs returns up to tail lines of the container's log stream.
func (c *Client) PodLogs(ctx context.Context, namespace, pod, container string, tail int64) (string, error) {
	req := c.Clientset.CoreV1().Pods(namespace).GetLogs(pod, &corev1.PodLogOptions{
		Container: container,
		TailLines: &tail,
	})

	stream, err := req.Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to stream logs for %s/%s: %w", pod, container, err)
	}
	defer stream.Close()

	logs, err := io.ReadAll(stream)
	if err != nil {
		return "", fmt.Errorf("failed to read logs for %s/%s: %w", pod, container, err)
	}
	return string(logs), nil
}

// ObjectEvents returns formatted events for the named object, most recent last.
func (c *Client) ObjectEvents(ctx context.Context, namespace, name string) ([]string, error) {
	events, err := c.Clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: fmt.Sprintf("involvedObject.name=%s", name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", name, err)
	}
	return formatEvents(events.Items), nil
}

// NamespaceEvents returns the most recent events in the namespace, capped
// at limit.
func (c *Client) NamespaceEvents(ctx context.Context, namespace string, limit int) ([]string, error) {
	events, err := c.Clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list events in %s: %w", namespace, err)
	}

	formatted := formatEvents(events.Items)
	if limit > 0 && len(formatted) > limit {
		formatted = formatted[len(formatted)-limit:]
	}
	return formatted, nil
}

// formatEvents renders events as one-line summaries, ordered by last seen.
func formatEvents(items []corev1.Event) []string {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].LastTimestamp.Time.Before(items[j].LastTimestamp.Time)
	})

	lines := make([]string, 0, len(items))
	for _, ev := range items {
		lines = append(lines, fmt.Sprintf("%s %s %s: %s",
			ev.Type, ev.InvolvedObject.Name, ev.Reason, ev.Message))
	}
	return lines
}
