// Package monitor polls the cluster until the deployed workload reports
// ready or a wall-clock deadline expires, capturing per-pod diagnostics on
// every observation.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubeship/kubeship/internal/audit"
	"github.com/kubeship/kubeship/internal/config"
)

// ErrDeadline is returned when the workload does not become ready within
// the configured budget.
var ErrDeadline = errors.New("deployment did not become ready before the deadline")

// logTailLines bounds the per-container log capture on each observation.
const logTailLines = 10

// StatusClient is the slice of the Kubernetes client the monitor needs.
type StatusClient interface {
	DeploymentReplicas(ctx context.Context, namespace, name string) (ready, desired int32, err error)
	Pods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error)
	ObjectEvents(ctx context.Context, namespace, name string) ([]string, error)
	PodLogs(ctx context.Context, namespace, pod, container string, tail int64) (string, error)
	NamespaceEvents(ctx context.Context, namespace string, limit int) ([]string, error)
}

// Snapshot is one point-in-time readiness observation. It lives only for
// the tick that produced it; the final one is returned to the caller.
type Snapshot struct {
	Ready       int32
	Desired     int32
	Diagnostics []string
}

// ReadyNow reports whether this observation satisfies the ready condition.
func (s *Snapshot) ReadyNow() bool {
	return s.Desired > 0 && s.Ready == s.Desired
}

// Monitor polls a deployment's readiness on a fixed interval.
type Monitor struct {
	client    StatusClient
	audit     *audit.Log
	clock     Clock
	interval  time.Duration
	deadline  time.Duration
	namespace string
	name      string
	selector  string
}

// New creates a Monitor for the configured workload, using the real clock.
func New(client StatusClient, auditLog *audit.Log, cfg *config.Config) *Monitor {
	return NewWithClock(client, auditLog, cfg, realClock{})
}

// NewWithClock creates a Monitor with an explicit clock. Intended for tests.
func NewWithClock(client StatusClient, auditLog *audit.Log, cfg *config.Config, clock Clock) *Monitor {
	return &Monitor{
		client:    client,
		audit:     auditLog,
		clock:     clock,
		interval:  cfg.Timeouts.PollInterval,
		deadline:  cfg.Timeouts.ReadyDeadline,
		namespace: cfg.Service.Namespace,
		name:      cfg.Service.Name,
		selector:  "app=" + cfg.Service.Name,
	}
}

// Wait blocks until the workload is ready or the deadline expires. It
// always terminates within deadline plus one poll interval of being
// called. On deadline expiry it dumps the final pod status and the most
// recent cluster events, then returns ErrDeadline.
func (m *Monitor) Wait(ctx context.Context) (*Snapshot, error) {
	start := m.clock.Now()

	for {
		snap := m.observe(ctx)

		if snap.ReadyNow() {
			m.audit.Record("readiness", audit.StatusSuccess,
				fmt.Sprintf("deployment %s ready (%d/%d replicas)", m.name, snap.Ready, snap.Desired))
			return snap, nil
		}

		m.audit.Record("readiness_poll", audit.StatusInfo,
			fmt.Sprintf("ready=%d/%d; %s", snap.Ready, snap.Desired, summarize(snap.Diagnostics)))

		if m.clock.Now().Sub(start) >= m.deadline {
			m.dumpFinalState(ctx, snap)
			m.audit.Record("readiness", audit.StatusFailed,
				fmt.Sprintf("deadline of %s exceeded; last observed ready=%d/%d", m.deadline, snap.Ready, snap.Desired))
			return snap, ErrDeadline
		}

		<-m.clock.After(m.interval)
	}
}

// observe reads the replica counts and collects best-effort diagnostics.
// Nothing in here is fatal: an unreadable replica count is observed as 0.
func (m *Monitor) observe(ctx context.Context) *Snapshot {
	snap := &Snapshot{}

	ready, desired, err := m.client.DeploymentReplicas(ctx, m.namespace, m.name)
	if err == nil {
		snap.Ready = ready
		snap.Desired = desired
	} else {
		snap.Diagnostics = append(snap.Diagnostics,
			fmt.Sprintf("deployment status unreadable: %v", err))
	}

	pods, err := m.client.Pods(ctx, m.namespace, m.selector)
	if err != nil || len(pods) == 0 {
		snap.Diagnostics = append(snap.Diagnostics, "no pods observed yet")
		return snap
	}

	for _, pod := range pods {
		snap.Diagnostics = append(snap.Diagnostics,
			fmt.Sprintf("pod %s phase=%s", pod.Name, pod.Status.Phase))
	}

	// One representative pod carries the detailed diagnostics.
	m.collectPodDetail(ctx, &pods[0], snap)
	return snap
}

// collectPodDetail appends scheduling events and container log tails for
// the representative pod. Fetch failures are swallowed: a container that
// has not started yet simply has no logs.
func (m *Monitor) collectPodDetail(ctx context.Context, pod *corev1.Pod, snap *Snapshot) {
	events, err := m.client.ObjectEvents(ctx, m.namespace, pod.Name)
	if err == nil && len(events) > 0 {
		// Most recent events only.
		if len(events) > 3 {
			events = events[len(events)-3:]
		}
		snap.Diagnostics = append(snap.Diagnostics, events...)
	}

	for _, c := range pod.Spec.Containers {
		logs, err := m.client.PodLogs(ctx, m.namespace, pod.Name, c.Name, logTailLines)
		if err != nil || strings.TrimSpace(logs) == "" {
			snap.Diagnostics = append(snap.Diagnostics,
				fmt.Sprintf("%s/%s: no logs yet (container not started)", pod.Name, c.Name))
			continue
		}
		snap.Diagnostics = append(snap.Diagnostics,
			fmt.Sprintf("%s/%s: %s", pod.Name, c.Name, lastLine(logs)))
	}
}

// dumpFinalState records the terminal pod status and recent cluster events
// when the deadline expires.
func (m *Monitor) dumpFinalState(ctx context.Context, snap *Snapshot) {
	m.audit.Record("readiness_final_state", audit.StatusInfo, summarize(snap.Diagnostics))

	events, err := m.client.NamespaceEvents(ctx, m.namespace, 10)
	if err != nil || len(events) == 0 {
		m.audit.Record("cluster_events", audit.StatusInfo, "no recent cluster events available")
		return
	}
	m.audit.Record("cluster_events", audit.StatusInfo, strings.Join(events, " | "))
}

func summarize(diagnostics []string) string {
	if len(diagnostics) == 0 {
		return "no diagnostics"
	}
	return strings.Join(diagnostics, " | ")
}

func lastLine(logs string) string {
	lines := strings.Split(strings.TrimSpace(logs), "\n")
	return lines[len(lines)-1]
}
