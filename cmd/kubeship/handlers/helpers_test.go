package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kubeship/kubeship/internal/audit"
	"github.com/kubeship/kubeship/internal/config"
	"github.com/kubeship/kubeship/internal/container"
	"github.com/kubeship/kubeship/internal/k8s"
	"github.com/kubeship/kubeship/internal/manifest"
	"github.com/kubeship/kubeship/internal/monitor"
	"github.com/kubeship/kubeship/internal/strategy"
	"github.com/kubeship/kubeship/internal/util/prerequisites"
)

// saveAndRestoreFactories snapshots the injectable factory variables and
// restores them when the test finishes.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()

	origLoadConfig := loadConfigFile
	origNewEngine := newEngine
	origNewProbes := newProbes
	origNewClusterClient := newClusterClient
	origNewMonitor := newMonitor
	origOpenAuditLog := openAuditLog
	origLoadManifests := loadManifests
	origCheckPrereqs := checkDefaultPrereqs

	t.Cleanup(func() {
		loadConfigFile = origLoadConfig
		newEngine = origNewEngine
		newProbes = origNewProbes
		newClusterClient = origNewClusterClient
		newMonitor = origNewMonitor
		openAuditLog = origOpenAuditLog
		loadManifests = origLoadManifests
		checkDefaultPrereqs = origCheckPrereqs
	})
}

// scriptedRunner fakes the container CLI.
type scriptedRunner struct {
	calls   []string
	outputs map[string]string
	errs    map[string]error
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (r *scriptedRunner) Run(_ context.Context, _ []string, name string, args ...string) (string, error) {
	key := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, key)
	return r.outputs[key], r.errs[key]
}

// stubProbes fixes the environment signals.
type stubProbes struct {
	minikube bool
	registry bool
}

func (s stubProbes) MinikubeActive(context.Context) bool    { return s.minikube }
func (s stubProbes) RegistryReachable(context.Context) bool { return s.registry }

// fakeCluster implements the full clusterAPI surface in memory.
type fakeCluster struct {
	ops        []string
	applied    []*unstructured.Unstructured
	failOn     map[string]error
	readySeq   []int32
	desired    int32
	statusCall int
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		failOn:   make(map[string]error),
		readySeq: []int32{1},
		desired:  1,
	}
}

func (f *fakeCluster) DeleteIfExists(_ context.Context, kind k8s.Kind, _, name string) (bool, error) {
	key := fmt.Sprintf("delete %s %s", kind, name)
	f.ops = append(f.ops, key)
	return false, f.failOn[key]
}

func (f *fakeCluster) ApplyObject(_ context.Context, obj *unstructured.Unstructured) error {
	key := fmt.Sprintf("apply %s %s", obj.GetKind(), obj.GetName())
	f.ops = append(f.ops, key)
	f.applied = append(f.applied, obj)
	return f.failOn[key]
}

func (f *fakeCluster) CreateConfigMap(_ context.Context, cm *corev1.ConfigMap) error {
	key := fmt.Sprintf("create ConfigMap %s", cm.Name)
	f.ops = append(f.ops, key)
	return f.failOn[key]
}

func (f *fakeCluster) CreateSecret(_ context.Context, secret *corev1.Secret) error {
	key := fmt.Sprintf("create Secret %s", secret.Name)
	f.ops = append(f.ops, key)
	return f.failOn[key]
}

func (f *fakeCluster) DeploymentReplicas(context.Context, string, string) (int32, int32, error) {
	idx := f.statusCall
	if idx >= len(f.readySeq) {
		idx = len(f.readySeq) - 1
	}
	f.statusCall++
	return f.readySeq[idx], f.desired, nil
}

func (f *fakeCluster) Pods(context.Context, string, string) ([]corev1.Pod, error) {
	return nil, nil
}

func (f *fakeCluster) ObjectEvents(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func (f *fakeCluster) PodLogs(context.Context, string, string, string, int64) (string, error) {
	return "", nil
}

func (f *fakeCluster) NamespaceEvents(context.Context, string, int) ([]string, error) {
	return nil, nil
}

// fakeClock advances instantly so monitor polls do not sleep.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

const testDeploymentYAML = `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: user-api
spec:
  replicas: 1
  template:
    spec:
      containers:
        - name: user-api
          image: user-api:placeholder
`

const testServiceYAML = `
apiVersion: v1
kind: Service
metadata:
  name: user-api
spec:
  ports:
    - port: 8000
`

// installTestEnv wires every factory variable to in-memory fakes and
// returns the effective configuration.
func installTestEnv(t *testing.T, runner *scriptedRunner, cluster *fakeCluster) *config.Config {
	t.Helper()
	saveAndRestoreFactories(t)

	workDir := t.TempDir()
	manifestDir := filepath.Join(workDir, "manifests")
	require.NoError(t, os.Mkdir(manifestDir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(manifestDir, "deployment.yaml"), []byte(testDeploymentYAML), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(manifestDir, "service.yaml"), []byte(testServiceYAML), 0600))

	sqlPath := filepath.Join(workDir, "init.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte("CREATE TABLE Users (id INT);"), 0600))

	auditPath := filepath.Join(workDir, "audit.csv")

	cfg := config.Default()
	cfg.Database.Password = "pw"
	cfg.Service.BuildDir = workDir
	cfg.Manifests.Dir = manifestDir
	cfg.Manifests.InitSQL = sqlPath
	cfg.AuditLog = auditPath
	cfg.Timeouts = &config.Timeouts{PollInterval: 10 * time.Second, ReadyDeadline: 300 * time.Second}

	loadConfigFile = func(string) (*config.Config, error) { return cfg, nil }
	newEngine = func() *container.Engine { return container.NewEngineWithRunner(runner) }
	newProbes = func(*container.Engine, string) strategy.Prober { return stubProbes{} }
	newClusterClient = func(string) (clusterAPI, error) { return cluster, nil }
	newMonitor = func(client monitor.StatusClient, auditLog *audit.Log, cfg *config.Config) *monitor.Monitor {
		return monitor.NewWithClock(client, auditLog, cfg, &fakeClock{now: time.Now()})
	}
	loadManifests = manifest.LoadDir
	checkDefaultPrereqs = func() *prerequisites.CheckResults { return &prerequisites.CheckResults{} }

	return cfg
}

// unstructuredContainers maps container name to image for a Deployment object.
func unstructuredContainers(obj *unstructured.Unstructured) (map[string]string, bool, error) {
	containers, found, err := unstructured.NestedSlice(obj.Object, "spec", "template", "spec", "containers")
	if err != nil || !found {
		return nil, found, err
	}

	images := make(map[string]string, len(containers))
	for _, c := range containers {
		m, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		image, _ := m["image"].(string)
		images[name] = image
	}
	return images, true, nil
}

func auditRows(t *testing.T, path string) [][]string {
	t.Helper()

	// #nosec G304
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows[1:]
}
