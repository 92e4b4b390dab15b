// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/kubeship/kubeship/internal/audit"
	"github.com/kubeship/kubeship/internal/config"
	"github.com/kubeship/kubeship/internal/container"
	"github.com/kubeship/kubeship/internal/k8s"
	"github.com/kubeship/kubeship/internal/manifest"
	"github.com/kubeship/kubeship/internal/monitor"
	"github.com/kubeship/kubeship/internal/reconcile"
	"github.com/kubeship/kubeship/internal/strategy"
	"github.com/kubeship/kubeship/internal/util/prerequisites"
)

// clusterAPI is everything the deploy flow needs from the cluster client.
type clusterAPI interface {
	reconcile.ClusterClient
	monitor.StatusClient
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads the deployment configuration.
	loadConfigFile = config.Load

	// newEngine creates the container engine.
	newEngine = func() *container.Engine {
		return container.NewEngine()
	}

	// newProbes creates the environment probes for strategy resolution.
	newProbes = func(engine *container.Engine, registryHost string) strategy.Prober {
		return strategy.NewEnvironmentProbes(engine, registryHost)
	}

	// newClusterClient creates the Kubernetes client.
	newClusterClient = func(kubeconfigPath string) (clusterAPI, error) {
		return k8s.New(kubeconfigPath)
	}

	// newMonitor creates the readiness monitor.
	newMonitor = func(client monitor.StatusClient, auditLog *audit.Log, cfg *config.Config) *monitor.Monitor {
		return monitor.New(client, auditLog, cfg)
	}

	// openAuditLog opens the run's audit log.
	openAuditLog = audit.Open

	// loadManifests loads the static resource manifests.
	loadManifests = manifest.LoadDir

	// checkDefaultPrereqs runs prerequisite checks.
	checkDefaultPrereqs = prerequisites.CheckDefault
)

// Deploy runs the full deployment flow:
//  1. Loads and validates the configuration
//  2. Builds the service image locally
//  3. Resolves the environment strategy and prepares the image reference
//  4. Cleans up resources left over from prior runs
//  5. Applies the resource set in dependency order
//  6. Waits for the workload to become ready, within the deadline
//
// Stage boundaries are hard: a fatal condition in any stage prevents all
// subsequent stages from running, and every outcome is routed through the
// audit log before the decision it informs is acted upon.
func Deploy(ctx context.Context, configPath, kubeconfigPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	if err := checkPrerequisites(); err != nil {
		return err
	}

	auditLog, err := openAuditLog(cfg.AuditLog)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	auditLog.Record("deploy", audit.StatusInfo,
		fmt.Sprintf("starting deployment of %s to namespace %s", cfg.Service.Name, cfg.Service.Namespace))

	engine := newEngine()
	imageRef, err := prepareImage(ctx, cfg, engine, auditLog)
	if err != nil {
		return err
	}

	set, err := loadManifestSet(cfg, imageRef, auditLog)
	if err != nil {
		return err
	}

	client, err := newClusterClient(kubeconfigPath)
	if err != nil {
		auditLog.Record("connect_cluster", audit.StatusFailed, err.Error())
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	reconciler := reconcile.New(client, auditLog, cfg, set)
	if err := reconciler.Cleanup(ctx); err != nil {
		return err
	}
	if err := reconciler.Apply(ctx); err != nil {
		return err
	}

	snap, err := newMonitor(client, auditLog, cfg).Wait(ctx)
	if err != nil {
		return fmt.Errorf("deployment of %s failed: %w", cfg.Service.Name, err)
	}

	auditLog.Record("deploy", audit.StatusSuccess,
		fmt.Sprintf("deployment complete, %d/%d replicas ready", snap.Ready, snap.Desired))
	log.Printf("Deployment of %s complete (%d/%d replicas ready)", cfg.Service.Name, snap.Ready, snap.Desired)
	return nil
}

// prepareImage builds the image locally, then lets the resolved strategy
// rebuild, tag or push it as needed. It returns the image reference the
// deployment manifest must carry.
func prepareImage(ctx context.Context, cfg *config.Config, engine *container.Engine, auditLog *audit.Log) (string, error) {
	local := cfg.LocalImage()
	if err := engine.Build(ctx, local, cfg.Service.BuildDir, nil); err != nil {
		auditLog.Record("build_image", audit.StatusFailed, err.Error())
		return "", err
	}
	auditLog.Record("build_image", audit.StatusSuccess, fmt.Sprintf("image %s built", local))

	resolver := strategy.NewResolver(newProbes(engine, cfg.Registry.Host), engine, auditLog, cfg)
	chosen := resolver.Resolve(ctx)
	auditLog.Record("resolve_strategy", audit.StatusInfo, fmt.Sprintf("selected strategy %s", chosen))

	return resolver.Prepare(ctx, chosen)
}

// loadManifestSet loads the static manifests and injects the resolved
// image reference into the deployment's service container.
func loadManifestSet(cfg *config.Config, imageRef string, auditLog *audit.Log) (*manifest.Set, error) {
	set, err := loadManifests(cfg.Manifests.Dir)
	if err != nil {
		auditLog.Record("load_manifests", audit.StatusFailed, err.Error())
		return nil, err
	}

	if err := set.SetDeploymentImage(cfg.Service.Container, imageRef); err != nil {
		auditLog.Record("set_image", audit.StatusFailed, err.Error())
		return nil, err
	}
	auditLog.Record("set_image", audit.StatusSuccess,
		fmt.Sprintf("deployment image set to %s", imageRef))

	return set, nil
}

// checkPrerequisites verifies required client tools are available.
func checkPrerequisites() error {
	results := checkDefaultPrereqs()

	for _, r := range results.Results {
		if r.Found {
			version := r.Version
			if version == "" {
				version = "unknown version"
			}
			log.Printf("Found %s (%s)", r.Tool.Name, version)
		}
	}

	if err := results.Error(); err != nil {
		return fmt.Errorf("prerequisites check failed: %w", err)
	}
	return nil
}
