// Package strategy selects how the built image is made visible to the
// cluster runtime and prepares the image reference the manifests will use.
package strategy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kubeship/kubeship/internal/audit"
	"github.com/kubeship/kubeship/internal/config"
	"github.com/kubeship/kubeship/internal/container"
	"github.com/kubeship/kubeship/internal/util/retry"
)

// Strategy is the mechanism by which the built image reaches the cluster.
type Strategy string

const (
	// MinikubeLocal rebuilds the image against minikube's in-cluster
	// docker daemon, so the cluster sees the local tag directly.
	MinikubeLocal Strategy = "MinikubeLocal"

	// RegistryPush tags and pushes the image to a locally reachable
	// registry and rewrites the reference to the registry-qualified name.
	RegistryPush Strategy = "RegistryPush"

	// LocalOnly leaves the bare local tag in place and attempts no push.
	LocalOnly Strategy = "LocalOnly"
)

// Prober reports the two environment signals strategy selection depends on.
type Prober interface {
	// MinikubeActive reports whether an in-cluster build daemon is
	// present and responding.
	MinikubeActive(ctx context.Context) bool

	// RegistryReachable reports whether a local image registry answers.
	RegistryReachable(ctx context.Context) bool
}

// Resolver selects a strategy from the environment and executes its image
// preparation side effects.
type Resolver struct {
	probes Prober
	engine *container.Engine
	audit  *audit.Log
	cfg    *config.Config
}

// NewResolver creates a Resolver.
func NewResolver(probes Prober, engine *container.Engine, auditLog *audit.Log, cfg *config.Config) *Resolver {
	return &Resolver{
		probes: probes,
		engine: engine,
		audit:  auditLog,
		cfg:    cfg,
	}
}

// Resolve selects exactly one strategy. It is a pure function of the two
// probe results, so re-resolving against an unchanged environment yields
// the same strategy.
func (r *Resolver) Resolve(ctx context.Context) Strategy {
	if r.probes.MinikubeActive(ctx) {
		return MinikubeLocal
	}
	if r.probes.RegistryReachable(ctx) {
		return RegistryPush
	}
	return LocalOnly
}

// Prepare executes the chosen strategy's side effects and returns the image
// reference the deployment manifest must carry.
//
// For RegistryPush a failed push is deliberately non-fatal: the failure is
// recorded as a WARNING and the registry-qualified reference is returned
// regardless, so the later apply may reference an image the cluster cannot
// pull. The readiness deadline is the backstop for that case.
func (r *Resolver) Prepare(ctx context.Context, s Strategy) (string, error) {
	local := r.cfg.LocalImage()

	switch s {
	case MinikubeLocal:
		env, err := r.engine.MinikubeDockerEnv(ctx)
		if err != nil {
			r.audit.Record("resolve_environment", audit.StatusFailed, err.Error())
			return "", err
		}

		r.audit.Record("resolve_environment", audit.StatusInfo,
			"minikube daemon detected, rebuilding image in-cluster")
		if err := r.engine.Build(ctx, local, r.cfg.Service.BuildDir, env); err != nil {
			r.audit.Record("build_image_minikube", audit.StatusFailed, err.Error())
			return "", err
		}
		r.audit.Record("build_image_minikube", audit.StatusSuccess,
			fmt.Sprintf("image %s built against minikube daemon", local))
		return local, nil

	case RegistryPush:
		ref := r.cfg.RegistryImage()
		if err := r.engine.Tag(ctx, local, ref); err != nil {
			r.audit.Record("tag_image", audit.StatusFailed, err.Error())
			return "", err
		}

		if err := r.engine.Push(ctx, ref); err != nil {
			r.audit.Record("push_image", audit.StatusWarning,
				fmt.Sprintf("push of %s failed, continuing: %v", ref, err))
		} else {
			r.audit.Record("push_image", audit.StatusSuccess,
				fmt.Sprintf("image pushed to %s", ref))
		}
		return ref, nil

	case LocalOnly:
		r.audit.Record("resolve_environment", audit.StatusInfo,
			fmt.Sprintf("no build daemon or registry detected, using local image %s", local))
		return local, nil
	}

	return "", fmt.Errorf("unknown strategy %q", s)
}

// EnvironmentProbes is the production Prober: minikube via the container
// engine, the registry via its HTTP API.
type EnvironmentProbes struct {
	Engine       *container.Engine
	RegistryHost string
	HTTPClient   *http.Client
}

// NewEnvironmentProbes creates probes for the configured registry host.
func NewEnvironmentProbes(engine *container.Engine, registryHost string) *EnvironmentProbes {
	return &EnvironmentProbes{
		Engine:       engine,
		RegistryHost: registryHost,
		HTTPClient:   &http.Client{Timeout: 2 * time.Second},
	}
}

// MinikubeActive implements Prober.
func (p *EnvironmentProbes) MinikubeActive(ctx context.Context) bool {
	return p.Engine.MinikubeRunning(ctx)
}

// RegistryReachable implements Prober. The registry API answers GET /v2/
// with 200 when serving; a short retry absorbs a registry container that
// is still starting up.
func (p *EnvironmentProbes) RegistryReachable(ctx context.Context) bool {
	url := fmt.Sprintf("http://%s/v2/", p.RegistryHost)

	err := retry.WithExponentialBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := p.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("registry returned status %d", resp.StatusCode)
		}
		return nil
	}, retry.WithMaxRetries(2), retry.WithInitialDelay(500*time.Millisecond))

	return err == nil
}
