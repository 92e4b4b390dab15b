// Package container drives the local container engine: image builds, tags
// and registry pushes, including builds against minikube's in-cluster
// docker daemon.
//
// The engine shells out to the docker and minikube CLIs; kubeship gates on
// their presence at startup (internal/util/prerequisites) the same way it
// gates on every other client tool.
package container

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its combined output.
// It exists so tests can substitute a fake for the real CLI.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) (string, error)
}

// execRunner runs commands through os/exec, inheriting the process
// environment and overlaying any extra variables.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, env []string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, firstLine(out))
	}
	return string(out), nil
}

// Engine wraps the container tooling behind a testable surface.
type Engine struct {
	runner Runner
}

// NewEngine returns an Engine backed by the real docker/minikube CLIs.
func NewEngine() *Engine {
	return &Engine{runner: execRunner{}}
}

// NewEngineWithRunner returns an Engine using the given Runner.
// Intended for tests.
func NewEngineWithRunner(r Runner) *Engine {
	return &Engine{runner: r}
}

// Build builds the image at dir and tags it with tag, optionally against
// an alternate daemon described by env (DOCKER_HOST and friends).
func (e *Engine) Build(ctx context.Context, tag, dir string, env []string) error {
	if _, err := e.runner.Run(ctx, env, "docker", "build", "-t", tag, dir); err != nil {
		return fmt.Errorf("image build failed: %w", err)
	}
	return nil
}

// Tag applies dst as an additional reference for src.
func (e *Engine) Tag(ctx context.Context, src, dst string) error {
	if _, err := e.runner.Run(ctx, nil, "docker", "tag", src, dst); err != nil {
		return fmt.Errorf("image tag failed: %w", err)
	}
	return nil
}

// Push pushes ref to its registry.
func (e *Engine) Push(ctx context.Context, ref string) error {
	if _, err := e.runner.Run(ctx, nil, "docker", "push", ref); err != nil {
		return fmt.Errorf("image push failed: %w", err)
	}
	return nil
}

// MinikubeRunning reports whether a minikube host is up. Any error from
// the status command (including minikube being absent) means "not running".
func (e *Engine) MinikubeRunning(ctx context.Context) bool {
	out, err := e.runner.Run(ctx, nil, "minikube", "status", "--format", "{{.Host}}")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "Running"
}

// MinikubeDockerEnv returns the environment variables that point the
// docker CLI at minikube's in-cluster daemon, parsed from
// `minikube docker-env` output.
func (e *Engine) MinikubeDockerEnv(ctx context.Context) ([]string, error) {
	out, err := e.runner.Run(ctx, nil, "minikube", "docker-env", "--shell", "bash")
	if err != nil {
		return nil, fmt.Errorf("failed to read minikube docker-env: %w", err)
	}

	env := parseDockerEnv(out)
	if len(env) == 0 {
		return nil, fmt.Errorf("minikube docker-env produced no variables")
	}
	return env, nil
}

// parseDockerEnv extracts KEY=VALUE pairs from bash-style `export` lines.
func parseDockerEnv(out string) []string {
	var env []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "export ") {
			continue
		}
		kv := strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env = append(env, key+"="+strings.Trim(value, `"`))
	}
	return env
}

// firstLine trims command output down to something fit for an error message.
func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
