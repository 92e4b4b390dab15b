// Package manifest loads the static resource manifests and performs the
// one structured mutation kubeship makes to them: setting the resolved
// image reference on the workload's container.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// Set holds the loaded manifests keyed by kind.
type Set struct {
	objects map[string]*unstructured.Unstructured
}

// LoadDir reads every *.yaml file in dir into the set. Each file must hold
// exactly one object; the fixed resource set has no multi-document files.
func LoadDir(dir string) (*Set, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan manifest dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no manifests found in %s", dir)
	}
	sort.Strings(paths)

	set := &Set{objects: make(map[string]*unstructured.Unstructured, len(paths))}
	for _, path := range paths {
		// #nosec G304
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
		}

		var obj unstructured.Unstructured
		if err := yaml.Unmarshal(data, &obj.Object); err != nil {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
		}

		kind := obj.GetKind()
		if kind == "" {
			return nil, fmt.Errorf("manifest %s has no kind", path)
		}
		if _, dup := set.objects[kind]; dup {
			return nil, fmt.Errorf("duplicate %s manifest in %s", kind, dir)
		}
		set.objects[kind] = &obj
	}

	return set, nil
}

// Get returns the manifest of the given kind, or nil if the set has none.
func (s *Set) Get(kind string) *unstructured.Unstructured {
	return s.objects[kind]
}

// Kinds lists the kinds present in the set, sorted.
func (s *Set) Kinds() []string {
	kinds := make([]string, 0, len(s.objects))
	for k := range s.objects {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// SetDeploymentImage sets the image reference of the named container in
// the Deployment manifest, leaving every sibling field untouched.
func (s *Set) SetDeploymentImage(container, image string) error {
	deployment := s.objects["Deployment"]
	if deployment == nil {
		return fmt.Errorf("manifest set has no Deployment")
	}

	containers, found, err := unstructured.NestedSlice(deployment.Object,
		"spec", "template", "spec", "containers")
	if err != nil || !found {
		return fmt.Errorf("deployment manifest has no containers list")
	}

	for i, raw := range containers {
		c, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if c["name"] != container {
			continue
		}

		c["image"] = image
		containers[i] = c
		if err := unstructured.SetNestedSlice(deployment.Object,
			containers, "spec", "template", "spec", "containers"); err != nil {
			return fmt.Errorf("failed to set image on container %q: %w", container, err)
		}
		return nil
	}

	return fmt.Errorf("container %q not found in deployment manifest", container)
}

// DeploymentImage reads the image reference of the named container.
func (s *Set) DeploymentImage(container string) (string, error) {
	deployment := s.objects["Deployment"]
	if deployment == nil {
		return "", fmt.Errorf("manifest set has no Deployment")
	}

	containers, found, err := unstructured.NestedSlice(deployment.Object,
		"spec", "template", "spec", "containers")
	if err != nil || !found {
		return "", fmt.Errorf("deployment manifest has no containers list")
	}

	for _, raw := range containers {
		c, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if c["name"] == container {
			image, _ := c["image"].(string)
			return image, nil
		}
	}
	return "", fmt.Errorf("container %q not found in deployment manifest", container)
}
