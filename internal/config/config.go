// Package config defines the deployment configuration and its loading rules.
package config

import (
	"fmt"
	"strings"
)

// Config is the full deployment configuration.
//
// Every field has a working default so that `kubeship deploy` runs without
// flags; the config file only overrides what differs from the defaults.
type Config struct {
	Service   ServiceConfig  `yaml:"service"`
	Registry  RegistryConfig `yaml:"registry"`
	Manifests ManifestConfig `yaml:"manifests"`
	Database  DatabaseConfig `yaml:"database"`
	AuditLog  string         `yaml:"audit_log"`
	Timeouts  *Timeouts      `yaml:"-"`
}

// ServiceConfig identifies the workload under deployment.
type ServiceConfig struct {
	// Name is the Deployment/Service/Ingress name in the cluster.
	Name string `yaml:"name"`

	// Namespace is the target namespace for all managed resources.
	Namespace string `yaml:"namespace"`

	// Image is the local image name built from BuildDir.
	Image string `yaml:"image"`

	// Tag is the image tag applied on build.
	Tag string `yaml:"tag"`

	// Container is the container within the Deployment whose image
	// reference is rewritten after strategy resolution.
	Container string `yaml:"container"`

	// BuildDir is the docker build context directory.
	BuildDir string `yaml:"build_dir"`
}

// RegistryConfig describes the optional local image registry.
type RegistryConfig struct {
	// Host is the registry address probed for the push strategy.
	Host string `yaml:"host"`
}

// ManifestConfig locates the static resource manifests.
type ManifestConfig struct {
	// Dir contains the Deployment, Service and Ingress manifests.
	Dir string `yaml:"dir"`

	// InitSQL is the schema/seed file packaged into the init ConfigMap.
	InitSQL string `yaml:"init_sql"`
}

// DatabaseConfig describes the credentials and init objects handed to the
// workload's storage container.
type DatabaseConfig struct {
	// SecretName is the credentials Secret referenced by both containers.
	SecretName string `yaml:"secret_name"`

	// ConfigMapName is the init ConfigMap mounted by the database container.
	ConfigMapName string `yaml:"configmap_name"`

	// User is the database user provisioned for the workload.
	User string `yaml:"user"`

	// Password is the database password. Usually left empty in the file
	// and supplied via the MYSQL_PASSWORD environment variable.
	Password string `yaml:"password"`

	// Name is the database created on first start.
	Name string `yaml:"name"`
}

// LocalImage returns the image reference as built locally, before any
// strategy-dependent rewrite.
func (c *Config) LocalImage() string {
	return fmt.Sprintf("%s:%s", c.Service.Image, c.Service.Tag)
}

// RegistryImage returns the registry-qualified image reference used by the
// push strategy.
func (c *Config) RegistryImage() string {
	return fmt.Sprintf("%s/%s:%s", c.Registry.Host, c.Service.Image, c.Service.Tag)
}

// Validate checks the configuration for values the orchestrator cannot
// default its way around.
func (c *Config) Validate() error {
	var problems []string

	if c.Service.Name == "" {
		problems = append(problems, "service.name is required")
	}
	if c.Service.Image == "" {
		problems = append(problems, "service.image is required")
	}
	if strings.ContainsAny(c.Service.Tag, " \t") {
		problems = append(problems, "service.tag must not contain whitespace")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database password is required (set MYSQL_PASSWORD or database.password)")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
