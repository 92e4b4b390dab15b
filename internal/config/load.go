package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file auto-detected in the working directory.
const DefaultFile = "kubeship.yaml"

// Default returns the built-in configuration for the user-api workload.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "user-api",
			Namespace: "default",
			Image:     "user-api",
			Tag:       "latest",
			Container: "user-api",
			BuildDir:  ".",
		},
		Registry: RegistryConfig{
			Host: "localhost:5000",
		},
		Manifests: ManifestConfig{
			Dir:     "deploy/manifests",
			InitSQL: "deploy/init.sql",
		},
		Database: DatabaseConfig{
			SecretName:    "user-api-db-credentials",
			ConfigMapName: "user-api-db-init",
			User:          "root",
			Name:          "Main",
		},
		AuditLog: "deployment-audit.csv",
		Timeouts: LoadTimeouts(),
	}
}

// Load reads the configuration file at path, layering it over the defaults.
// An empty path falls back to the defaults alone if no kubeship.yaml exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path != "" {
		// #nosec G304
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var rawConfig map[string]interface{}
		if err := yaml.Unmarshal(data, &rawConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}

		if err := decodeInto(rawConfig, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	// The password never belongs in the file; the environment wins when set.
	if pw := os.Getenv("MYSQL_PASSWORD"); pw != "" {
		cfg.Database.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// decodeInto overlays the raw YAML map onto cfg, so absent keys keep
// their defaults.
func decodeInto(raw map[string]interface{}, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  cfg,
		TagName: "yaml",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
