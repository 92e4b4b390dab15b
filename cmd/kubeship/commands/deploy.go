package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubeship/kubeship/cmd/kubeship/handlers"
)

// Deploy returns the command for deploying the service end to end.
//
// The deployment flow is: build the image, resolve the environment
// strategy, clean up resources from prior runs, apply the resource set in
// dependency order, then wait for the workload to become ready.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML (default: auto-detect kubeship.yaml)
//	--kubeconfig: Path to kubeconfig (default: standard loading rules)
//
// Environment variables:
//
//	MYSQL_PASSWORD: database password packaged into the credentials Secret
func Deploy() *cobra.Command {
	var configPath string
	var kubeconfigPath string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Build, reconcile and wait for the service",
		Long: `Deploy the service to the cluster.

The command needs no flags: the environment is inspected to choose how the
built image reaches the cluster (minikube's in-cluster daemon, a local
registry, or the bare local tag), and configuration is read from
kubeship.yaml in the current directory when present.

Examples:
  # Deploy using defaults and kubeship.yaml auto-detection
  kubeship deploy

  # Deploy with an explicit config file
  kubeship deploy -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), configPath, kubeconfigPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: kubeship.yaml)")
	cmd.Flags().StringVar(&kubeconfigPath, "kubeconfig", "", "Path to kubeconfig file")

	return cmd
}
