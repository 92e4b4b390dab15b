package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubeship/kubeship/cmd/kubeship/handlers"
)

// Status returns the command for a one-shot readiness check.
// Exits non-zero when the deployment is not fully ready.
func Status() *cobra.Command {
	var configPath string
	var kubeconfigPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the deployment's current readiness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), configPath, kubeconfigPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: kubeship.yaml)")
	cmd.Flags().StringVar(&kubeconfigPath, "kubeconfig", "", "Path to kubeconfig file")

	return cmd
}
