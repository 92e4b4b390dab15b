package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubeship/kubeship/cmd/kubeship/handlers"
)

// Destroy returns the command for removing the service's cluster resources.
// Deletion is idempotent: resources that do not exist are skipped.
func Destroy() *cobra.Command {
	var configPath string
	var kubeconfigPath string

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the service's cluster resources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, kubeconfigPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: kubeship.yaml)")
	cmd.Flags().StringVar(&kubeconfigPath, "kubeconfig", "", "Path to kubeconfig file")

	return cmd
}
