package handlers

import (
	"context"
	"fmt"
)

// Status prints a one-shot readiness snapshot of the deployment and
// returns an error (non-zero exit) when it is not fully ready.
func Status(ctx context.Context, configPath, kubeconfigPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	client, err := newClusterClient(kubeconfigPath)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	ready, desired, err := client.DeploymentReplicas(ctx, cfg.Service.Namespace, cfg.Service.Name)
	if err != nil {
		return fmt.Errorf("failed to read deployment status: %w", err)
	}

	fmt.Printf("%s: %d/%d replicas ready\n", cfg.Service.Name, ready, desired)

	pods, err := client.Pods(ctx, cfg.Service.Namespace, "app="+cfg.Service.Name)
	if err == nil {
		for _, pod := range pods {
			fmt.Printf("  pod %s: %s\n", pod.Name, pod.Status.Phase)
		}
	}

	if desired == 0 || ready != desired {
		return fmt.Errorf("deployment %s is not ready (%d/%d replicas)", cfg.Service.Name, ready, desired)
	}
	return nil
}
