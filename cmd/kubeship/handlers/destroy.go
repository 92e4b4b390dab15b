package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/kubeship/kubeship/internal/audit"
	"github.com/kubeship/kubeship/internal/manifest"
	"github.com/kubeship/kubeship/internal/reconcile"
)

// Destroy deletes the service's managed cluster resources. Deletion is
// idempotent; resources that no longer exist are recorded and skipped.
func Destroy(ctx context.Context, configPath, kubeconfigPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	auditLog, err := openAuditLog(cfg.AuditLog)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	auditLog.Record("destroy", audit.StatusInfo,
		fmt.Sprintf("removing resources of %s from namespace %s", cfg.Service.Name, cfg.Service.Namespace))

	client, err := newClusterClient(kubeconfigPath)
	if err != nil {
		auditLog.Record("connect_cluster", audit.StatusFailed, err.Error())
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	// Cleanup only needs resource names, not manifest bodies.
	reconciler := reconcile.New(client, auditLog, cfg, &manifest.Set{})
	if err := reconciler.Cleanup(ctx); err != nil {
		return err
	}

	auditLog.Record("destroy", audit.StatusSuccess, "all managed resources removed")
	log.Printf("Resources of %s removed", cfg.Service.Name)
	return nil
}
