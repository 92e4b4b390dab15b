// Package reconcile drives the cluster's resource state to the desired
// deployment description: idempotent cleanup of previously existing
// resources, then ordered creation of the new set.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kubeship/kubeship/internal/audit"
	"github.com/kubeship/kubeship/internal/config"
	"github.com/kubeship/kubeship/internal/k8s"
	"github.com/kubeship/kubeship/internal/manifest"
)

// ClusterClient is the slice of the Kubernetes client the reconciler needs.
type ClusterClient interface {
	DeleteIfExists(ctx context.Context, kind k8s.Kind, namespace, name string) (bool, error)
	ApplyObject(ctx context.Context, obj *unstructured.Unstructured) error
	CreateConfigMap(ctx context.Context, cm *corev1.ConfigMap) error
	CreateSecret(ctx context.Context, secret *corev1.Secret) error
}

// Reconciler applies the fixed resource set for one deployment run.
type Reconciler struct {
	client ClusterClient
	audit  *audit.Log
	cfg    *config.Config
	set    *manifest.Set
}

// New creates a Reconciler for the given manifest set.
func New(client ClusterClient, auditLog *audit.Log, cfg *config.Config, set *manifest.Set) *Reconciler {
	return &Reconciler{
		client: client,
		audit:  auditLog,
		cfg:    cfg,
		set:    set,
	}
}

// managedResources returns the named resources this run owns, in deletion
// order (dependents before dependencies).
func (r *Reconciler) managedResources() []struct {
	Kind k8s.Kind
	Name string
} {
	svc := r.cfg.Service
	db := r.cfg.Database
	return []struct {
		Kind k8s.Kind
		Name string
	}{
		{k8s.KindIngress, svc.Name},
		{k8s.KindService, svc.Name},
		{k8s.KindDeployment, svc.Name},
		{k8s.KindSecret, db.SecretName},
		{k8s.KindConfigMap, db.ConfigMapName},
	}
}

// Cleanup deletes every managed resource that still exists from a prior
// run. Absence is not an error; cleanup must fully precede the first apply
// so no stale resource survives under a managed name.
func (r *Reconciler) Cleanup(ctx context.Context) error {
	namespace := r.cfg.Service.Namespace

	for _, res := range r.managedResources() {
		existed, err := r.client.DeleteIfExists(ctx, res.Kind, namespace, res.Name)
		if err != nil {
			r.audit.Record("cleanup", audit.StatusFailed,
				fmt.Sprintf("failed to delete %s %s: %v", res.Kind, res.Name, err))
			return fmt.Errorf("cleanup of %s %s failed: %w", res.Kind, res.Name, err)
		}

		if existed {
			r.audit.Record("cleanup", audit.StatusSuccess,
				fmt.Sprintf("deleted %s %s", strings.ToLower(string(res.Kind)), res.Name))
		} else {
			r.audit.Record("cleanup", audit.StatusInfo,
				fmt.Sprintf("%s %s not found, nothing to delete", strings.ToLower(string(res.Kind)), res.Name))
		}
	}

	return nil
}

// Apply creates the desired resource set in dependency order: ConfigMap,
// Secret, Deployment, Service, Ingress. Any failure is fatal for the run.
func (r *Reconciler) Apply(ctx context.Context) error {
	if err := r.applyConfigMap(ctx); err != nil {
		return err
	}
	if err := r.applySecret(ctx); err != nil {
		return err
	}

	// The Deployment references both objects above; Service and Ingress
	// route to it.
	for _, kind := range []string{"Deployment", "Service", "Ingress"} {
		if err := r.applyManifest(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) applyConfigMap(ctx context.Context) error {
	cm, err := manifest.BuildInitConfigMap(r.cfg)
	if err != nil {
		r.audit.Record("apply_configmap", audit.StatusFailed, err.Error())
		return err
	}

	if err := r.client.CreateConfigMap(ctx, cm); err != nil {
		r.audit.Record("apply_configmap", audit.StatusFailed, err.Error())
		return err
	}

	r.audit.Record("apply_configmap", audit.StatusSuccess,
		fmt.Sprintf("created configmap %s", cm.Name))
	return nil
}

func (r *Reconciler) applySecret(ctx context.Context) error {
	secret := manifest.BuildCredentialsSecret(r.cfg)

	if err := r.client.CreateSecret(ctx, secret); err != nil {
		r.audit.Record("apply_secret", audit.StatusFailed, err.Error())
		return err
	}

	r.audit.Record("apply_secret", audit.StatusSuccess,
		fmt.Sprintf("created secret %s", secret.Name))
	return nil
}

func (r *Reconciler) applyManifest(ctx context.Context, kind string) error {
	operation := "apply_" + strings.ToLower(kind)

	obj := r.set.Get(kind)
	if obj == nil {
		if kind == "Deployment" {
			err := fmt.Errorf("manifest set has no Deployment")
			r.audit.Record(operation, audit.StatusFailed, err.Error())
			return err
		}
		// Service and Ingress are part of the managed set but a cluster
		// without an ingress controller ships without the Ingress manifest.
		r.audit.Record(operation, audit.StatusInfo,
			fmt.Sprintf("no %s manifest, skipping", strings.ToLower(kind)))
		return nil
	}

	if obj.GetNamespace() == "" {
		obj.SetNamespace(r.cfg.Service.Namespace)
	}

	if err := r.client.ApplyObject(ctx, obj); err != nil {
		r.audit.Record(operation, audit.StatusFailed, err.Error())
		return fmt.Errorf("apply of %s %s failed: %w", kind, obj.GetName(), err)
	}

	r.audit.Record(operation, audit.StatusSuccess,
		fmt.Sprintf("applied %s %s", strings.ToLower(kind), obj.GetName()))
	return nil
}
