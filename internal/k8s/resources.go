package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Kind names the fixed set of resource kinds kubeship manages.
type Kind string

const (
	KindSecret     Kind = "Secret"
	KindConfigMap  Kind = "ConfigMap"
	KindDeployment Kind = "Deployment"
	KindService    Kind = "Service"
	KindIngress    Kind = "Ingress"
)

// DeleteIfExists deletes the named resource of the given kind.
// It reports whether the resource existed; a missing resource is success.
func (c *Client) DeleteIfExists(ctx context.Context, kind Kind, namespace, name string) (bool, error) {
	var err error
	opts := metav1.DeleteOptions{}

	switch kind {
	case KindSecret:
		err = c.Clientset.CoreV1().Secrets(namespace).Delete(ctx, name, opts)
	case KindConfigMap:
		err = c.Clientset.CoreV1().ConfigMaps(namespace).Delete(ctx, name, opts)
	case KindDeployment:
		err = c.Clientset.AppsV1().Deployments(namespace).Delete(ctx, name, opts)
	case KindService:
		err = c.Clientset.CoreV1().Services(namespace).Delete(ctx, name, opts)
	case KindIngress:
		err = c.Clientset.NetworkingV1().Ingresses(namespace).Delete(ctx, name, opts)
	default:
		return false, fmt.Errorf("unsupported kind %q", kind)
	}

	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s/%s: %w", kind, namespace, name, err)
	}
	return true, nil
}

// CreateConfigMap creates a ConfigMap. Any existing object of the same name
// must have been removed by the preceding cleanup pass.
func (c *Client) CreateConfigMap(ctx context.Context, cm *corev1.ConfigMap) error {
	if cm.Namespace == "" {
		return fmt.Errorf("configmap namespace is required")
	}
	if cm.Name == "" {
		return fmt.Errorf("configmap name is required")
	}

	_, err := c.Clientset.CoreV1().ConfigMaps(cm.Namespace).Create(ctx, cm, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to create configmap %s/%s: %w", cm.Namespace, cm.Name, err)
	}
	return nil
}

// CreateSecret creates a Secret. Any existing object of the same name must
// have been removed by the preceding cleanup pass.
func (c *Client) CreateSecret(ctx context.Context, secret *corev1.Secret) error {
	if secret.Namespace == "" {
		return fmt.Errorf("secret namespace is required")
	}
	if secret.Name == "" {
		return fmt.Errorf("secret name is required")
	}

	_, err := c.Clientset.CoreV1().Secrets(secret.Namespace).Create(ctx, secret, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to create secret %s/%s: %w", secret.Namespace, secret.Name, err)
	}
	return nil
}
