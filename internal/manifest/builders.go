package manifest

import (
	"fmt"
	"os"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubeship/kubeship/internal/config"
)

// BuildInitConfigMap packages the schema/seed SQL file into the ConfigMap
// mounted by the database container's init volume.
func BuildInitConfigMap(cfg *config.Config) (*corev1.ConfigMap, error) {
	// #nosec G304
	sql, err := os.ReadFile(cfg.Manifests.InitSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to read init SQL %s: %w", cfg.Manifests.InitSQL, err)
	}

	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.Database.ConfigMapName,
			Namespace: cfg.Service.Namespace,
			Labels:    managedLabels(cfg),
		},
		Data: map[string]string{
			"init.sql": string(sql),
		},
	}, nil
}

// BuildCredentialsSecret builds the database credentials Secret referenced
// by both the api and database containers.
func BuildCredentialsSecret(cfg *config.Config) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.Database.SecretName,
			Namespace: cfg.Service.Namespace,
			Labels:    managedLabels(cfg),
		},
		Type: corev1.SecretTypeOpaque,
		StringData: map[string]string{
			"MYSQL_USER":     cfg.Database.User,
			"MYSQL_PASSWORD": cfg.Database.Password,
			"MYSQL_DATABASE": cfg.Database.Name,
		},
	}
}

func managedLabels(cfg *config.Config) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":       cfg.Service.Name,
		"app.kubernetes.io/managed-by": "kubeship",
	}
}
