package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kubeship/kubeship/internal/config"
)

const deploymentYAML = `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: user-api
  namespace: default
spec:
  replicas: 3
  selector:
    matchLabels:
      app: user-api
  template:
    metadata:
      labels:
        app: user-api
    spec:
      containers:
        - name: user-api
          image: user-api:placeholder
          ports:
            - containerPort: 8000
          readinessProbe:
            httpGet:
              path: /status
              port: 8000
        - name: mysql
          image: mysql:8.0
          envFrom:
            - secretRef:
                name: user-api-db-credentials
`

const serviceYAML = `
apiVersion: v1
kind: Service
metadata:
  name: user-api
  namespace: default
spec:
  selector:
    app: user-api
  ports:
    - port: 8000
`

func writeManifests(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	dir := writeManifests(t, map[string]string{
		"deployment.yaml": deploymentYAML,
		"service.yaml":    serviceYAML,
	})

	set, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"Deployment", "Service"}, set.Kinds())
	require.NotNil(t, set.Get("Deployment"))
	assert.Equal(t, "user-api", set.Get("Deployment").GetName())
	assert.Nil(t, set.Get("Ingress"))
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no manifests found")
}

func TestLoadDir_DuplicateKind(t *testing.T) {
	dir := writeManifests(t, map[string]string{
		"a.yaml": serviceYAML,
		"b.yaml": serviceYAML,
	})

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate Service")
}

func TestLoadDir_MissingKind(t *testing.T) {
	dir := writeManifests(t, map[string]string{
		"broken.yaml": "metadata:\n  name: nameless\n",
	})

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kind")
}

func TestSetDeploymentImage(t *testing.T) {
	dir := writeManifests(t, map[string]string{"deployment.yaml": deploymentYAML})
	set, err := LoadDir(dir)
	require.NoError(t, err)

	require.NoError(t, set.SetDeploymentImage("user-api", "localhost:5000/user-api:latest"))

	image, err := set.DeploymentImage("user-api")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5000/user-api:latest", image)

	// Sibling container untouched.
	mysqlImage, err := set.DeploymentImage("mysql")
	require.NoError(t, err)
	assert.Equal(t, "mysql:8.0", mysqlImage)
}

func TestSetDeploymentImage_PreservesSiblingFields(t *testing.T) {
	dir := writeManifests(t, map[string]string{"deployment.yaml": deploymentYAML})
	set, err := LoadDir(dir)
	require.NoError(t, err)

	require.NoError(t, set.SetDeploymentImage("user-api", "user-api:v2"))

	deployment := set.Get("Deployment")
	replicas, found, err := unstructured.NestedInt64(deployment.Object, "spec", "replicas")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), replicas)

	containers, _, err := unstructured.NestedSlice(deployment.Object, "spec", "template", "spec", "containers")
	require.NoError(t, err)
	api := containers[0].(map[string]interface{})
	probe, found, err := unstructured.NestedMap(api, "readinessProbe", "httpGet")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "/status", probe["path"])
}

func TestSetDeploymentImage_UnknownContainer(t *testing.T) {
	dir := writeManifests(t, map[string]string{"deployment.yaml": deploymentYAML})
	set, err := LoadDir(dir)
	require.NoError(t, err)

	err = set.SetDeploymentImage("ghost", "ghost:latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `container "ghost" not found`)
}

func TestSetDeploymentImage_NoDeployment(t *testing.T) {
	dir := writeManifests(t, map[string]string{"service.yaml": serviceYAML})
	set, err := LoadDir(dir)
	require.NoError(t, err)

	err = set.SetDeploymentImage("user-api", "user-api:v2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Deployment")
}

func TestBuildInitConfigMap(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Password = "pw"

	sqlPath := filepath.Join(t.TempDir(), "init.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte("CREATE TABLE Users (id INT);\n"), 0600))
	cfg.Manifests.InitSQL = sqlPath

	cm, err := BuildInitConfigMap(cfg)
	require.NoError(t, err)

	assert.Equal(t, "user-api-db-init", cm.Name)
	assert.Equal(t, "default", cm.Namespace)
	assert.Contains(t, cm.Data["init.sql"], "CREATE TABLE Users")
	assert.Equal(t, "kubeship", cm.Labels["app.kubernetes.io/managed-by"])
}

func TestBuildInitConfigMap_MissingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Manifests.InitSQL = "/nonexistent/init.sql"

	_, err := BuildInitConfigMap(cfg)
	require.Error(t, err)
}

func TestBuildCredentialsSecret(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Password = "s3cret"

	secret := BuildCredentialsSecret(cfg)
	assert.Equal(t, "user-api-db-credentials", secret.Name)
	assert.Equal(t, "s3cret", secret.StringData["MYSQL_PASSWORD"])
	assert.Equal(t, "root", secret.StringData["MYSQL_USER"])
	assert.Equal(t, "Main", secret.StringData["MYSQL_DATABASE"])
}
