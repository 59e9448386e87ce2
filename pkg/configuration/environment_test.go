package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "PERFEVAL_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "modules", "evaluation")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(sub))

	_ = os.Unsetenv("PERFEVAL_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("PERFEVAL_TEST_ENV_LOAD"))
}

func TestValidate_NormalizesBackendAndMode(t *testing.T) {
	c := &Configuration{StoreBackend: " Mongo ", Authz: AuthzOptions{Mode: "SHADOW"}}
	require.NoError(t, c.validate())
	require.Equal(t, StoreMongo, c.StoreBackend)
	require.Equal(t, "shadow", c.Authz.Mode)
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	c := &Configuration{StoreBackend: "sqlite", Authz: AuthzOptions{Mode: "enforce"}}
	require.Error(t, c.validate())
}

func TestValidate_RequiresJWTSecretInProduction(t *testing.T) {
	c := &Configuration{StoreBackend: StoreMemory, GoAppEnvironment: Production, Authz: AuthzOptions{Mode: "enforce"}}
	require.Error(t, c.validate())

	c.JWTSecret = "s3cret"
	require.NoError(t, c.validate())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
