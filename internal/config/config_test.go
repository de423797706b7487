package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "v3", cfg.Versions.Active)
	assert.Equal(t, "v1", cfg.Versions.Fallback)
	assert.Len(t, cfg.Versions.Definitions, 5)
	assert.Equal(t, []string{"us-east-1", "us-west-2", "eu-west-1"}, cfg.RegionIDs())
	assert.Equal(t, "us-east-1", cfg.Regions.Primary)
	assert.Equal(t, 5*time.Second, cfg.Fanout.DeliveryTimeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
versions:
  active: v2
  fallback: v1
  definitions:
    - id: v1
      status: active
      min_app_version: "1.0.0"
    - id: v2
      status: active
      min_app_version: "1.5.0"
regions:
  primary: eu-west-1
  deployments:
    - id: eu-west-1
      endpoint: http://eu.internal
    - id: us-east-1
      endpoint: http://us.internal
fanout:
  delivery_timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "v2", cfg.Versions.Active)
	assert.Len(t, cfg.Versions.Definitions, 2)
	assert.Equal(t, "eu-west-1", cfg.Regions.Primary)
	assert.Equal(t, 2*time.Second, cfg.Fanout.DeliveryTimeout)
	assert.Equal(t, "http://us.internal", cfg.RegionEndpoints()["us-east-1"])
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FORK_SERVER_PORT", "7001")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "v3", cfg.Versions.Active)
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
versions:
  active: v9
  definitions:
    - id: v1
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "active version")
}
