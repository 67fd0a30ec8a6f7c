package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/ragstore/pkg/types"
)

func TestSetupConfigFromEnv(t *testing.T) {
	addr := "localhost:11111"
	t.Setenv("RAGSTORE_ADDR", addr)
	t.Setenv("RAGSTORE_STORAGE_KV", BACKEND_REDIS)
	t.Setenv("RAGSTORE_REDIS_CLUSTER_ADDRS", "a:1,b:2")

	cfg := LoadBaseConfigFromENV()

	assert.Equal(t, addr, cfg.Addr)
	assert.Equal(t, BACKEND_REDIS, cfg.Storage.KV)
	assert.Equal(t, BACKEND_REDIS, cfg.Storage.FullDocs)
	assert.Equal(t, BACKEND_MEMORY, cfg.Storage.Graph)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Redis.Addrs())
	assert.Equal(t, types.DEFAULT_WORKSPACE, cfg.DefaultWorkspace)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":8080"
default_workspace = "tenant_a"

[storage]
kv = "postgres"
full_docs = "s3"
doc_status = "postgres"
vector = "postgres"
graph = "postgres"

[postgres]
dsn = "postgres://localhost/rag"

[pipeline]
retry_times = 5
retry_backoff_ms = 100

[custom_config]
name = "extra"
`), 0o600))

	cfg := MustLoadBaseConfig(path)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "tenant_a", cfg.DefaultWorkspace)
	assert.Equal(t, BACKEND_S3, cfg.Storage.FullDocs)
	assert.Equal(t, 5, cfg.Pipeline.RetryTimes)
	assert.Equal(t, 100*time.Millisecond, cfg.Pipeline.RetryBackoff())
	assert.Equal(t, 8, cfg.Pipeline.MaxParallelWorkspaces)
	assert.Equal(t, 20, cfg.Postgres.PoolSize())

	var custom struct {
		CustomConfig struct {
			Name string `toml:"name"`
		} `toml:"custom_config"`
	}
	require.NoError(t, cfg.LoadCustomConfig(&custom))
	assert.Equal(t, "extra", custom.CustomConfig.Name)
}
