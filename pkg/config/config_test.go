package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "env: test\n"), "1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "postgres", cfg.Warehouse.Type)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 2000, cfg.Pipeline.RowLimit)
	assert.Equal(t, 600, cfg.Pipeline.SQLErrorLimit)
	assert.Equal(t, 800, cfg.Pipeline.VizErrorLimit)
	assert.Equal(t, "orders", cfg.Pipeline.DefaultGroup)
	assert.Equal(t, 60, cfg.Filters.MatchThreshold)
	assert.Equal(t, 80, cfg.Knowledgebase.FuzzyThreshold)
}

func TestLoad_YAMLValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
warehouse:
  type: sqlserver
  host: db.internal
  database: analytics
pipeline:
  max_retries: 5
groups:
  orders:
    description: order facts
    tables: [orders, order_items]
knowledgebase:
  aliases:
    customers: customer
filters:
  redirect_tables: [customer, sellers]
`), "dev")
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", cfg.Warehouse.Type)
	assert.Equal(t, "db.internal", cfg.Warehouse.Host)
	assert.Equal(t, 5, cfg.Pipeline.MaxRetries)
	require.Contains(t, cfg.Groups, "orders")
	assert.Equal(t, []string{"orders", "order_items"}, cfg.Groups["orders"].Tables)
	assert.Equal(t, "customer", cfg.Knowledgebase.Aliases["customers"])
	assert.Equal(t, []string{"customer", "sellers"}, cfg.Filters.RedirectTables)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PIPELINE_MAX_RETRIES", "7")
	t.Setenv("WAREHOUSE_PASSWORD", "s3cret")

	cfg, err := Load(writeConfig(t, "pipeline:\n  max_retries: 2\n"), "dev")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.MaxRetries)
	assert.Equal(t, "s3cret", cfg.Warehouse.Password)
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("WAREHOUSE_TYPE", "postgres")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "dev")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Warehouse.Type)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "warehouse:\n  type: oracle\n"), "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported warehouse type")

	_, err = Load(writeConfig(t, "pipeline:\n  row_limit: -5\n"), "dev")
	require.Error(t, err)
}

func TestKnowledgebasePaths(t *testing.T) {
	cfg := &Config{Knowledgebase: KnowledgebaseConfig{Path: "/etc/lumera/kb.yaml"}}
	paths := cfg.KnowledgebasePaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/etc/lumera/kb.yaml", paths[0])
	for _, p := range paths[1:] {
		assert.True(t, filepath.IsAbs(p))
	}
}
