package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  address: \"\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "second_brain", cfg.VectorDB.Collection)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 2, cfg.RAG.TopK)
}

func TestLoadConfigEnvOverridesYaml(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "postgres://yaml-host/db"
embedding:
  key: "yaml-embedding-key"
llm:
  key: "yaml-llm-key"
`)
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("DATABASE_DSN", "postgres://env-host/db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Embedding.Key)
	assert.Equal(t, "env-key", cfg.LLM.Key)
	assert.Equal(t, "postgres://env-host/db", cfg.Database.DSN)
}

func TestLoadConfigYamlWinsWithoutEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "postgres://yaml-host/db"
embedding:
  key: "yaml-embedding-key"
`)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DATABASE_DSN", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-embedding-key", cfg.Embedding.Key)
	assert.Equal(t, "postgres://yaml-host/db", cfg.Database.DSN)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
