package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no stray .env or config file is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkerURL, cfg.WorkerURL)
	assert.Equal(t, DefaultProductsPath, cfg.ProductsPath)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("ROUTINEBUILDER_WORKER_URL", "http://localhost:8787/")
	t.Setenv("ROUTINEBUILDER_MAX_TOKENS", "250")
	t.Setenv("ROUTINEBUILDER_HTTP_TIMEOUT", "5s")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8787/", cfg.WorkerURL)
	assert.Equal(t, 250, cfg.MaxTokens)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROUTINEBUILDER_PRODUCTS_PATH=catalog.yaml\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ROUTINEBUILDER_PRODUCTS_PATH") })

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "catalog.yaml", cfg.ProductsPath)
}

func TestLoadConfigFile(t *testing.T) {
	dir := chdir(t)
	doc := "worker_url: http://file-worker/\nmax_tokens: 42\ncache_ttl: 0s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".routinebuilder.yaml"), []byte(doc), 0o644))

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "http://file-worker/", cfg.WorkerURL)
	assert.Equal(t, 42, cfg.MaxTokens)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL)
	assert.NotEmpty(t, cfg.ConfigFile)
}

func TestLoadExplicitConfigFileMissing(t *testing.T) {
	chdir(t)
	v := viper.New()
	v.Set("config", "does-not-exist.yaml")
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "ok", cfg: Config{WorkerURL: "http://w", MaxTokens: 1}},
		{name: "no worker", cfg: Config{MaxTokens: 1}, wantErr: true},
		{name: "zero tokens", cfg: Config{WorkerURL: "http://w"}, wantErr: true},
		{name: "negative timeout", cfg: Config{WorkerURL: "http://w", MaxTokens: 1, HTTPTimeout: -time.Second}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
