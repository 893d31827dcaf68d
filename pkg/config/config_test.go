package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2, cfg.Suggest.MinQuery)
	assert.Equal(t, 8, cfg.Suggest.Limit)
	assert.Equal(t, 300*time.Millisecond, cfg.Suggest.Debounce())
	assert.Equal(t, 10, cfg.Search.PageSize)
	assert.Equal(t, 5, cfg.Reserve.MaxActive)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[suggest]
min_query = 3
limit = 5
debounce_ms = 150

[catalog]
path = "books.yaml"
watch = true

[server]
reload_every = 10
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Suggest.MinQuery)
	assert.Equal(t, 5, cfg.Suggest.Limit)
	assert.Equal(t, 150*time.Millisecond, cfg.Suggest.Debounce())
	assert.Equal(t, "books.yaml", cfg.Catalog.Path)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, 10, cfg.Server.ReloadEvery)
	// untouched sections keep defaults
	assert.Equal(t, DefaultConfig().Search, cfg.Search)
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	// the wrong type in [search] breaks strict decoding, the rest still applies
	path := writeConfig(t, `
[suggest]
limit = 4

[search]
page_size = "twenty"
page_window = 7

[reserve]
max_active = 2
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Suggest.Limit)
	assert.Equal(t, 10, cfg.Search.PageSize)
	assert.Equal(t, 7, cfg.Search.PageWindow)
	assert.Equal(t, 2, cfg.Reserve.MaxActive)
}

func TestLoadConfigBrokenFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "[suggest\nlimit = = 3")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigSanitizes(t *testing.T) {
	path := writeConfig(t, "[suggest]\nmin_query = 0\nlimit = -2\n\n[search]\npage_size = 0\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Suggest.MinQuery)
	assert.Equal(t, 8, cfg.Suggest.Limit)
	assert.Equal(t, 10, cfg.Search.PageSize)
}

func TestInitConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	require.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfigWithPriorityCustomPath(t *testing.T) {
	path := writeConfig(t, "[reserve]\nmax_active = 9\n")
	cfg, used, err := LoadConfigWithPriority(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, 9, cfg.Reserve.MaxActive)
}

func TestGetActiveConfigPath(t *testing.T) {
	abs := GetActiveConfigPath("config.toml")
	assert.True(t, filepath.IsAbs(abs))
}
