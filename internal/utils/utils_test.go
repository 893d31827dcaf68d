package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func TestFold(t *testing.T) {
	// "e" followed by a combining acute accent folds to the composed form
	assert.Equal(t, Fold("Émile"), Fold("Émile"))
	assert.Equal(t, "dune", Fold("DUNE"))
	assert.Equal(t, 5, CharLen("Émile"))
	assert.Equal(t, 5, CharLen(Fold("Émile")))
}

func TestCreateRankList(t *testing.T) {
	assert.Equal(t, []uint16{}, CreateRankList(0))
	assert.Equal(t, []uint16{1, 2, 3}, CreateRankList(3))
}

func TestSeenFilter(t *testing.T) {
	f := NewSeenFilter()
	assert.True(t, f.Add("dune"))
	assert.False(t, f.Add("dune"))
	assert.True(t, f.Add("Dune"))
	assert.Equal(t, 2, f.Len())
}

func TestExtractors(t *testing.T) {
	section := map[string]any{
		"limit": int64(4),
		"ratio": 2.0,
		"half":  2.5,
		"watch": true,
		"path":  "books.json",
	}
	n, ok := ExtractInt(section, "limit")
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	n, ok = ExtractInt(section, "ratio")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = ExtractInt(section, "half")
	assert.False(t, ok)
	_, ok = ExtractInt(section, "path")
	assert.False(t, ok)

	b, ok := ExtractBool(section, "watch")
	assert.True(t, ok)
	assert.True(t, b)

	s, ok := ExtractString(section, "path")
	assert.True(t, ok)
	assert.Equal(t, "books.json", s)

	_, ok = ExtractSection(map[string]any{"suggest": 3}, "suggest")
	assert.False(t, ok)
}

func TestSaveAndLoadTOML(t *testing.T) {
	type cfg struct {
		Name  string `toml:"name"`
		Limit int    `toml:"limit"`
	}
	path := filepath.Join(t.TempDir(), "out.toml")
	require.NoError(t, SaveTOMLFile(cfg{Name: "books", Limit: 3}, path))
	assert.NoFileExists(t, path+".tmp")

	var got cfg
	require.NoError(t, LoadTOMLFile(path, &got))
	assert.Equal(t, cfg{Name: "books", Limit: 3}, got)

	raw, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	assert.Equal(t, "books", raw["name"])
}

func TestPathResolver(t *testing.T) {
	dir := t.TempDir()
	pr := &PathResolver{executableDir: filepath.Join(dir, "bin"), configDir: filepath.Join(dir, "cfg")}

	abs := filepath.Join(dir, "x.json")
	assert.Equal(t, []string{abs}, pr.Candidates(abs))

	candidates := pr.Candidates("")
	assert.Contains(t, candidates, filepath.Join(dir, "cfg", "catalog.yaml"))
	assert.Contains(t, candidates, filepath.Join(dir, "bin", "data", "catalog.json"))

	_, err := pr.ResolveCatalog("missing-catalog.json")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, EnsureDir(pr.configDir))
	want := filepath.Join(pr.configDir, "catalog.toml")
	require.NoError(t, os.WriteFile(want, []byte("[[entries]]\n"), 0644))
	got, err := pr.ResolveCatalog("")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Equal(t, filepath.Join(dir, "cfg", "cache", "catalog.msgpack"), pr.DefaultCachePath())
}

func TestCheckDirStatus(t *testing.T) {
	dir := t.TempDir()
	res := CheckDirStatus(dir)
	assert.True(t, res.Exists)
	assert.True(t, res.Writable)

	nested := filepath.Join(dir, "cache", "deep")
	res = CheckDirStatus(nested)
	assert.True(t, res.Exists)
	assert.DirExists(t, nested)
}
