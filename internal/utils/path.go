package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// CatalogNames are the file names tried when no catalog path is given.
var CatalogNames = []string{"catalog.json", "catalog.yaml", "catalog.yml", "catalog.toml", "catalog.msgpack"}

// PathResolver finds catalog files relative to the places the bookserve binary
// is usually run from.
type PathResolver struct {
	executableDir string
	configDir     string
}

// NewPathResolver creates a resolver for the running executable. configDir is
// where the config file lives and is searched last.
func NewPathResolver(configDir string) *PathResolver {
	execDir, err := GetExecutableDir()
	if err != nil {
		log.Warnf("Could not determine executable directory: %v", err)
		execDir = "."
	}
	if configDir == "" {
		configDir = userConfigDir()
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", execDir, configDir)
	return &PathResolver{executableDir: execDir, configDir: configDir}
}

func userConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "bookserve")
	}
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "bookserve")
		}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "bookserve")
		}
	}
	return filepath.Join(homeDir, ".config", "bookserve")
}

// Candidates lists the paths tried for a catalog, in order. An empty
// userPath tries the default catalog names in every search directory.
func (pr *PathResolver) Candidates(userPath string) []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	dirs = append(dirs,
		pr.executableDir,
		filepath.Join(pr.executableDir, "data"),
		pr.configDir,
	)

	names := CatalogNames
	if userPath != "" {
		if filepath.IsAbs(userPath) {
			return []string{userPath}
		}
		names = []string{userPath}
	}

	candidates := make([]string, 0, len(dirs)*len(names))
	for _, dir := range dirs {
		for _, name := range names {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	return candidates
}

// ResolveCatalog returns the first existing catalog file for userPath.
func (pr *PathResolver) ResolveCatalog(userPath string) (string, error) {
	for _, path := range pr.Candidates(userPath) {
		if FileExists(path) {
			log.Debugf("Found catalog file: %s", path)
			return path, nil
		}
		log.Debugf("Catalog candidate not found: %s", path)
	}
	return "", os.ErrNotExist
}

// ConfigDir returns the directory searched last.
func (pr *PathResolver) ConfigDir() string {
	return pr.configDir
}

// DefaultCachePath is where the snapshot cache goes when none is configured.
func (pr *PathResolver) DefaultCachePath() string {
	return filepath.Join(pr.configDir, "cache", "catalog.msgpack")
}
