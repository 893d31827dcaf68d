/*
Package config manages TOML config for bookserve.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/bookserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Suggest SuggestConfig `toml:"suggest"`
	Search  SearchConfig  `toml:"search"`
	Catalog CatalogConfig `toml:"catalog"`
	Reserve ReserveConfig `toml:"reserve"`
	Server  ServerConfig  `toml:"server"`
}

// SuggestConfig has the suggestion engine and debounce options.
type SuggestConfig struct {
	MinQuery   int `toml:"min_query"`
	Limit      int `toml:"limit"`
	DebounceMs int `toml:"debounce_ms"`
}

// SearchConfig holds search and pagination options.
type SearchConfig struct {
	PageSize   int `toml:"page_size"`
	MaxQuery   int `toml:"max_query"`
	PageWindow int `toml:"page_window"`
}

// CatalogConfig says where the catalog comes from.
type CatalogConfig struct {
	Path      string `toml:"path"`
	CachePath string `toml:"cache_path"`
	Watch     bool   `toml:"watch"`
}

// ReserveConfig holds reservation limits.
type ReserveConfig struct {
	MaxActive int `toml:"max_active"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	ReloadEvery int `toml:"reload_every"`
}

// Debounce returns the configured debounce delay.
func (s SuggestConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/bookserve
// 2. ~/Library/Application Support/bookserve (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "bookserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "bookserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/bookserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}
	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Suggest: SuggestConfig{
			MinQuery:   2,
			Limit:      8,
			DebounceMs: 300,
		},
		Search: SearchConfig{
			PageSize:   10,
			MaxQuery:   200,
			PageWindow: 5,
		},
		Catalog: CatalogConfig{
			Path:      "",
			CachePath: "",
			Watch:     false,
		},
		Reserve: ReserveConfig{
			MaxActive: 5,
		},
		Server: ServerConfig{
			ReloadEvery: 200,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. A file that does not parse as a whole
// is read section by section, keeping the defaults for whatever is broken.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	config.sanitize()
	return config, nil
}

func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "suggest"); ok {
		extractSuggestConfig(section, &config.Suggest)
	}
	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "catalog"); ok {
		extractCatalogConfig(section, &config.Catalog)
	}
	if section, ok := utils.ExtractSection(tempConfig, "reserve"); ok {
		if val, ok := utils.ExtractInt(section, "max_active"); ok {
			config.Reserve.MaxActive = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		if val, ok := utils.ExtractInt(section, "reload_every"); ok {
			config.Server.ReloadEvery = val
		}
	}
	config.sanitize()
	return config, nil
}

func extractSuggestConfig(data map[string]any, s *SuggestConfig) {
	if val, ok := utils.ExtractInt(data, "min_query"); ok {
		s.MinQuery = val
	}
	if val, ok := utils.ExtractInt(data, "limit"); ok {
		s.Limit = val
	}
	if val, ok := utils.ExtractInt(data, "debounce_ms"); ok {
		s.DebounceMs = val
	}
}

func extractSearchConfig(data map[string]any, s *SearchConfig) {
	if val, ok := utils.ExtractInt(data, "page_size"); ok {
		s.PageSize = val
	}
	if val, ok := utils.ExtractInt(data, "max_query"); ok {
		s.MaxQuery = val
	}
	if val, ok := utils.ExtractInt(data, "page_window"); ok {
		s.PageWindow = val
	}
}

func extractCatalogConfig(data map[string]any, c *CatalogConfig) {
	if val, ok := utils.ExtractString(data, "path"); ok {
		c.Path = val
	}
	if val, ok := utils.ExtractString(data, "cache_path"); ok {
		c.CachePath = val
	}
	if val, ok := utils.ExtractBool(data, "watch"); ok {
		c.Watch = val
	}
}

// sanitize replaces values that would break the engine with defaults.
func (c *Config) sanitize() {
	def := DefaultConfig()
	if c.Suggest.MinQuery < 1 {
		log.Warnf("suggest.min_query %d is invalid, using %d", c.Suggest.MinQuery, def.Suggest.MinQuery)
		c.Suggest.MinQuery = def.Suggest.MinQuery
	}
	if c.Suggest.Limit < 1 {
		log.Warnf("suggest.limit %d is invalid, using %d", c.Suggest.Limit, def.Suggest.Limit)
		c.Suggest.Limit = def.Suggest.Limit
	}
	if c.Suggest.DebounceMs < 0 {
		c.Suggest.DebounceMs = def.Suggest.DebounceMs
	}
	if c.Search.PageSize < 1 {
		c.Search.PageSize = def.Search.PageSize
	}
	if c.Search.PageWindow < 1 {
		c.Search.PageWindow = def.Search.PageWindow
	}
	if c.Search.MaxQuery < 0 {
		c.Search.MaxQuery = 0
	}
	if c.Reserve.MaxActive < 0 {
		c.Reserve.MaxActive = 0
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
