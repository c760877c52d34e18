package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the persistence root and catalog source directories.
type Paths struct {
	ConfigDir string   `toml:"config_dir"`
	ListFile  string   `toml:"list_file"`
	RomDirs   []string `toml:"rom_dirs"`
	LogDir    string   `toml:"log_dir"`
}

// General contains frontend-wide behaviour flags.
type General struct {
	// Portable stores list entries relative to the persistence root so the
	// list survives moving the whole tree to another machine.
	Portable bool `toml:"portable"`
}

// Tasks configures the background task pool.
type Tasks struct {
	MaxWorkers int `toml:"max_workers"`
}

// Watch configures the long-running watch mode.
type Watch struct {
	StorageEvents bool `toml:"storage_events"`
	ListEdits     bool `toml:"list_edits"`
	DebounceMS    int  `toml:"debounce_ms"`
}

// Launcher configures the activity launch fallback.
type Launcher struct {
	AmBinary       string `toml:"am_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for pegasus.
//
// Configuration sections by subsystem:
//   - Paths: persistence root, list file, ROM directories, logs
//   - General: portable mode
//   - Tasks: background task pool size
//   - Watch: storage hot-plug and list edit monitoring
//   - Launcher: `am` fallback for activity launches
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	General  General  `toml:"general"`
	Tasks    Tasks    `toml:"tasks"`
	Watch    Watch    `toml:"watch"`
	Launcher Launcher `toml:"launcher"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pegasus.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the persistence root and log directory.
// ROM directories are never created; a missing one only yields an empty catalog.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ConfigDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QuarantineDir returns the Trash directory under the persistence root.
func (c *Config) QuarantineDir() string {
	return filepath.Join(c.Paths.ConfigDir, QuarantineDirName)
}

// JournalPath returns the quarantine journal database path.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.ConfigDir, journalFileName)
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.ConfigDir, lockFileName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
