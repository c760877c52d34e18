package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTasks()
	c.normalizeWatch()
	c.normalizeLauncher()
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(envConfigDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.ConfigDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(envPortable); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			c.General.Portable = parsed
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ConfigDir) == "" {
		c.Paths.ConfigDir = defaultConfigDir
	}
	if c.Paths.ConfigDir, err = expandPath(c.Paths.ConfigDir); err != nil {
		return fmt.Errorf("paths.config_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ListFile) == "" {
		c.Paths.ListFile = filepath.Join(c.Paths.ConfigDir, defaultListFileName)
	}
	if c.Paths.ListFile, err = expandPath(c.Paths.ListFile); err != nil {
		return fmt.Errorf("paths.list_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	dirs := make([]string, 0, len(c.Paths.RomDirs))
	seen := make(map[string]struct{}, len(c.Paths.RomDirs))
	for _, dir := range c.Paths.RomDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("paths.rom_dirs: %w", err)
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		dirs = append(dirs, expanded)
	}
	c.Paths.RomDirs = dirs
	return nil
}

func (c *Config) normalizeTasks() {
	if c.Tasks.MaxWorkers <= 0 {
		c.Tasks.MaxWorkers = defaultMaxWorkers
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.DebounceMS <= 0 {
		c.Watch.DebounceMS = defaultWatchDebounceMS
	}
}

func (c *Config) normalizeLauncher() {
	c.Launcher.AmBinary = strings.TrimSpace(c.Launcher.AmBinary)
	if c.Launcher.AmBinary == "" {
		c.Launcher.AmBinary = defaultAmBinary
	}
	if c.Launcher.TimeoutSeconds <= 0 {
		c.Launcher.TimeoutSeconds = defaultLauncherTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
