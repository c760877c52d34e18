package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTasks(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ConfigDir == "" {
		return errors.New("paths.config_dir must be set")
	}
	if c.Paths.ListFile == "" {
		return errors.New("paths.list_file must be set")
	}
	if filepath.Clean(c.Paths.ListFile) == filepath.Clean(c.QuarantineDir()) {
		return fmt.Errorf("paths.list_file must not be the quarantine directory %q", c.QuarantineDir())
	}
	if rel, err := filepath.Rel(c.QuarantineDir(), c.Paths.ListFile); err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("paths.list_file must live outside %q; purge would delete it", c.QuarantineDir())
	}
	return nil
}

func (c *Config) validateTasks() error {
	if c.Tasks.MaxWorkers > 64 {
		return fmt.Errorf("tasks.max_workers must be at most 64, got %d", c.Tasks.MaxWorkers)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
