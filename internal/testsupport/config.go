package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pegasus/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The config and log directories exist; ROM directories only when requested.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ConfigDir = filepath.Join(base, "config")
	cfgVal.Paths.ListFile = filepath.Join(cfgVal.Paths.ConfigDir, "dislikes.txt")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RomDirs = nil
	cfgVal.Watch.DebounceMS = 20
	cfgVal.Launcher.AmBinary = "pegasus-test-am"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithRomDirs creates n empty ROM directories and registers them.
func WithRomDirs(n int) ConfigOption {
	return func(b *configBuilder) {
		for i := 0; i < n; i++ {
			dir := filepath.Join(b.baseDir, fmt.Sprintf("roms%d", i+1))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				b.t.Fatalf("mkdir rom dir: %v", err)
			}
			b.cfg.Paths.RomDirs = append(b.cfg.Paths.RomDirs, dir)
		}
	}
}

// WithPortable enables portable list entries.
func WithPortable() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.General.Portable = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. Each stub echoes its arguments.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\necho \"$@\"\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ConfigDir)
}
