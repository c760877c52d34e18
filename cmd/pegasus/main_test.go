package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pegasus/internal/config"
	"pegasus/internal/daemon"
	"pegasus/internal/quarantine"
	"pegasus/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	romDir     string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("PEGASUS_CONFIG_DIR", "")
	t.Setenv("PEGASUS_PORTABLE", "")

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithRomDirs(1)}, opts...)...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, romDir: cfg.Paths.RomDirs[0]}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nconfig_dir = %q\nlist_file = %q\nrom_dirs = [%q]\nlog_dir = %q\n\n"+
			"[watch]\nstorage_events = false\ndebounce_ms = 20\n\n"+
			"[launcher]\nam_binary = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.ConfigDir,
		cfg.Paths.ListFile,
		cfg.Paths.RomDirs[0],
		cfg.Paths.LogDir,
		cfg.Launcher.AmBinary,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func TestCLIFlagListAndTrashFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	keep := testsupport.WriteROM(t, env.romDir, "snes/Keeper.sfc")
	drop := testsupport.WriteROM(t, env.romDir, "snes/Dropper.sfc")

	out, _, err := runCLI(t, []string{"flag", drop}, env.configPath)
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	requireContains(t, out, "Flagged 1 of 1")

	data, err := os.ReadFile(env.cfg.Paths.ListFile)
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	requireContains(t, string(data), drop)

	out, _, err = runCLI(t, []string{"--json", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var entries []daemon.ListEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(entries) != 1 || !entries[0].Resolved || entries[0].Title != "Dropper" {
		t.Fatalf("unexpected list entries: %+v", entries)
	}

	out, _, err = runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list table: %v", err)
	}
	requireContains(t, out, "Dropper")
	requireContains(t, out, "matched")

	out, _, err = runCLI(t, []string{"--json", "trash", "move"}, env.configPath)
	if err != nil {
		t.Fatalf("trash move: %v", err)
	}
	var moved quarantine.Result
	if err := json.Unmarshal([]byte(out), &moved); err != nil {
		t.Fatalf("decode move result: %v\n%s", err, out)
	}
	if moved.Success != 1 || moved.Failed != 0 {
		t.Fatalf("unexpected move result: %+v", moved)
	}
	if _, err := os.Stat(drop); !os.IsNotExist(err) {
		t.Fatalf("expected %s moved, stat err=%v", drop, err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("unflagged rom should stay: %v", err)
	}

	out, _, err = runCLI(t, []string{"--json", "trash", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("trash list: %v", err)
	}
	var trashed []quarantine.Entry
	if err := json.Unmarshal([]byte(out), &trashed); err != nil {
		t.Fatalf("decode trash list: %v\n%s", err, out)
	}
	if len(trashed) != 1 || trashed[0].Record == nil {
		t.Fatalf("unexpected trash entries: %+v", trashed)
	}

	out, _, err = runCLI(t, []string{"trash", "restore", trashed[0].Record.ID}, env.configPath)
	if err != nil {
		t.Fatalf("trash restore: %v", err)
	}
	requireContains(t, out, "Restored "+drop)
	if _, err := os.Stat(drop); err != nil {
		t.Fatalf("expected %s restored: %v", drop, err)
	}

	out, _, err = runCLI(t, []string{"trash", "purge"}, env.configPath)
	if err != nil {
		t.Fatalf("trash purge: %v", err)
	}
	requireContains(t, out, "Purged: 0 file(s)")
}

func TestCLIFlagWithoutMatchFails(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"flag", "/no/such/game.rom"}, env.configPath)
	if err == nil {
		t.Fatal("expected error when nothing matches")
	}
	requireContains(t, out, "no game matches /no/such/game.rom")
}

func TestCLIUnflagRemovesEntry(t *testing.T) {
	env := setupCLITestEnv(t)
	rom := testsupport.WriteROM(t, env.romDir, "gb/Tiny.gb")
	if err := os.WriteFile(env.cfg.Paths.ListFile, []byte(rom+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runCLI(t, []string{"unflag", rom}, env.configPath); err != nil {
		t.Fatalf("unflag: %v", err)
	}
	data, err := os.ReadFile(env.cfg.Paths.ListFile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), rom) {
		t.Fatalf("expected entry removed, got:\n%s", data)
	}
}

func TestCLIStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteROM(t, env.romDir, "pce/Blaster.pce")

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Paths ==")
	requireContains(t, out, "1 games, 0 disliked")
	requireContains(t, out, "not created yet")

	out, _, err = runCLI(t, []string{"--json", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status json: %v", err)
	}
	var st daemon.Status
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Games != 1 || st.ListFile != env.cfg.Paths.ListFile {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestCLILaunchFallsBackToAm(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries("pegasus-test-am"))
	out, _, err := runCLI(t, []string{"launch", "--", "start", "-n", "org.example/.Main"}, env.configPath)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	requireContains(t, out, "Activity started")
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "pegasus", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	requireContains(t, out, "List file:")
	requireContains(t, out, filepath.Join("pegasus-frontend", "Trash"))

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.ListFile)
	requireContains(t, out, env.cfg.QuarantineDir())

	out, _, err = runCLI(t, []string{"--json", "config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate --json: %v", err)
	}
	var report configReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if !report.Exists || report.ListFile != env.cfg.Paths.ListFile || report.QuarantineDir != env.cfg.QuarantineDir() {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Checks) == 0 {
		t.Fatal("expected preflight checks in the report")
	}
}

func TestCLISecondInstanceRejected(t *testing.T) {
	env := setupCLITestEnv(t)
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	holder, err := daemon.Open(t.Context(), cfg, nil)
	if err != nil {
		t.Fatalf("open holder: %v", err)
	}
	defer holder.Close()

	_, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "another pegasus instance") {
		t.Fatalf("expected lock error, got %v", err)
	}
}
