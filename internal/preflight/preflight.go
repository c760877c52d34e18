package preflight

import (
	"fmt"

	"pegasus/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail"`
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Config directory", cfg.Paths.ConfigDir),
		CheckListFile("List file", cfg.Paths.ListFile),
	}
	for i, dir := range cfg.Paths.RomDirs {
		results = append(results, CheckReadableDirectory(fmt.Sprintf("ROM directory %d", i+1), dir))
	}
	results = append(results, CheckBinary("Activity manager", cfg.Launcher.AmBinary, true))
	return results
}

// Failed returns the non-optional results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
