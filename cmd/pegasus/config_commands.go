package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pegasus/internal/config"
	"pegasus/internal/preflight"
)

// configReport describes where a configuration puts the dislike list and
// its quarantine.
type configReport struct {
	ConfigPath    string             `json:"config_path"`
	Exists        bool               `json:"exists"`
	ConfigDir     string             `json:"config_dir"`
	ListFile      string             `json:"list_file"`
	QuarantineDir string             `json:"quarantine_dir"`
	JournalPath   string             `json:"journal_path"`
	RomDirs       []string           `json:"rom_dirs"`
	Portable      bool               `json:"portable"`
	Checks        []preflight.Result `json:"checks,omitempty"`
}

func newConfigReport(cfg *config.Config, path string, exists bool) configReport {
	return configReport{
		ConfigPath:    path,
		Exists:        exists,
		ConfigDir:     cfg.Paths.ConfigDir,
		ListFile:      cfg.Paths.ListFile,
		QuarantineDir: cfg.QuarantineDir(),
		JournalPath:   cfg.JournalPath(),
		RomDirs:       cfg.Paths.RomDirs,
		Portable:      cfg.General.Portable,
	}
}

func (r configReport) writePaths(out io.Writer) {
	fmt.Fprintf(out, "Persistence root: %s\n", r.ConfigDir)
	fmt.Fprintf(out, "List file:        %s\n", r.ListFile)
	fmt.Fprintf(out, "Trash:            %s\n", r.QuarantineDir)
	fmt.Fprintf(out, "Journal:          %s\n", r.JournalPath)
	roms := "(none)"
	if len(r.RomDirs) > 0 {
		roms = strings.Join(r.RomDirs, ", ")
	}
	fmt.Fprintf(out, "ROM directories:  %s\n", roms)
	fmt.Fprintf(out, "Portable entries: %s\n", yesNo(r.Portable))
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the pegasus configuration",
	}
	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration and show where it keeps the list and Trash",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("load written config: %w", err)
			}
			report := newConfigReport(cfg, target, true)

			return ctx.emit(cmd, report, func() error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Wrote sample configuration to %s\n\n", target)
				report.writePaths(out)
				fmt.Fprintln(out, "\nSet paths.rom_dirs to the folders holding your games.")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	target := strings.TrimSpace(flagValue)
	if target == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and check its directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			report := newConfigReport(cfg, ctx.configPath, ctx.configExists)
			report.Checks = preflight.RunAll(cfg)

			return ctx.emit(cmd, report, func() error {
				out := cmd.OutOrStdout()
				if report.ConfigPath != "" {
					fmt.Fprintf(out, "Config path:      %s\n", report.ConfigPath)
				}
				if !report.Exists {
					fmt.Fprintln(out, "Config file not found; using defaults")
				}
				report.writePaths(out)
				// Failing checks are reported but do not invalidate the file.
				for _, r := range report.Checks {
					if !r.Passed {
						fmt.Fprintf(out, "Warning: %s: %s\n", r.Name, r.Detail)
					}
				}
				fmt.Fprintln(out, "Configuration valid")
				return nil
			})
		},
	}
}
