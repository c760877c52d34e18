package config

const (
	defaultConfigPath       = "~/.config/pegasus/config.toml"
	defaultConfigDir        = "~/.config/pegasus-frontend"
	defaultLogDir           = "~/.local/share/pegasus-frontend/logs"
	defaultListFileName     = "dislikes.txt"
	defaultMaxWorkers       = 2
	defaultWatchDebounceMS  = 750
	defaultAmBinary         = "am"
	defaultLauncherTimeout  = 15
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	journalFileName         = "trash.db"
	lockFileName            = "pegasus.lock"
	envConfigDir            = "PEGASUS_CONFIG_DIR"
	envPortable             = "PEGASUS_PORTABLE"
)

// QuarantineDirName is the fixed Trash subdirectory of the persistence root.
const QuarantineDirName = "Trash"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ConfigDir: defaultConfigDir,
			LogDir:    defaultLogDir,
			RomDirs:   []string{"~/roms"},
		},
		Tasks: Tasks{
			MaxWorkers: defaultMaxWorkers,
		},
		Watch: Watch{
			StorageEvents: true,
			ListEdits:     true,
			DebounceMS:    defaultWatchDebounceMS,
		},
		Launcher: Launcher{
			AmBinary:       defaultAmBinary,
			TimeoutSeconds: defaultLauncherTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
