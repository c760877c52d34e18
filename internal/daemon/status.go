package daemon

import (
	"context"

	"pegasus/internal/dislikes"
	"pegasus/internal/preflight"
)

// Status is a point-in-time summary of the service.
type Status struct {
	ConfigDir        string             `json:"config_dir"`
	ListFile         string             `json:"list_file"`
	QuarantineDir    string             `json:"quarantine_dir"`
	JournalPath      string             `json:"journal_path"`
	JournalAvailable bool               `json:"journal_available"`
	LockPath         string             `json:"lock_path"`
	Portable         bool               `json:"portable"`
	RomDirs          []string           `json:"rom_dirs"`
	Games            int                `json:"games"`
	Disliked         int                `json:"disliked"`
	Load             dislikes.LoadStats `json:"load"`
	WriteState       string             `json:"write_state"`
	Writes           int                `json:"writes"`
	TrashFiles       int                `json:"trash_files"`
	TrashBytes       int64              `json:"trash_bytes"`
	Checks           []preflight.Result `json:"checks"`
}

// Status gathers counts and preflight results.
func (s *Service) Status(ctx context.Context) Status {
	queue := s.provider.Queue()
	st := Status{
		ConfigDir:        s.cfg.Paths.ConfigDir,
		ListFile:         s.cfg.Paths.ListFile,
		QuarantineDir:    s.cfg.QuarantineDir(),
		JournalPath:      s.cfg.JournalPath(),
		JournalAvailable: s.journal != nil,
		LockPath:         s.cfg.LockPath(),
		Portable:         s.cfg.General.Portable,
		RomDirs:          append([]string(nil), s.cfg.Paths.RomDirs...),
		Games:            len(s.catalog.Games()),
		Disliked:         s.catalog.DislikedCount(),
		Load:             s.provider.LastLoad(),
		WriteState:       queue.State().String(),
		Writes:           queue.Writes(),
		Checks:           preflight.RunAll(s.cfg),
	}
	if entries, err := s.quarantine.Entries(ctx); err == nil {
		st.TrashFiles = len(entries)
		for _, e := range entries {
			st.TrashBytes += e.SizeBytes
		}
	}
	return st
}
