package quarantine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pegasus/internal/events"
	"pegasus/internal/listfile"
	"pegasus/internal/tasks"
)

type fixture struct {
	root     string
	listPath string
	trash    string
	manager  *Manager
	journal  *Journal
	events   func() []events.Event
}

func newFixture(t *testing.T, withJournal bool) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:     root,
		listPath: filepath.Join(root, "dislikes.txt"),
		trash:    filepath.Join(root, "Trash"),
	}
	if withJournal {
		journal, err := OpenJournal(filepath.Join(root, "trash.db"))
		if err != nil {
			t.Fatalf("open journal: %v", err)
		}
		t.Cleanup(func() { _ = journal.Close() })
		f.journal = journal
	}

	pool := tasks.New(2, nil)
	t.Cleanup(pool.Close)
	bus := events.NewBus(nil)
	var mu sync.Mutex
	var seen []events.Event
	bus.Subscribe(func(e events.Event) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})
	f.events = func() []events.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]events.Event(nil), seen...)
	}
	f.manager = NewManager(Options{ListPath: f.listPath, Dir: f.trash}, &listfile.Guard{}, f.journal, pool, bus, nil)
	f.manager.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC) }
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (f *fixture) list(t *testing.T, entries ...string) {
	t.Helper()
	lines := append(listfile.HeaderLines(), entries...)
	if err := os.WriteFile(f.listPath, listfile.Format(lines), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readTrash(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestMoveFlaggedMovesListedFiles(t *testing.T) {
	f := newFixture(t, false)
	a := f.write(t, "roms/a.bin", "a")
	b := f.write(t, "roms/b.bin", "b")
	f.list(t, "roms/a.bin", b)

	result := f.manager.MoveFlagged(context.Background())
	if result.Success != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, src := range []string{a, b} {
		if _, err := os.Stat(src); !os.IsNotExist(err) {
			t.Fatalf("expected %s moved away, stat err=%v", src, err)
		}
	}
	if readTrash(t, f.trash, "a.bin") != "a" || readTrash(t, f.trash, "b.bin") != "b" {
		t.Fatal("unexpected quarantine content")
	}

	got := f.events()
	if len(got) != 2 || got[0].Kind != events.DeleteStarted || got[1].Kind != events.DeleteFinished {
		t.Fatalf("unexpected events: %+v", got)
	}
	if got[1].Op != events.OpMove || got[1].Success != 2 || got[1].Failed != 0 {
		t.Fatalf("unexpected finished event: %+v", got[1])
	}
}

func TestMoveFlaggedCollisionUsesTimestampSuffix(t *testing.T) {
	f := newFixture(t, false)
	if err := os.MkdirAll(f.trash, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.trash, "save.dat"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.write(t, "one/save.dat", "one")
	f.write(t, "two/save.dat", "two")
	f.list(t, "one/save.dat", "two/save.dat")

	result := f.manager.MoveFlagged(context.Background())
	if result.Success != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if readTrash(t, f.trash, "save.dat") != "old" {
		t.Fatal("existing quarantine entry was overwritten")
	}
	if readTrash(t, f.trash, "save.dat.20240102_030405006") != "one" {
		t.Fatal("expected first collision to use the timestamp suffix")
	}
	if readTrash(t, f.trash, "save.dat.20240102_030405006-1") != "two" {
		t.Fatal("expected second collision in the same millisecond to add a counter")
	}
}

func TestMoveFlaggedRejectsMissingAndNonRegular(t *testing.T) {
	f := newFixture(t, false)
	if err := os.MkdirAll(filepath.Join(f.root, "somedir"), 0o755); err != nil {
		t.Fatal(err)
	}
	ok := f.write(t, "ok.bin", "ok")
	f.list(t, "missing.bin", "somedir", "ok.bin")

	result := f.manager.MoveFlagged(context.Background())
	if result.Success != 1 || result.Failed != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := os.Stat(ok); !os.IsNotExist(err) {
		t.Fatal("expected valid entry to be moved despite earlier failures")
	}
	if info, err := os.Stat(filepath.Join(f.root, "somedir")); err != nil || !info.IsDir() {
		t.Fatal("directory target must be left in place")
	}
}

func TestMoveFlaggedMissingListIsZeroZero(t *testing.T) {
	f := newFixture(t, false)
	result := f.manager.MoveFlagged(context.Background())
	if result.Success != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := os.Stat(f.trash); !os.IsNotExist(err) {
		t.Fatal("quarantine directory should only be created when needed")
	}
}

func TestMoveFileFailureLeavesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	if err := os.WriteFile(src, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A non-empty directory at dst defeats both rename and the copy fallback.
	dst := filepath.Join(dir, "dst")
	if err := os.MkdirAll(filepath.Join(dst, "child"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := moveFile(src, dst)
	if !errors.Is(err, ErrMove) {
		t.Fatalf("expected ErrMove, got %v", err)
	}
	data, readErr := os.ReadFile(src)
	if readErr != nil || string(data) != "keep" {
		t.Fatalf("source modified after failed move: %q %v", data, readErr)
	}
}

func TestPurgeRemovesDirectFilesOnly(t *testing.T) {
	f := newFixture(t, false)
	for _, name := range []string{"a", "b"} {
		f.write(t, filepath.Join("Trash", name), name)
	}
	nested := f.write(t, filepath.Join("Trash", "sub", "c"), "c")

	result := f.manager.Purge(context.Background())
	if result.Success != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := os.Stat(nested); err != nil {
		t.Fatal("purge must not recurse into subdirectories")
	}
	got := f.events()
	if last := got[len(got)-1]; last.Kind != events.DeleteFinished || last.Op != events.OpPurge || last.Success != 2 {
		t.Fatalf("unexpected finished event: %+v", last)
	}
}

func TestPurgeMissingDirectoryReportsZero(t *testing.T) {
	f := newFixture(t, false)
	result := f.manager.Purge(context.Background())
	if result.Success != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	got := f.events()
	if len(got) != 2 || got[1].Kind != events.DeleteFinished {
		t.Fatalf("expected started and finished events, got %+v", got)
	}
}

func TestJournalRestoreAndPurge(t *testing.T) {
	f := newFixture(t, true)
	src := f.write(t, "roms/game.bin", "data")
	f.list(t, "roms/game.bin")
	ctx := context.Background()

	if result := f.manager.MoveFlagged(ctx); result.Success != 1 {
		t.Fatalf("unexpected move result: %+v", result)
	}
	entries, err := f.manager.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Record == nil || entries[0].Record.OriginalPath != src {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Record.SizeBytes != 4 {
		t.Fatalf("unexpected recorded size: %d", entries[0].Record.SizeBytes)
	}

	rec, err := f.manager.Restore(ctx, entries[0].Record.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if rec.OriginalPath != src {
		t.Fatalf("unexpected restored record: %+v", rec)
	}
	if data, err := os.ReadFile(src); err != nil || string(data) != "data" {
		t.Fatalf("expected file back in place: %q %v", data, err)
	}
	if _, err := f.manager.Restore(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after restore, got %v", err)
	}

	if result := f.manager.MoveFlagged(ctx); result.Success != 1 {
		t.Fatalf("unexpected second move: %+v", result)
	}
	if result := f.manager.Purge(ctx); result.Success != 1 {
		t.Fatalf("unexpected purge: %+v", result)
	}
	records, err := f.journal.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("expected purge to clear journal rows, got %+v", records)
	}
	if _, err := os.Stat(f.journal.Path()); err != nil {
		t.Fatal("journal database must survive a purge")
	}
}

func TestRestoreRefusesToOverwrite(t *testing.T) {
	f := newFixture(t, true)
	src := f.write(t, "a.bin", "first")
	f.list(t, "a.bin")
	ctx := context.Background()
	f.manager.MoveFlagged(ctx)
	f.write(t, "a.bin", "replacement")

	entries, err := f.manager.Entries(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Entries: %v %+v", err, entries)
	}
	if _, err := f.manager.Restore(ctx, entries[0].Record.ID); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
	if data, _ := os.ReadFile(src); string(data) != "replacement" {
		t.Fatal("existing file was overwritten")
	}
}

func TestStartMoveAndPurgeAreSerialized(t *testing.T) {
	f := newFixture(t, false)
	var names []string
	for i := 0; i < 20; i++ {
		name := filepath.Join("roms", string(rune('a'+i))+".bin")
		f.write(t, name, "x")
		names = append(names, name)
	}
	f.list(t, names...)

	ctx := context.Background()
	if !f.manager.StartMoveFlagged(ctx) || !f.manager.StartPurge(ctx) {
		t.Fatal("expected both operations to be scheduled")
	}

	deadline := time.Now().Add(5 * time.Second)
	var finished []events.Event
	for time.Now().Before(deadline) {
		finished = finished[:0]
		for _, e := range f.events() {
			if e.Kind == events.DeleteFinished {
				finished = append(finished, e)
			}
		}
		if len(finished) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(finished) != 2 {
		t.Fatalf("expected two finished events, got %+v", finished)
	}
	// Either order is legal; serialization means each run saw a consistent directory.
	total := 0
	for _, e := range finished {
		if e.Failed != 0 {
			t.Fatalf("unexpected failures: %+v", e)
		}
		total += e.Success
	}
	if total != 20 && total != 40 {
		t.Fatalf("unexpected combined successes %d", total)
	}
}
