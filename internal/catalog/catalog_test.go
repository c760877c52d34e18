package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookupByURIAndPath(t *testing.T) {
	steam := &Game{Title: "Portal", Files: []*File{{Path: "steam:400"}}}
	local := &Game{Title: "Mario", Files: []*File{{Path: "/roms/snes//mario.sfc"}}}
	c := New(steam, local)

	if got := c.GameByURI("steam:400"); got != steam {
		t.Fatalf("GameByURI returned %v", got)
	}
	if got := c.GameByFilePath("/roms/snes/mario.sfc"); got != local {
		t.Fatalf("GameByFilePath returned %v", got)
	}
	if c.GameByURI("/roms/snes/mario.sfc") != nil {
		t.Fatal("filesystem paths must not match the URI index")
	}
	if c.GameByFilePath("/roms/other.sfc") != nil {
		t.Fatal("expected no match for unknown path")
	}
}

func TestFirstGameWinsSharedFile(t *testing.T) {
	first := &Game{Title: "A", Files: []*File{{Path: "/roms/shared.bin"}}}
	second := &Game{Title: "B", Files: []*File{{Path: "/roms/shared.bin"}}}
	c := New(first, second)
	if c.GameByFilePath("/roms/shared.bin") != first {
		t.Fatal("expected first game in traversal order to own the path")
	}
}

func TestSetDislikedNotifiesOnlyOnChange(t *testing.T) {
	game := &Game{Title: "A", Files: []*File{{Path: "/a"}}}
	c := New(game)
	calls := 0
	unsubscribe := c.OnDislikeChanged(func(games []*Game) {
		calls++
		if len(games) != 1 {
			t.Errorf("expected full traversal, got %d games", len(games))
		}
	})

	c.SetDisliked(game, true)
	c.SetDisliked(game, true)
	c.SetDisliked(game, false)
	if calls != 2 {
		t.Fatalf("expected 2 notifications, got %d", calls)
	}

	unsubscribe()
	c.SetDisliked(game, true)
	if calls != 2 {
		t.Fatalf("expected no notification after unsubscribe, got %d", calls)
	}
}

func TestMarkAndClearAreSilent(t *testing.T) {
	game := &Game{Title: "A"}
	c := New(game)
	c.OnDislikeChanged(func([]*Game) { t.Fatal("unexpected notification") })

	game.MarkDisliked(true)
	if c.DislikedCount() != 1 {
		t.Fatalf("expected one flagged game")
	}
	c.ClearDisliked()
	if game.Disliked() {
		t.Fatal("expected flag cleared")
	}
}

func TestFileIsURI(t *testing.T) {
	tests := map[string]bool{
		"steam:400":       true,
		"android:com.foo": true,
		"/roms/a.bin":     false,
		"roms/a.bin":      false,
		"C:/roms/a.bin":   false,
		"":                false,
	}
	for path, want := range tests {
		if got := (&File{Path: path}).IsURI(); got != want {
			t.Errorf("IsURI(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestScanBuildsCollectionsAndMultiDisc(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) string {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(rel), 0o644); err != nil {
			t.Fatal(err)
		}
		return full
	}
	write("snes/super_mario-world.sfc")
	write("snes/.hidden.sfc")
	playlist := write("psx/Final Fantasy VII/Final Fantasy VII.m3u")
	write("psx/Final Fantasy VII/disc1.cue")
	write("psx/Final Fantasy VII/disc2.cue")
	write("psx/junk/notes.txt")
	write("loose.gb")

	games := Scan([]string{root, filepath.Join(root, "missing")}, nil)
	if len(games) != 3 {
		t.Fatalf("expected 3 games, got %d", len(games))
	}

	c := New(games...)
	ff := c.GameByFilePath(playlist)
	if ff == nil || ff.Collection != "psx" || len(ff.Files) != 3 {
		t.Fatalf("unexpected multi-disc game: %+v", ff)
	}
	if c.GameByFilePath(filepath.Join(root, "psx", "Final Fantasy VII", "disc2.cue")) != ff {
		t.Fatal("expected disc file to resolve to the multi-disc game")
	}

	mario := c.GameByFilePath(filepath.Join(root, "snes", "super_mario-world.sfc"))
	if mario == nil || mario.Title != "Super Mario World" {
		t.Fatalf("unexpected title: %+v", mario)
	}
	if c.GameByFilePath(filepath.Join(root, "snes", ".hidden.sfc")) != nil {
		t.Fatal("hidden files must be skipped")
	}
	if c.GameByFilePath(filepath.Join(root, "loose.gb")) == nil {
		t.Fatal("expected loose file at root to be a game")
	}
}
