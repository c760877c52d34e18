package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"roms//snes/./mario.sfc", "roms/snes/mario.sfc"},
		{"/a/b/../c", "/a/c"},
		{"../up.zip", "../up.zip"},
	}
	for _, tc := range tests {
		if got := Clean(tc.in); got != tc.want {
			t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		in   string
		want string
	}{
		{"relative", "/home/u/.config/pegasus", "games/a.bin", "/home/u/.config/pegasus/games/a.bin"},
		{"parent", "/home/u/.config/pegasus", "../roms/b.bin", "/home/u/.config/roms/b.bin"},
		{"absolute", "/ignored", "/roms//x.bin", "/roms/x.bin"},
		{"empty", "/base", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.base, tc.in); got != tc.want {
				t.Fatalf("Resolve(%q, %q) = %q, want %q", tc.base, tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanAbsUsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if got := CleanAbs("x/../y.bin"); got != filepath.Join(wd, "y.bin") {
		t.Fatalf("unexpected abs path: %q", got)
	}
}

func TestRelativeTo(t *testing.T) {
	if got := RelativeTo("/data/pegasus", "/data/pegasus/roms/a.bin"); got != "roms/a.bin" {
		t.Fatalf("unexpected relative path: %q", got)
	}
	if got := RelativeTo("/data/pegasus", "/mnt/usb/b.bin"); got != "../../mnt/usb/b.bin" {
		t.Fatalf("unexpected relative path: %q", got)
	}
}

func TestKeyNormalizesUnicode(t *testing.T) {
	composed := "/roms/Pok\u00e9mon.gb"
	decomposed := "/roms/Poke\u0301mon.gb"
	if Key(composed) != Key(decomposed) {
		t.Fatalf("expected NFC keys to match: %q vs %q", Key(composed), Key(decomposed))
	}
}
