package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestTIFFPaths(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.tif"), 10)
	touch(t, filepath.Join(dir, "b.TIFF"), 20)
	touch(t, filepath.Join(dir, "._a.tif"), 5) // AppleDouble dropping
	touch(t, filepath.Join(dir, "notes.txt"), 5)
	if err := os.Mkdir(filepath.Join(dir, "sub.tif"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, size, err := TIFFPaths(dir)
	if err != nil {
		t.Fatalf("TIFFPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("found %d files %v, want 2", len(paths), paths)
	}
	if size != 30 {
		t.Errorf("total size = %d, want 30", size)
	}
}

func TestVolumesPairsSidecars(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "head.tif"), 10)
	touch(t, filepath.Join(dir, "head_4x4x2.raw"), 32)
	touch(t, filepath.Join(dir, "lonely.tif"), 10)
	touch(t, filepath.Join(dir, "twin.tif"), 10)
	touch(t, filepath.Join(dir, "twin_2x2.raw"), 4)
	touch(t, filepath.Join(dir, "twin_4x4.raw"), 16)

	vols, err := Volumes(dir)
	if err != nil {
		t.Fatalf("Volumes: %v", err)
	}
	byName := map[string]Volume{}
	for _, v := range vols {
		byName[filepath.Base(v.Path)] = v
	}

	if got := byName["head.tif"].RawSidecar; filepath.Base(got) != "head_4x4x2.raw" {
		t.Errorf("head sidecar = %q, want head_4x4x2.raw", got)
	}
	if got := byName["lonely.tif"].RawSidecar; got != "" {
		t.Errorf("lonely sidecar = %q, want none", got)
	}
	// An ambiguous pairing is no pairing.
	if got := byName["twin.tif"].RawSidecar; got != "" {
		t.Errorf("twin sidecar = %q, want none for an ambiguous match", got)
	}
}

func TestSubdirs(t *testing.T) {
	root := t.TempDir()
	full := filepath.Join(root, "dataset1")
	empty := filepath.Join(root, "dataset2")
	for _, d := range []string{full, empty} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	touch(t, filepath.Join(full, "vol.tif"), 10)
	touch(t, filepath.Join(root, "toplevel.tif"), 10)

	dirs, err := Subdirs(root)
	if err != nil {
		t.Fatalf("Subdirs: %v", err)
	}
	if len(dirs) != 1 || dirs[0] != full {
		t.Errorf("Subdirs = %v, want just %q", dirs, full)
	}
}
