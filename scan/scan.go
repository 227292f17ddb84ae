// Package scan discovers TIFF volumes on disk and pairs them with their raw
// sidecar blobs, for batch probing and pipeline input selection.
package scan

import (
	"os"
	"path/filepath"
	"strings"

	"voxdist/raw"
)

// Volume is one discovered TIFF file, with its matching sidecar if exactly
// one exists next to it.
type Volume struct {
	Path       string
	Size       int64
	RawSidecar string
}

// TIFFPaths lists the TIFF files directly inside dir together with their
// total size. AppleDouble "._" droppings are skipped.
func TIFFPaths(dir string) ([]string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}
	paths := make([]string, 0, len(entries))
	var size int64
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "._") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".tiff" && ext != ".tif" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
		if info, err := entry.Info(); err == nil {
			size += info.Size()
		}
	}
	return paths, size, nil
}

// Volumes lists the TIFF files directly inside dir, each paired with its
// sidecar blob where one is unambiguously present.
func Volumes(dir string) ([]Volume, error) {
	paths, _, err := TIFFPaths(dir)
	if err != nil {
		return nil, err
	}
	vols := make([]Volume, 0, len(paths))
	for _, p := range paths {
		v := Volume{Path: p}
		if info, err := os.Stat(p); err == nil {
			v.Size = info.Size()
		}
		prefix := strings.TrimSuffix(p, filepath.Ext(p))
		if sidecar, _, err := raw.Find(prefix); err == nil {
			v.RawSidecar = sidecar
		}
		vols = append(vols, v)
	}
	return vols, nil
}

// Subdirs lists the subdirectories of root that contain at least one TIFF
// file, so batch runs can treat each as one dataset.
func Subdirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(root, entry.Name())
		if paths, _, err := TIFFPaths(sub); err == nil && len(paths) > 0 {
			dirs = append(dirs, sub)
		}
	}
	return dirs, nil
}
