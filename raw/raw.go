// Package raw reads and writes the sidecar .raw companion format: a plain
// little-endian voxel blob in x-fastest order, with the volume extent
// carried in the filename (for example t1-head_256x256x129.raw).
package raw

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"voxdist/voxel"
)

var dimsRe = regexp.MustCompile(`_(\d+)x(\d+)(?:x(\d+))?\.raw$`)

// FileName returns the blob path for prefix and the given extent,
// prefix_WxHxD.raw (2D images drop the depth component).
func FileName(prefix string, dims voxel.Vec3) string {
	if dims.Z <= 1 {
		return fmt.Sprintf("%s_%dx%d.raw", prefix, dims.X, dims.Y)
	}
	return fmt.Sprintf("%s_%dx%dx%d.raw", prefix, dims.X, dims.Y, dims.Z)
}

// ParseDims extracts the volume extent from a blob filename.
func ParseDims(path string) (voxel.Vec3, error) {
	m := dimsRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return voxel.Vec3{}, fmt.Errorf("no dimensions in raw file name %q", path)
	}
	x, _ := strconv.Atoi(m[1])
	y, _ := strconv.Atoi(m[2])
	z := 1
	if m[3] != "" {
		z, _ = strconv.Atoi(m[3])
	}
	dims := voxel.V(x, y, z)
	if !dims.Positive() {
		return voxel.Vec3{}, fmt.Errorf("invalid dimensions in raw file name %q", path)
	}
	return dims, nil
}

// Find locates the single prefix_WxHxD.raw file for the given prefix and
// returns its path and extent.
func Find(prefix string) (string, voxel.Vec3, error) {
	matches, err := filepath.Glob(prefix + "_*.raw")
	if err != nil {
		return "", voxel.Vec3{}, err
	}
	var found []string
	for _, m := range matches {
		if dimsRe.MatchString(m) {
			found = append(found, m)
		}
	}
	if len(found) == 0 {
		return "", voxel.Vec3{}, fmt.Errorf("no raw file found for prefix %q", prefix)
	}
	if len(found) > 1 {
		return "", voxel.Vec3{}, fmt.Errorf("multiple raw files found for prefix %q", prefix)
	}
	dims, err := ParseDims(found[0])
	if err != nil {
		return "", voxel.Vec3{}, err
	}
	return found[0], dims, nil
}

// Write stores the image under prefix with the extent encoded in the
// filename and returns the path written.
func Write(img *voxel.Image, prefix string) (string, error) {
	path := FileName(prefix, img.Dims)
	if err := os.WriteFile(path, img.Pix, 0o644); err != nil {
		return "", fmt.Errorf("writing raw file: %w", err)
	}
	return path, nil
}

// Read fills dst from the blob at path. The blob size must match the target
// extent and voxel width exactly.
func Read(dst *voxel.Image, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading raw file: %w", err)
	}
	if len(data) != len(dst.Pix) {
		return fmt.Errorf("raw file %s holds %d bytes, want %d for %v of type %v",
			path, len(data), len(dst.Pix), dst.Dims, dst.DType)
	}
	copy(dst.Pix, data)
	return nil
}

// ReadPrefix locates the blob for prefix and loads it with the given voxel
// type, taking the extent from the filename.
func ReadPrefix(prefix string, dt voxel.DataType) (*voxel.Image, error) {
	path, dims, err := Find(prefix)
	if err != nil {
		return nil, err
	}
	img := voxel.NewImage(dims, dt)
	if err := Read(img, path); err != nil {
		return nil, err
	}
	return img, nil
}
