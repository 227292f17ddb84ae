// Package tiff is the storage adapter for multi-directory grayscale TIFF
// volumes. A file is a sequence of image file directories, one per z-slice;
// the adapter probes the file structure, reads and writes whole volumes and
// axis-aligned sub-volumes, and keeps the canonical on-disk layout the block
// distribution protocol patches into.
package tiff

import (
	"fmt"
	"os"

	"voxdist/voxel"
)

// Info describes a probed TIFF volume.
type Info struct {
	Dims     voxel.Vec3
	DType    voxel.DataType
	PixBytes int
}

// GetInfo probes the file and derives the volume extent and voxel type.
// Every directory is read and verified: all directories must share the same
// width, height, voxel type and voxel width, no directory may declare a 3D
// depth of its own, and only single-sample (grayscale) data is accepted.
// The volume depth is the directory count.
func GetInfo(path string) (Info, error) {
	setDiagnostic("")

	f, err := os.Open(path)
	if err != nil {
		return Info{}, fail(FormatError(reasonNotTIFF))
	}
	defer f.Close()

	dec, err := newDecoder(f)
	if err != nil {
		return Info{}, fail(err)
	}
	return dec.info()
}

// info validates the parsed directory chain against the grayscale volume
// constraints and derives the combined Info.
func (dec *decoder) info() (Info, error) {
	var out Info
	for i, d := range dec.dirs {
		if d.width <= 0 || d.height <= 0 {
			return Info{}, fail(FormatError(reasonBadDims))
		}
		if d.depth > 1 {
			return Info{}, fail(FormatError(reason3DSlices))
		}
		if d.samplesPerPixel != 1 {
			return Info{}, fail(FormatError(reasonGrayscaleOnly))
		}
		if err := d.resolveType(); err != nil {
			return Info{}, fail(err)
		}

		if i == 0 {
			out.Dims = voxel.V(d.width, d.height, 1)
			out.DType = d.dtype
			out.PixBytes = d.pixBytes
			continue
		}
		if d.width != out.Dims.X || d.height != out.Dims.Y {
			return Info{}, fail(FormatError(reasonMixedDims))
		}
		if d.dtype != out.DType {
			return Info{}, fail(FormatError(reasonBadPixelType))
		}
		if d.pixBytes != out.PixBytes {
			return Info{}, fail(FormatError(reasonMixedTypes))
		}
	}
	out.Dims.Z = len(dec.dirs)
	return out, nil
}

// newTarget allocates an image matching the probed type.
func newTarget(dims voxel.Vec3, info Info) *voxel.Image {
	if info.DType == voxel.Unknown {
		return voxel.NewUnknownImage(dims, info.PixBytes)
	}
	return voxel.NewImage(dims, info.DType)
}

// Read loads the whole volume.
func Read(path string) (*voxel.Image, error) {
	info, err := GetInfo(path)
	if err != nil {
		return nil, err
	}
	img := newTarget(info.Dims, info)
	if err := ReadBlock(img, path, voxel.Vec3{}); err != nil {
		return nil, err
	}
	return img, nil
}

// ReadBlock loads the sub-volume [origin, origin+dst.Dims) into dst. The
// target image decides the block extent and must match the file's voxel
// type and width. Each intersected directory is read once and only the
// strips or tiles overlapping the requested rectangle are decoded.
func ReadBlock(dst *voxel.Image, path string, origin voxel.Vec3) error {
	setDiagnostic("")

	f, err := os.Open(path)
	if err != nil {
		return fail(FormatError(reasonNotTIFF))
	}
	defer f.Close()

	dec, err := newDecoder(f)
	if err != nil {
		return fail(err)
	}
	info, err := dec.info()
	if err != nil {
		return err
	}

	if dst.DType != info.DType || dst.PixBytes != info.PixBytes {
		return fail(fmt.Errorf("target image type %v (%d B) does not match file type %v (%d B)",
			dst.DType, dst.PixBytes, info.DType, info.PixBytes))
	}
	if !voxel.InsideExtent(origin, dst.Dims, info.Dims) {
		return fail(fmt.Errorf("block %v+%v outside volume extent %v", origin, dst.Dims, info.Dims))
	}

	for z := 0; z < dst.Dims.Z; z++ {
		d := dec.dirs[origin.Z+z]
		if err := dec.readRect(d, dst, 0, 0, z, origin.X, origin.Y, dst.Dims.X, dst.Dims.Y); err != nil {
			return fail(err)
		}
	}
	return nil
}
