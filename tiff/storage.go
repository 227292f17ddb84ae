package tiff

import "voxdist/voxel"

// Storage adapts the package functions to the block-protocol storage
// interface used by workers.
type Storage struct{}

func (Storage) Info(path string) (voxel.Vec3, voxel.DataType, int, error) {
	info, err := GetInfo(path)
	return info.Dims, info.DType, info.PixBytes, err
}

func (Storage) ReadBlock(dst *voxel.Image, path string, origin voxel.Vec3) error {
	return ReadBlock(dst, path, origin)
}

func (Storage) WriteBlock(src *voxel.Image, path string, filePos, fullDims voxel.Vec3) error {
	return WriteBlock(src, path, filePos, fullDims)
}
