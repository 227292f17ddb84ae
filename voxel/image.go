// Package voxel holds the in-memory representation of grayscale image
// volumes: integer geometry, scalar voxel types and the flat pixel buffer
// the storage adapters and the block planner operate on.
package voxel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Image is a 2D or 3D grayscale volume. Voxels are stored in a single flat
// buffer in x-fastest order (x, then y, then z) using little-endian layout
// for multi-byte types. There is one buffer type for every voxel type; the
// type tag plus the voxel width decide how the bytes are interpreted.
type Image struct {
	Dims  Vec3
	DType DataType

	// PixBytes is the voxel width in bytes. It equals DType.Bytes() for all
	// known types and carries the width explicitly for Unknown images.
	PixBytes int

	// Pix holds Dims.Voxels() * PixBytes bytes.
	Pix []byte
}

// NewImage allocates a zero-filled image of the given extent and type.
// The type must not be Unknown; use NewUnknownImage for pass-through data.
func NewImage(dims Vec3, dt DataType) *Image {
	if !dims.Positive() {
		panic(fmt.Sprintf("voxel: invalid image extent %v", dims))
	}
	if dt == Unknown {
		panic("voxel: NewImage with Unknown type, use NewUnknownImage")
	}
	return &Image{
		Dims:     dims,
		DType:    dt,
		PixBytes: dt.Bytes(),
		Pix:      make([]byte, dims.Voxels()*int64(dt.Bytes())),
	}
}

// NewUnknownImage allocates an image whose voxel type is not known.
// pixBytes gives the voxel width; the content is never reinterpreted.
func NewUnknownImage(dims Vec3, pixBytes int) *Image {
	if !dims.Positive() {
		panic(fmt.Sprintf("voxel: invalid image extent %v", dims))
	}
	if pixBytes <= 0 {
		panic(fmt.Sprintf("voxel: invalid voxel width %d", pixBytes))
	}
	return &Image{
		Dims:     dims,
		DType:    Unknown,
		PixBytes: pixBytes,
		Pix:      make([]byte, dims.Voxels()*int64(pixBytes)),
	}
}

// Index returns the voxel index of (x, y, z).
func (im *Image) Index(x, y, z int) int64 {
	return (int64(z)*int64(im.Dims.Y)+int64(y))*int64(im.Dims.X) + int64(x)
}

// ByteOffset returns the byte offset of voxel (x, y, z) in Pix.
func (im *Image) ByteOffset(x, y, z int) int64 {
	return im.Index(x, y, z) * int64(im.PixBytes)
}

// VoxelBytes returns the raw bytes of one voxel.
func (im *Image) VoxelBytes(x, y, z int) []byte {
	off := im.ByteOffset(x, y, z)
	return im.Pix[off : off+int64(im.PixBytes)]
}

// Value returns the voxel at (x, y, z) as float64. Complex voxels return
// their real part; Unknown images return the raw bytes read as an unsigned
// little-endian integer of the voxel width.
func (im *Image) Value(x, y, z int) float64 {
	b := im.VoxelBytes(x, y, z)
	switch im.DType {
	case UInt8:
		return float64(b[0])
	case UInt16:
		return float64(binary.LittleEndian.Uint16(b))
	case UInt32:
		return float64(binary.LittleEndian.Uint32(b))
	case UInt64:
		return float64(binary.LittleEndian.Uint64(b))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Complex32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[:4])))
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return float64(v)
}

// SetValue stores v into the voxel at (x, y, z), truncating to the voxel
// type. Complex voxels get v as the real part and a zero imaginary part.
func (im *Image) SetValue(x, y, z int, v float64) {
	b := im.VoxelBytes(x, y, z)
	switch im.DType {
	case UInt8:
		b[0] = uint8(v)
	case UInt16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case UInt32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case UInt64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Complex32:
		binary.LittleEndian.PutUint32(b[:4], math.Float32bits(float32(v)))
		binary.LittleEndian.PutUint32(b[4:], 0)
	default:
		u := uint64(v)
		for i := range b {
			b[i] = byte(u)
			u >>= 8
		}
	}
}

// SameShape reports whether the images have equal extent, type and voxel width.
func (im *Image) SameShape(o *Image) bool {
	return im.Dims == o.Dims && im.DType == o.DType && im.PixBytes == o.PixBytes
}

// Equal reports voxelwise equality.
func (im *Image) Equal(o *Image) bool {
	return im.SameShape(o) && bytes.Equal(im.Pix, o.Pix)
}

// CopyRect copies the 2D rectangle of extent size from plane srcZ of src at
// srcPos into plane dstZ of im at dstPos. Both images must have the same
// voxel width. The rectangle must be inside both planes.
func (im *Image) CopyRect(dstPos Vec3, dstZ int, src *Image, srcPos Vec3, srcZ int, size Vec3) {
	if im.PixBytes != src.PixBytes {
		panic("voxel: CopyRect between different voxel widths")
	}
	rowBytes := int64(size.X) * int64(im.PixBytes)
	for y := 0; y < size.Y; y++ {
		so := src.ByteOffset(srcPos.X, srcPos.Y+y, srcZ)
		do := im.ByteOffset(dstPos.X, dstPos.Y+y, dstZ)
		copy(im.Pix[do:do+rowBytes], src.Pix[so:so+rowBytes])
	}
}

// CopyBlock copies the sub-volume of extent size from src at srcPos into im
// at dstPos.
func (im *Image) CopyBlock(dstPos Vec3, src *Image, srcPos, size Vec3) {
	if !InsideExtent(srcPos, size, src.Dims) || !InsideExtent(dstPos, size, im.Dims) {
		panic(fmt.Sprintf("voxel: CopyBlock out of bounds: src %v+%v in %v, dst %v in %v",
			srcPos, size, src.Dims, dstPos, im.Dims))
	}
	for z := 0; z < size.Z; z++ {
		im.CopyRect(dstPos, dstPos.Z+z, src, srcPos, srcPos.Z+z, Vec3{size.X, size.Y, 1})
	}
}

// Crop returns a copy of the sub-volume [origin, origin+size).
func (im *Image) Crop(origin, size Vec3) (*Image, error) {
	if !size.Positive() || !InsideExtent(origin, size, im.Dims) {
		return nil, fmt.Errorf("crop region %v+%v outside image extent %v", origin, size, im.Dims)
	}
	var out *Image
	if im.DType == Unknown {
		out = NewUnknownImage(size, im.PixBytes)
	} else {
		out = NewImage(size, im.DType)
	}
	out.CopyBlock(Vec3{}, im, origin, size)
	return out, nil
}
