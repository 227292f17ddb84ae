package voxel

import "fmt"

// Vec3 is an integer position or extent in voxel coordinates.
// Z is 1 for 2D images.
type Vec3 struct {
	X, Y, Z int
}

func V(x, y, z int) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Max returns the componentwise maximum of v and o.
func (v Vec3) Max(o Vec3) Vec3 {
	return Vec3{max(v.X, o.X), max(v.Y, o.Y), max(v.Z, o.Z)}
}

// Min returns the componentwise minimum of v and o.
func (v Vec3) Min(o Vec3) Vec3 {
	return Vec3{min(v.X, o.X), min(v.Y, o.Y), min(v.Z, o.Z)}
}

// Clamp limits every component of v to [lo, hi] componentwise.
func (v Vec3) Clamp(lo, hi Vec3) Vec3 {
	return v.Max(lo).Min(hi)
}

// Voxels is the number of voxels in an extent of this size.
func (v Vec3) Voxels() int64 {
	return int64(v.X) * int64(v.Y) * int64(v.Z)
}

// Component returns the axis-th component (0=x, 1=y, 2=z).
func (v Vec3) Component(axis int) int {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic(fmt.Sprintf("voxel: invalid axis %d", axis))
}

// WithComponent returns a copy of v with the axis-th component set to value.
func (v Vec3) WithComponent(axis, value int) Vec3 {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	case 2:
		v.Z = value
	default:
		panic(fmt.Sprintf("voxel: invalid axis %d", axis))
	}
	return v
}

// IsZero reports whether all components are zero. A zero write extent in a
// block descriptor means "do not persist output for this block".
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// NonNegative reports whether all components are >= 0.
func (v Vec3) NonNegative() bool {
	return v.X >= 0 && v.Y >= 0 && v.Z >= 0
}

// Positive reports whether all components are > 0.
func (v Vec3) Positive() bool {
	return v.X > 0 && v.Y > 0 && v.Z > 0
}

// InsideExtent reports whether the box [v, v+size) fits inside [0, extent).
func InsideExtent(pos, size, extent Vec3) bool {
	return pos.NonNegative() &&
		pos.X+size.X <= extent.X &&
		pos.Y+size.Y <= extent.Y &&
		pos.Z+size.Z <= extent.Z
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}
