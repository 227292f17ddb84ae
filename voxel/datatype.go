package voxel

// DataType identifies the scalar type of one voxel.
type DataType int

const (
	// Unknown marks images whose on-disk type could not be identified.
	// The voxel width is then carried separately by the image; the data is
	// passed through byte for byte and never reinterpreted.
	Unknown DataType = iota
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	// Complex32 is a complex value of two 32-bit floats (8 bytes per voxel).
	Complex32
)

// Bytes returns the fixed voxel width of the type, or 0 for Unknown.
func (dt DataType) Bytes() int {
	switch dt {
	case UInt8:
		return 1
	case UInt16:
		return 2
	case UInt32:
		return 4
	case UInt64, Complex32:
		return 8
	case Float32:
		return 4
	}
	return 0
}

func (dt DataType) String() string {
	switch dt {
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case Float32:
		return "float32"
	case Complex32:
		return "complex32"
	}
	return "unknown"
}
