package tiff

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"voxdist/voxel"
)

// The writer emits one canonical layout: little-endian, uncompressed, one
// directory per z-slice with a single strip covering the slice, pixel data
// contiguous after the header, IFD chain at the end of the file. WriteBlock
// relies on this layout to patch sub-volumes in place.

func sampleFormatFor(dt voxel.DataType) int {
	switch dt {
	case voxel.Float32:
		return sfIEEEFP
	case voxel.Complex32:
		return sfComplexIEEEFP
	case voxel.Unknown:
		return sfVoid
	}
	return sfUint
}

// Write stores the image as a new TIFF file, replacing any existing file.
func Write(img *voxel.Image, path string) error {
	setDiagnostic("")

	f, err := os.Create(path)
	if err != nil {
		return fail(fmt.Errorf("creating %s: %w", path, err))
	}
	if err := writeCanonical(f, img.Dims, img.DType, img.PixBytes, img.Pix); err != nil {
		f.Close()
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return fail(fmt.Errorf("closing %s: %w", path, err))
	}
	return nil
}

// writeCanonical writes the canonical layout. pix may be nil to emit a
// zero-filled volume of the given extent.
func writeCanonical(f *os.File, dims voxel.Vec3, dt voxel.DataType, pixBytes int, pix []byte) error {
	sliceBytes := int64(dims.X) * int64(dims.Y) * int64(pixBytes)
	dataEnd := 8 + sliceBytes*int64(dims.Z)
	ifdStart := dataEnd + (dataEnd & 1)

	const entries = 10
	ifdBytes := int64(2 + entries*ifdEntryLen + 4)
	if ifdStart+ifdBytes*int64(dims.Z) > math.MaxUint32 {
		return fmt.Errorf("volume %v of type %v does not fit the TIFF offset range", dims, dt)
	}

	w := bufio.NewWriterSize(f, 1<<20)

	var hdr [8]byte
	copy(hdr[0:4], "II\x2A\x00")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(ifdStart))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("writing TIFF header: %w", err)
	}

	if pix != nil {
		if _, err := w.Write(pix); err != nil {
			return fmt.Errorf("writing pixel data: %w", err)
		}
	} else {
		zeros := make([]byte, 1<<16)
		left := sliceBytes * int64(dims.Z)
		for left > 0 {
			n := int64(len(zeros))
			if n > left {
				n = left
			}
			if _, err := w.Write(zeros[:n]); err != nil {
				return fmt.Errorf("writing pixel data: %w", err)
			}
			left -= n
		}
	}
	if dataEnd != ifdStart {
		if err := w.WriteByte(0); err != nil {
			return fmt.Errorf("writing pixel data: %w", err)
		}
	}

	for z := 0; z < dims.Z; z++ {
		next := ifdStart + int64(z+1)*ifdBytes
		if z == dims.Z-1 {
			next = 0
		}
		if err := writeIFD(w, dims, dt, pixBytes, 8+int64(z)*sliceBytes, sliceBytes, next); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing TIFF directories: %w", err)
	}
	return nil
}

func writeIFD(w *bufio.Writer, dims voxel.Vec3, dt voxel.DataType, pixBytes int, stripOffset, stripBytes, next int64) error {
	var buf [2 + 10*ifdEntryLen + 4]byte
	binary.LittleEndian.PutUint16(buf[0:2], 10)

	// Entries must be sorted by tag.
	i := 2
	put := func(tag, typ int, value uint32) {
		binary.LittleEndian.PutUint16(buf[i:], uint16(tag))
		binary.LittleEndian.PutUint16(buf[i+2:], uint16(typ))
		binary.LittleEndian.PutUint32(buf[i+4:], 1)
		if typ == dtShort {
			binary.LittleEndian.PutUint16(buf[i+8:], uint16(value))
		} else {
			binary.LittleEndian.PutUint32(buf[i+8:], value)
		}
		i += ifdEntryLen
	}

	put(tImageWidth, dtLong, uint32(dims.X))
	put(tImageLength, dtLong, uint32(dims.Y))
	put(tBitsPerSample, dtShort, uint32(pixBytes*8))
	put(tCompression, dtShort, cNone)
	put(tPhotometric, dtShort, pmBlackIsZero)
	put(tStripOffsets, dtLong, uint32(stripOffset))
	put(tSamplesPerPixel, dtShort, 1)
	put(tRowsPerStrip, dtLong, uint32(dims.Y))
	put(tStripByteCounts, dtLong, uint32(stripBytes))
	put(tSampleFormat, dtShort, uint32(sampleFormatFor(dt)))

	binary.LittleEndian.PutUint32(buf[i:], uint32(next))
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("writing TIFF directories: %w", err)
	}
	return nil
}

// ensureCanonical creates a zero-filled canonical volume at path if no file
// exists there yet. The caller holds createMu.
func ensureCanonical(path string, dims voxel.Vec3, dt voxel.DataType, pixBytes int) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("probing %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeCanonical(f, dims, dt, pixBytes, nil); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// WriteBlock stores src into the file at position filePos. A missing file is
// first created as a zero-filled canonical volume of extent fullDims; an
// existing file must use the canonical layout (little-endian, uncompressed,
// strip-organized) and match the source voxel type. Writes to disjoint
// regions of the same file may run concurrently from separate workers.
// createMu serializes the create-if-missing step so concurrent workers
// cannot truncate each other's freshly written blocks.
var createMu sync.Mutex

func WriteBlock(src *voxel.Image, path string, filePos, fullDims voxel.Vec3) error {
	setDiagnostic("")

	createMu.Lock()
	if err := ensureCanonical(path, fullDims, src.DType, src.PixBytes); err != nil {
		createMu.Unlock()
		return fail(err)
	}
	createMu.Unlock()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fail(fmt.Errorf("opening %s: %w", path, err))
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

	if dec.order != binary.LittleEndian {
		return fail(UnsupportedError("block write into a big-endian file"))
	}
	if src.DType != info.DType || src.PixBytes != info.PixBytes {
		return fail(fmt.Errorf("source image type %v (%d B) does not match file type %v (%d B)",
			src.DType, src.PixBytes, info.DType, info.PixBytes))
	}
	if !voxel.InsideExtent(filePos, src.Dims, info.Dims) {
		return fail(fmt.Errorf("block %v+%v outside volume extent %v", filePos, src.Dims, info.Dims))
	}

	rowBytes := int64(src.Dims.X) * int64(src.PixBytes)
	for z := 0; z < src.Dims.Z; z++ {
		d := dec.dirs[filePos.Z+z]
		if d.tiled() || d.compression != cNone || d.predictor != prNone {
			return fail(UnsupportedError("block write into a tiled or compressed file"))
		}
		for y := 0; y < src.Dims.Y; y++ {
			fileY := filePos.Y + y
			strip := fileY / d.rowsPerStrip
			if strip >= len(d.stripOffsets) {
				return fail(FormatError("inconsistent strip layout"))
			}
			off := d.stripOffsets[strip] +
				(int64(fileY-strip*d.rowsPerStrip)*int64(d.width)+int64(filePos.X))*int64(src.PixBytes)

			so := src.ByteOffset(0, y, z)
			if _, err := f.WriteAt(src.Pix[so:so+rowBytes], off); err != nil {
				return fail(fmt.Errorf("writing block row: %w", err))
			}
		}
	}
	return nil
}
