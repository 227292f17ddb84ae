package tiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"

	tifflzw "golang.org/x/image/tiff/lzw"

	"voxdist/voxel"
)

// directory holds the decoded tag set of one IFD, one z-slice of the volume.
type directory struct {
	width, height, depth int
	bitsPerSample        int
	sampleFormat         int
	samplesPerPixel      int
	legacyType           int
	hasLegacyType        bool
	compression          int
	predictor            int

	rowsPerStrip    int
	stripOffsets    []int64
	stripByteCounts []int64

	tileWidth, tileLength int
	tileOffsets           []int64
	tileByteCounts        []int64

	dtype    voxel.DataType
	pixBytes int
}

func (d *directory) tiled() bool { return d.tileWidth > 0 }

// decoder parses the IFD chain of a multi-directory TIFF file. It only
// interprets the tags the block protocol needs; everything else is skipped.
type decoder struct {
	r     io.ReaderAt
	order binary.ByteOrder
	dirs  []*directory
	// size is the file length, or 0 when the reader cannot report one.
	// Entry and strip counts come from the file and are untrusted; no
	// single read may be larger than the file itself.
	size int64
}

func newDecoder(r io.ReaderAt) (*decoder, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, FormatError(reasonNotTIFF)
	}

	dec := &decoder{r: r}
	switch s := r.(type) {
	case interface{ Size() int64 }:
		dec.size = s.Size()
	case interface{ Stat() (fs.FileInfo, error) }:
		if fi, err := s.Stat(); err == nil {
			dec.size = fi.Size()
		}
	}
	switch string(hdr[0:4]) {
	case "II\x2A\x00":
		dec.order = binary.LittleEndian
	case "MM\x00\x2A":
		dec.order = binary.BigEndian
	default:
		return nil, FormatError(reasonNotTIFF)
	}

	seen := make(map[int64]bool)
	offset := int64(dec.order.Uint32(hdr[4:8]))
	for offset != 0 {
		if seen[offset] || len(dec.dirs) > 1<<16 {
			return nil, FormatError("TIFF directory chain contains a cycle.")
		}
		seen[offset] = true

		dir, next, err := dec.readIFD(offset)
		if err != nil {
			return nil, err
		}
		dec.dirs = append(dec.dirs, dir)
		offset = next
	}
	if len(dec.dirs) == 0 {
		return nil, FormatError("Unable to read TIFF directory. The file invalid.")
	}
	return dec, nil
}

// readIFD decodes the IFD at the given file offset and returns it together
// with the offset of the next IFD in the chain (0 for the last one).
func (dec *decoder) readIFD(offset int64) (*directory, int64, error) {
	var cntBuf [2]byte
	if _, err := dec.r.ReadAt(cntBuf[:], offset); err != nil {
		return nil, 0, FormatError("Unable to read TIFF directory. The file invalid.")
	}
	n := int(dec.order.Uint16(cntBuf[:]))

	raw := make([]byte, n*ifdEntryLen+4)
	if _, err := dec.r.ReadAt(raw, offset+2); err != nil {
		return nil, 0, FormatError("Unable to read TIFF directory. The file invalid.")
	}
	next := int64(dec.order.Uint32(raw[n*ifdEntryLen:]))

	// Defaults per the TIFF specification.
	dir := &directory{
		depth:           1,
		bitsPerSample:   1,
		sampleFormat:    sfUint,
		samplesPerPixel: 1,
		compression:     cNone,
		predictor:       prNone,
	}

	for i := 0; i < n; i++ {
		entry := raw[i*ifdEntryLen : (i+1)*ifdEntryLen]
		tag := int(dec.order.Uint16(entry[0:2]))

		switch tag {
		case tImageWidth, tImageLength, tBitsPerSample, tCompression,
			tSamplesPerPixel, tRowsPerStrip, tSampleFormat, tPredictor,
			tDataType, tImageDepth, tTileWidth, tTileLength:
			v, err := dec.entryUints(entry)
			if err != nil {
				return nil, 0, err
			}
			if len(v) == 0 {
				continue
			}
			first := int(v[0])
			switch tag {
			case tImageWidth:
				dir.width = first
			case tImageLength:
				dir.height = first
			case tBitsPerSample:
				dir.bitsPerSample = first
			case tCompression:
				dir.compression = first
			case tSamplesPerPixel:
				dir.samplesPerPixel = first
			case tRowsPerStrip:
				dir.rowsPerStrip = first
			case tSampleFormat:
				dir.sampleFormat = first
			case tPredictor:
				dir.predictor = first
			case tDataType:
				dir.legacyType = first
				dir.hasLegacyType = true
			case tImageDepth:
				dir.depth = first
			case tTileWidth:
				dir.tileWidth = first
			case tTileLength:
				dir.tileLength = first
			}

		case tStripOffsets, tStripByteCounts, tTileOffsets, tTileByteCounts:
			v, err := dec.entryUints(entry)
			if err != nil {
				return nil, 0, err
			}
			offs := make([]int64, len(v))
			for j, u := range v {
				offs[j] = int64(u)
			}
			switch tag {
			case tStripOffsets:
				dir.stripOffsets = offs
			case tStripByteCounts:
				dir.stripByteCounts = offs
			case tTileOffsets:
				dir.tileOffsets = offs
			case tTileByteCounts:
				dir.tileByteCounts = offs
			}
		}
	}

	if dir.rowsPerStrip <= 0 || dir.rowsPerStrip > dir.height {
		dir.rowsPerStrip = dir.height
	}
	return dir, next, nil
}

// entryUints decodes an IFD entry of BYTE, SHORT or LONG type into uints.
func (dec *decoder) entryUints(entry []byte) ([]uint, error) {
	typ := int(dec.order.Uint16(entry[2:4]))
	count := int(dec.order.Uint32(entry[4:8]))

	var size int
	switch typ {
	case dtByte:
		size = 1
	case dtShort:
		size = 2
	case dtLong:
		size = 4
	default:
		// Rational and other types are not needed for any tag we decode.
		return nil, nil
	}

	raw := entry[8:12]
	if need := int64(size) * int64(count); need > 4 {
		if dec.size > 0 && need > dec.size {
			return nil, FormatError("Unable to read TIFF directory. The file invalid.")
		}
		raw = make([]byte, need)
		if _, err := dec.r.ReadAt(raw, int64(dec.order.Uint32(entry[8:12]))); err != nil {
			return nil, FormatError("Unable to read TIFF directory. The file invalid.")
		}
	}

	out := make([]uint, count)
	for i := 0; i < count; i++ {
		switch size {
		case 1:
			out[i] = uint(raw[i])
		case 2:
			out[i] = uint(dec.order.Uint16(raw[2*i:]))
		case 4:
			out[i] = uint(dec.order.Uint32(raw[4*i:]))
		}
	}
	return out, nil
}

// resolveType fills dtype and pixBytes of the directory from SampleFormat
// and BitsPerSample, with the legacy DataType tag as fallback for VOID.
// Signed and complex integer formats are rejected outright.
func (d *directory) resolveType() error {
	switch d.sampleFormat {
	case sfUint:
		switch d.bitsPerSample {
		case 8:
			d.dtype, d.pixBytes = voxel.UInt8, 1
		case 16:
			d.dtype, d.pixBytes = voxel.UInt16, 2
		case 32:
			d.dtype, d.pixBytes = voxel.UInt32, 4
		case 64:
			d.dtype, d.pixBytes = voxel.UInt64, 8
		default:
			return FormatError("Unsupported unsigned integer data type.")
		}
	case sfInt:
		return FormatError("Unsupported signed integer data type.")
	case sfIEEEFP:
		if d.bitsPerSample != 32 {
			return FormatError("Unsupported floating point data type.")
		}
		d.dtype, d.pixBytes = voxel.Float32, 4
	case sfComplexInt:
		return FormatError("Unsupported complex integer data type.")
	case sfComplexIEEEFP:
		if d.bitsPerSample != 64 {
			return FormatError("Unsupported complex floating point data type.")
		}
		d.dtype, d.pixBytes = voxel.Complex32, 8
	case sfVoid:
		switch d.legacyType {
		case legacyByte:
			d.dtype, d.pixBytes = voxel.UInt8, 1
		case legacyShort:
			d.dtype, d.pixBytes = voxel.UInt16, 2
		case legacyLong:
			d.dtype, d.pixBytes = voxel.UInt32, 4
		case legacyLong8:
			d.dtype, d.pixBytes = voxel.UInt64, 8
		case legacyFloat:
			d.dtype, d.pixBytes = voxel.Float32, 4
		case legacyNoType:
			// Pass-through path for files that declare no type at all,
			// e.g. old ImageJ output. The type is never guessed from the
			// voxel width.
			d.dtype = voxel.Unknown
			d.pixBytes = d.bitsPerSample / 8
			if d.pixBytes <= 0 {
				return FormatError(reasonBadPixelType)
			}
		default:
			return FormatError(reasonBadPixelType)
		}
	default:
		return FormatError(reasonBadPixelType)
	}
	return nil
}

// swapUnit is the width in bytes of one primitive sample for byte-order
// conversion. Complex voxels are pairs of 32-bit floats.
func (d *directory) swapUnit() int {
	if d.dtype == voxel.Complex32 {
		return 4
	}
	return d.pixBytes
}

// blockData loads and decompresses one strip or tile and converts it to
// little-endian sample layout. need is the number of bytes the caller will
// consume from the result.
func (dec *decoder) blockData(d *directory, offset, count int64, need int) ([]byte, error) {
	if count < 0 || (dec.size > 0 && count > dec.size) {
		return nil, FormatError("not enough pixel data")
	}
	raw := make([]byte, count)
	if _, err := dec.r.ReadAt(raw, offset); err != nil {
		return nil, fmt.Errorf("reading pixel data: %w", err)
	}

	var data []byte
	switch d.compression {
	case cNone:
		data = raw
	case cLZW:
		r := tifflzw.NewReader(bytes.NewReader(raw), tifflzw.MSB, 8)
		var err error
		data, err = io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("decompressing LZW data: %w", err)
		}
	case cDeflate, cDeflateOld:
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decompressing deflate data: %w", err)
		}
		data, err = io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("decompressing deflate data: %w", err)
		}
	default:
		return nil, UnsupportedError(fmt.Sprintf("compression scheme %d", d.compression))
	}

	if len(data) < need {
		return nil, FormatError("not enough pixel data")
	}

	if dec.order == binary.BigEndian {
		if unit := d.swapUnit(); unit > 1 {
			for i := 0; i+unit <= len(data); i += unit {
				for a, b := i, i+unit-1; a < b; a, b = a+1, b-1 {
					data[a], data[b] = data[b], data[a]
				}
			}
		}
	}
	return data, nil
}

// readRect copies the rectangle [srcX, srcX+w) x [srcY, srcY+h) of the
// directory into plane dstZ of dst at (dstX, dstY). Strip and tile
// organizations produce identical voxels.
func (dec *decoder) readRect(d *directory, dst *voxel.Image, dstX, dstY, dstZ, srcX, srcY, w, h int) error {
	if d.predictor != prNone {
		return UnsupportedError("predictor")
	}
	if d.tiled() {
		return dec.readRectTiled(d, dst, dstX, dstY, dstZ, srcX, srcY, w, h)
	}
	return dec.readRectStripped(d, dst, dstX, dstY, dstZ, srcX, srcY, w, h)
}

func (dec *decoder) readRectStripped(d *directory, dst *voxel.Image, dstX, dstY, dstZ, srcX, srcY, w, h int) error {
	rowBytes := d.width * d.pixBytes
	copyBytes := int64(w) * int64(d.pixBytes)

	for strip := srcY / d.rowsPerStrip; strip <= (srcY+h-1)/d.rowsPerStrip; strip++ {
		if strip >= len(d.stripOffsets) || strip >= len(d.stripByteCounts) {
			return FormatError("inconsistent strip layout")
		}
		stripY := strip * d.rowsPerStrip
		stripRows := min(d.rowsPerStrip, d.height-stripY)

		y0 := max(srcY, stripY)
		y1 := min(srcY+h, stripY+stripRows)
		if y0 >= y1 {
			continue
		}

		data, err := dec.blockData(d, d.stripOffsets[strip], d.stripByteCounts[strip], stripRows*rowBytes)
		if err != nil {
			return err
		}

		for y := y0; y < y1; y++ {
			src := int64(y-stripY)*int64(rowBytes) + int64(srcX)*int64(d.pixBytes)
			do := dst.ByteOffset(dstX, dstY+(y-srcY), dstZ)
			copy(dst.Pix[do:do+copyBytes], data[src:src+copyBytes])
		}
	}
	return nil
}

func (dec *decoder) readRectTiled(d *directory, dst *voxel.Image, dstX, dstY, dstZ, srcX, srcY, w, h int) error {
	if d.tileWidth <= 0 || d.tileLength <= 0 {
		return FormatError("inconsistent tile layout")
	}
	across := (d.width + d.tileWidth - 1) / d.tileWidth
	tileRowBytes := d.tileWidth * d.pixBytes

	for ty := srcY / d.tileLength; ty <= (srcY+h-1)/d.tileLength; ty++ {
		for tx := srcX / d.tileWidth; tx <= (srcX+w-1)/d.tileWidth; tx++ {
			idx := ty*across + tx
			if idx >= len(d.tileOffsets) || idx >= len(d.tileByteCounts) {
				return FormatError("inconsistent tile layout")
			}

			// Edge tiles are padded to the full tile extent.
			tileX := tx * d.tileWidth
			tileY := ty * d.tileLength

			x0 := max(srcX, tileX)
			x1 := min(srcX+w, min(tileX+d.tileWidth, d.width))
			y0 := max(srcY, tileY)
			y1 := min(srcY+h, min(tileY+d.tileLength, d.height))
			if x0 >= x1 || y0 >= y1 {
				continue
			}

			data, err := dec.blockData(d, d.tileOffsets[idx], d.tileByteCounts[idx], d.tileLength*tileRowBytes)
			if err != nil {
				return err
			}

			copyBytes := int64(x1-x0) * int64(d.pixBytes)
			for y := y0; y < y1; y++ {
				src := int64(y-tileY)*int64(tileRowBytes) + int64(x0-tileX)*int64(d.pixBytes)
				do := dst.ByteOffset(dstX+(x0-srcX), dstY+(y-srcY), dstZ)
				copy(dst.Pix[do:do+copyBytes], data[src:src+copyBytes])
			}
		}
	}
	return nil
}
