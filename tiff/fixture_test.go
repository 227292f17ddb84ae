package tiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"voxdist/voxel"
)

// fxEntry is one IFD entry of a hand-built fixture file. Values that do not
// fit the inline field are spilled into the data area automatically.
type fxEntry struct {
	tag  int
	typ  int
	vals []uint32
}

func fe(tag, typ int, vals ...uint32) fxEntry { return fxEntry{tag, typ, vals} }

// fxBuilder assembles TIFF files entry by entry so tests can produce layouts
// the canonical writer never emits: big-endian order, tiles, compression,
// broken or conflicting tag sets.
type fxBuilder struct {
	order binary.ByteOrder
	buf   []byte
	ifds  [][]fxEntry
}

func newFx(order binary.ByteOrder) *fxBuilder {
	b := &fxBuilder{order: order, buf: make([]byte, 8)}
	if order == binary.LittleEndian {
		copy(b.buf[0:4], "II\x2A\x00")
	} else {
		copy(b.buf[0:4], "MM\x00\x2A")
	}
	return b
}

// data appends p to the data area and returns its file offset.
func (b *fxBuilder) data(p []byte) uint32 {
	off := uint32(len(b.buf))
	b.buf = append(b.buf, p...)
	return off
}

func (b *fxBuilder) ifd(entries ...fxEntry) {
	b.ifds = append(b.ifds, entries)
}

func (b *fxBuilder) entrySize(typ int) int {
	switch typ {
	case dtByte:
		return 1
	case dtShort:
		return 2
	}
	return 4
}

func (b *fxBuilder) packVals(e fxEntry) []byte {
	size := b.entrySize(e.typ)
	out := make([]byte, size*len(e.vals))
	for i, v := range e.vals {
		switch size {
		case 1:
			out[i] = byte(v)
		case 2:
			b.order.PutUint16(out[2*i:], uint16(v))
		case 4:
			b.order.PutUint32(out[4*i:], v)
		}
	}
	return out
}

// bytes finalizes the file: spills oversized entry values, emits the IFD
// chain after the data area and patches the header offset.
func (b *fxBuilder) bytes() []byte {
	// Spill pass first so IFD offsets are stable afterwards.
	type packed struct {
		entry fxEntry
		raw   []byte // inline field contents, length <= 4
	}
	chain := make([][]packed, len(b.ifds))
	for i, entries := range b.ifds {
		for _, e := range entries {
			raw := b.packVals(e)
			if len(raw) > 4 {
				off := b.data(raw)
				raw = make([]byte, 4)
				b.order.PutUint32(raw, off)
			}
			chain[i] = append(chain[i], packed{e, raw})
		}
	}

	ifdStart := len(b.buf)
	b.order.PutUint32(b.buf[4:8], uint32(ifdStart))

	pos := ifdStart
	for i, entries := range chain {
		ifdLen := 2 + len(entries)*ifdEntryLen + 4
		block := make([]byte, ifdLen)
		b.order.PutUint16(block[0:2], uint16(len(entries)))
		for j, p := range entries {
			field := block[2+j*ifdEntryLen:]
			b.order.PutUint16(field[0:2], uint16(p.entry.tag))
			b.order.PutUint16(field[2:4], uint16(p.entry.typ))
			b.order.PutUint32(field[4:8], uint32(len(p.entry.vals)))
			copy(field[8:12], p.raw)
		}
		next := 0
		if i < len(chain)-1 {
			next = pos + ifdLen
		}
		b.order.PutUint32(block[ifdLen-4:], uint32(next))
		b.buf = append(b.buf, block...)
		pos += ifdLen
	}
	return b.buf
}

func (b *fxBuilder) write(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, b.bytes(), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

// grayEntries is the minimal tag set of one uncompressed grayscale slice
// whose pixel data already sits at dataOff.
func grayEntries(w, h int, dataOff uint32, bits, sampleFormat int) []fxEntry {
	return []fxEntry{
		fe(tImageWidth, dtLong, uint32(w)),
		fe(tImageLength, dtLong, uint32(h)),
		fe(tBitsPerSample, dtShort, uint32(bits)),
		fe(tCompression, dtShort, cNone),
		fe(tPhotometric, dtShort, pmBlackIsZero),
		fe(tStripOffsets, dtLong, dataOff),
		fe(tSamplesPerPixel, dtShort, 1),
		fe(tRowsPerStrip, dtLong, uint32(h)),
		fe(tStripByteCounts, dtLong, uint32(w*h*bits/8)),
		fe(tSampleFormat, dtShort, uint32(sampleFormat)),
	}
}

// pattern is the deterministic voxel fill shared by the fixture tests.
func pattern(x, y, z int) float64 {
	return float64((z*1000 + y*40 + x*3) % 250)
}

func patternImage(dims voxel.Vec3, dt voxel.DataType) *voxel.Image {
	img := voxel.NewImage(dims, dt)
	for z := 0; z < dims.Z; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				img.SetValue(x, y, z, pattern(x, y, z))
			}
		}
	}
	return img
}

// grayPlane renders one z-plane of the pattern as raw samples in the given
// byte order.
func grayPlane(order binary.ByteOrder, w, h, z, pixBytes int) []byte {
	out := make([]byte, w*h*pixBytes)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint64(pattern(x, y, z))
			b := out[(y*w+x)*pixBytes:]
			switch pixBytes {
			case 1:
				b[0] = byte(v)
			case 2:
				order.PutUint16(b, uint16(v))
			case 4:
				order.PutUint32(b, uint32(v))
			case 8:
				order.PutUint64(b, v)
			}
		}
	}
	return out
}

// lzwEncode produces a TIFF-flavour LZW stream of all-literal codes. A clear
// code is emitted every 200 literals, which keeps the code table far below
// the first width change so the stream stays 9 bits per code throughout.
func lzwEncode(data []byte) []byte {
	var out bytes.Buffer
	var acc uint32
	var nbits uint

	emit := func(code uint32) {
		acc = acc<<9 | code
		nbits += 9
		for nbits >= 8 {
			nbits -= 8
			out.WriteByte(byte(acc >> nbits))
		}
	}

	emit(256)
	for i, b := range data {
		if i > 0 && i%200 == 0 {
			emit(256)
		}
		emit(uint32(b))
	}
	emit(257)
	if nbits > 0 {
		out.WriteByte(byte(acc << (8 - nbits)))
	}
	return out.Bytes()
}

func zlibEncode(t *testing.T, data []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("compressing fixture data: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("compressing fixture data: %v", err)
	}
	return out.Bytes()
}
