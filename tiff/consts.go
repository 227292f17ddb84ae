package tiff

// TIFF tag IDs consulted by the adapter.
const (
	tImageWidth      = 256
	tImageLength     = 257
	tBitsPerSample   = 258
	tCompression     = 259
	tPhotometric     = 262
	tStripOffsets    = 273
	tSamplesPerPixel = 277
	tRowsPerStrip    = 278
	tStripByteCounts = 279
	tXResolution     = 282
	tYResolution     = 283
	tResolutionUnit  = 296
	tPredictor       = 317
	tTileWidth       = 322
	tTileLength      = 323
	tTileOffsets     = 324
	tTileByteCounts  = 325
	tSampleFormat    = 339

	// SGI extension tags. tDataType predates SampleFormat and is still
	// emitted by some scientific tools; tImageDepth marks 3D-per-directory
	// files, which the adapter rejects.
	tDataType   = 32996
	tImageDepth = 32997
)

// IFD entry field types.
const (
	dtByte     = 1
	dtASCII    = 2
	dtShort    = 3
	dtLong     = 4
	dtRational = 5
)

// Compression schemes supported on read.
const (
	cNone       = 1
	cLZW        = 5
	cDeflate    = 8
	cDeflateOld = 32946
)

// SampleFormat values.
const (
	sfUint          = 1
	sfInt           = 2
	sfIEEEFP        = 3
	sfVoid          = 4
	sfComplexInt    = 5
	sfComplexIEEEFP = 6
)

// Legacy DataType tag values (the TIFF field type enumeration).
const (
	legacyNoType = 0
	legacyByte   = 1
	legacyShort  = 3
	legacyLong   = 4
	legacyFloat  = 11
	legacyLong8  = 16
)

const (
	prNone        = 1
	pmBlackIsZero = 1
)

const ifdEntryLen = 12
