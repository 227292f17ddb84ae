package tiff

import "sync"

// FormatError reports that a file is not a TIFF volume the adapter can use.
// The text is the human-readable reason handed to the caller.
type FormatError string

func (e FormatError) Error() string { return string(e) }

// UnsupportedError reports a valid but unimplemented TIFF feature.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "unsupported TIFF feature: " + string(e) }

// Reason strings shared with the probe tests. The wording is part of the
// adapter's contract towards its callers.
const (
	reasonNotTIFF       = "The file does not contain a valid TIFF header."
	reasonGrayscaleOnly = "Only grayscale images are supported."
	reason3DSlices      = "TIFF file contains 3D slices."
	reasonBadDims       = "TIFF file contains an image with invalid dimensions."
	reasonMixedDims     = "TIFF file contains slices of different dimensions."
	reasonBadPixelType  = "TIFF file contains data of unsupported pixel data type."
	reasonMixedTypes    = "TIFF file contains slices of multiple pixel data types."
)

var (
	diagMu   sync.Mutex
	lastDiag string
)

// setDiagnostic records msg as the most recent internal codec diagnostic.
func setDiagnostic(msg string) {
	diagMu.Lock()
	lastDiag = msg
	diagMu.Unlock()
}

// LastDiagnostic returns the diagnostic of the most recent failed adapter
// operation. The slot is process-wide and overwritten on every operation;
// it exists for callers that expect the classic libtiff error handler
// behaviour. The returned error of each operation is the reliable channel.
func LastDiagnostic() string {
	diagMu.Lock()
	defer diagMu.Unlock()
	return lastDiag
}

// fail records the diagnostic slot and returns err unchanged.
func fail(err error) error {
	if err != nil {
		setDiagnostic(err.Error())
	}
	return err
}
