package tiff

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// PixelSize returns the physical pixel size in millimetres per voxel along
// x and y, derived from the XResolution / YResolution / ResolutionUnit tags.
// Files without resolution metadata return an error rather than a guessed
// default; the z spacing is not stored in TIFF and stays with the caller.
func PixelSize(path string) (float64, float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return 0, 0, fmt.Errorf("no resolution metadata: %v", err)
	}

	im := exifcommon.NewIfdMapping()
	ti := exif.NewTagIndex()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return 0, 0, err
	}

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return 0, 0, err
	}

	resolution := func(name string) (float64, bool) {
		tag, err := index.RootIfd.FindTagWithName(name)
		if err != nil || len(tag) == 0 {
			return 0, false
		}
		val, err := tag[0].Value()
		if err != nil {
			return 0, false
		}
		rats, ok := val.([]exifcommon.Rational)
		if !ok || len(rats) == 0 || rats[0].Denominator == 0 || rats[0].Numerator == 0 {
			return 0, false
		}
		return float64(rats[0].Numerator) / float64(rats[0].Denominator), true
	}

	resX, okX := resolution("XResolution")
	resY, okY := resolution("YResolution")
	if !okX || !okY {
		return 0, 0, fmt.Errorf("no resolution metadata in %s", path)
	}

	// Pixels per inch unless the unit tag says centimetres.
	unitMM := 25.4
	if tag, err := index.RootIfd.FindTagWithName("ResolutionUnit"); err == nil && len(tag) > 0 {
		if val, err := tag[0].Value(); err == nil {
			switch u := val.(type) {
			case uint16:
				if u == 3 {
					unitMM = 10
				}
			case []uint16:
				if len(u) > 0 && u[0] == 3 {
					unitMM = 10
				}
			}
		}
	}

	return unitMM / resX, unitMM / resY, nil
}
