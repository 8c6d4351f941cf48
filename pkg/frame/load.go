package frame

import(
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"
)

// Load reads a frame from disk, dispatching on extension. Supported:
// 16-bit TIFF, PNG (both flattened to grayscale by luminance), and
// Radiance RGBE .hdr files (true float data, taken as the XYZ Y
// channel).
func Load(filename string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		return loadTIFF(filename)
	case ".png":
		return loadLDR(filename, png.Decode)
	case ".hdr":
		return loadHDR(filename)
	}
	return nil, fmt.Errorf("don't know how to load '%s' as a frame", filename)
}

func loadTIFF(filename string) (*Frame, error) {
	f, err := loadLDR(filename, tiff.Decode)
	if err != nil {
		return nil, err
	}

	// If the TIFF came straight off a camera it carries an ISO rating,
	// which pins down the gain well enough to synthesize a variance
	// plane. Purely optional; calibrated data won't have EXIF.
	if iso, err := isoSpeed(filename); err == nil && iso > 0 {
		gain := gainAtISO100 * 100.0 / float64(iso)
		f.SynthesizeVariance(gain, defaultReadNoise)
		log.Printf("frame %s: ISO %d, synthesized variance at gain %.2f\n",
			filepath.Base(filename), iso, gain)
	}

	return f, nil
}

// Rough DSLR-ish numbers; good enough to rank errors, not to quote them.
const (
	gainAtISO100     = 4.0  // e-/ADU
	defaultReadNoise = 10.0 // ADU
)

func isoSpeed(filename string) (int64, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return 0, fmt.Errorf("exif parsing '%s': %v", filename, err)
	}
	tag, err := ex.Get(exif.ISOSpeedRatings)
	if err != nil {
		return 0, fmt.Errorf("exif ISO '%s': %v", filename, err)
	}
	return tag.Int64(0)
}

func loadLDR(filename string, decode func(r io.Reader) (image.Image, error)) (*Frame, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decoding '%s': %v", filename, err)
	}
	return FromImage(img), nil
}

func loadHDR(filename string) (*Frame, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r hdr '%s': %v", filename, err)
	}
	defer reader.Close()

	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decoding '%s': %v", filename, err)
	}

	hdrImg, isHDR := img.(hdr.Image)
	if !isHDR {
		return nil, fmt.Errorf("'%s' decoded, but not to HDR data", filename)
	}

	b := hdrImg.Bounds()
	f := New(b.Dx(), b.Dy())
	f.SetOrigin(b.Min.X, b.Min.Y)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			_, lum, _, _ := hdrImg.HDRAt(b.Min.X+x, b.Min.Y+y).HDRXYZA()
			f.Set(x, y, lum)
		}
	}
	return f, nil
}

// FromImage flattens any image.Image into a frame, mapping color to
// gray by the usual luminance weights.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())
	f.SetOrigin(b.Min.X, b.Min.Y)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA() // [0, 0xFFFF]
			gray := float64(r)*0.2989 + float64(g)*0.5870 + float64(bb)*0.1140
			f.Set(x, y, gray)
		}
	}
	return f
}
