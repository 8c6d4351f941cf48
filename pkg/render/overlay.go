// Package render draws measurement results back onto the frame they
// came from, for eyeballing. Not part of the measurement itself.
package render

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/starmeas/pkg/adamom"
	"github.com/abworrall/starmeas/pkg/frame"
)

// An Overlay accumulates measured sources to draw on top of a frame.
type Overlay struct {
	Frame   *frame.Frame
	Results []adamom.MomentsResult
	NSigma  float64 // contour size, in units of sigma; 0 means 1
}

func NewOverlay(f *frame.Frame) *Overlay {
	return &Overlay{Frame: f, NSigma: 1.0}
}

func (o *Overlay)Add(res adamom.MomentsResult) { o.Results = append(o.Results, res) }

// WritePNG renders the frame as a stretched grayscale with one ellipse
// per measured source: green-ish for clean measurements, shading to
// red as flags pile up.
func (o *Overlay)WritePNG(title, filename string) error {
	img := o.grayscale()
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(1.5)

	for _, res := range o.Results {
		col := qualityColor(res.Flags)
		dc.SetColor(col)

		x := res.X - float64(o.Frame.X0())
		y := res.Y - float64(o.Frame.Y0())

		a, b, theta, err := ellipseAxes(res.Quad)
		if err != nil {
			// No shape to draw; just mark the position.
			dc.DrawLine(x-3, y, x+3, y)
			dc.DrawLine(x, y-3, x, y+3)
			dc.Stroke()
			continue
		}

		dc.Push()
		dc.RotateAbout(theta, x, y)
		dc.DrawEllipse(x, y, a*o.NSigma, b*o.NSigma)
		dc.Stroke()
		dc.Pop()
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 15, 15)
	return dc.SavePNG(filename)
}

// ellipseAxes turns a quadrupole into semi-axes (in sigma) plus the
// position angle of the major axis.
func ellipseAxes(q adamom.Quad) (a, b, theta float64, err error) {
	if math.IsNaN(q.XX) || q.Det() <= 0 {
		return 0, 0, 0, fmt.Errorf("degenerate shape %+v", q)
	}
	tr := (q.XX + q.YY) / 2
	disc := math.Sqrt((q.XX-q.YY)*(q.XX-q.YY)/4 + q.XY*q.XY)
	l1, l2 := tr+disc, tr-disc
	if l2 <= 0 {
		return 0, 0, 0, fmt.Errorf("degenerate shape %+v", q)
	}
	theta = 0.5 * math.Atan2(2*q.XY, q.XX-q.YY)
	return math.Sqrt(l1), math.Sqrt(l2), theta, nil
}

func qualityColor(fs adamom.FlagSet) color.Color {
	switch {
	case !fs.Any():
		return colorful.Hsv(120, 0.9, 0.9) // clean: green
	case fs.Has(adamom.FlagUnweightedBad):
		return colorful.Hsv(0, 0.9, 0.9) // hopeless: red
	case fs.Has(adamom.FlagUnweighted) || fs.Has(adamom.FlagMaxIter):
		return colorful.Hsv(30, 0.9, 0.9) // fallback: orange
	default:
		return colorful.Hsv(60, 0.9, 0.9) // flagged but weighted: yellow
	}
}

// grayscale maps the frame onto 16-bit gray, stretching between the
// 1st and 99.9th percentile so faint sources stay visible next to
// bright ones.
func (o *Overlay)grayscale() image.Image {
	f := o.Frame
	vals := make([]float64, 0, f.Width()*f.Height())
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			vals = append(vals, f.Value(x, y))
		}
	}
	sort.Float64s(vals)
	lo := vals[int(0.01*float64(len(vals)-1))]
	hi := vals[int(0.999*float64(len(vals)-1))]
	if hi <= lo {
		hi = lo + 1
	}

	img := image.NewRGBA64(image.Rect(0, 0, f.Width(), f.Height()))
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			v := (f.Value(x, y) - lo) / (hi - lo)
			if v < 0 { v = 0 }
			if v > 1 { v = 1 }
			v = math.Sqrt(v) // gentle stretch for the faint end
			g := uint16(v * 65535.0)
			img.Set(x, y, color.RGBA64{g, g, g, 0xFFFF})
		}
	}
	return img
}
