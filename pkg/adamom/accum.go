package adamom

import(
	"fmt"
	"math"
)

// rawMoments are the weighted pixel sums over one bounding box, for
// one weighting kernel. Computed fresh each iteration and never
// mutated afterwards.
type rawMoments struct {
	sum                 float64 // sum w*I
	sumx, sumy          float64 // sum [xy]*w*I, absolute local coords
	sumxx, sumxy, sumyy float64 // sum [xy]^2*w*I, relative to center
	sums4               float64 // sum Q^2*w*I
}

func checkWeights(w momentWeights) error {
	if w.w11 < 0 || w.w11 > 1e6 || math.Abs(w.w12) > 1e6 || w.w22 < 0 || w.w22 > 1e6 {
		return fmt.Errorf("%w: w11=%g w12=%g w22=%g", ErrBadWeight, w.w11, w.w12, w.w22)
	}
	return nil
}

func checkBounds(img Accessor, bb pixBox) error {
	if bb.x0 < 0 || bb.x1 >= img.Width() || bb.y0 < 0 || bb.y1 >= img.Height() {
		return fmt.Errorf("%w: box [%d,%d]x[%d,%d] vs frame %dx%d",
			ErrBounds, bb.x0, bb.x1, bb.y0, bb.y1, img.Width(), img.Height())
	}
	return nil
}

// calcMoments accumulates weighted moments of the object up to second
// order (plus the fourth-order term) over bb, for the Gaussian kernel
// with precision w centered at (xcen,ycen).
//
// In interpolated mode, any pixel whose worst corner exponent is small
// enough gets subdivided into a 4x4 subgrid and accumulated with
// subgrid-exact coordinates; this only costs extra where the kernel is
// about to cut off, which is exactly where pixel-center sampling bites.
//
// i0 is the peak amplitude of the matching Gaussian, i.e. the raw sum
// normalized by the kernel volume. ok is false when the signs of the
// sums are inconsistent with a positive source (or with a negative
// one, when negative is set).
func calcMoments(img Accessor, xcen, ycen float64, bb pixBox, bkgd float64,
	interp bool, w momentWeights, negative bool) (i0 float64, m rawMoments, ok bool, err error) {

	if err := checkWeights(w); err != nil {
		return 0, m, false, err
	}
	if err := checkBounds(img, bb); err != nil {
		return 0, m, false, err
	}

	for i := bb.y0; i <= bb.y1; i++ {
		y := float64(i) - ycen
		y2 := y * y
		yl := y - 0.375
		yh := y + 0.375
		for j := bb.x0; j <= bb.x1; j++ {
			x := float64(j) - xcen
			if interp {
				xl := x - 0.375
				xh := x + 0.375

				// The kernel varies quickly here, so test the four pixel
				// corners and take the worst case.
				expon := xl*xl*w.w11 + yl*yl*w.w22 + 2.0*xl*yl*w.w12
				if tmp := xh*xh*w.w11 + yh*yh*w.w22 + 2.0*xh*yh*w.w12; tmp > expon { expon = tmp }
				if tmp := xl*xl*w.w11 + yh*yh*w.w22 + 2.0*xl*yh*w.w12; tmp > expon { expon = tmp }
				if tmp := xh*xh*w.w11 + yl*yl*w.w22 + 2.0*xh*yl*w.w12; tmp > expon { expon = tmp }

				if expon <= maxInterpExpon {
					tmod := img.Value(j, i) - bkgd
					for sy := yl; sy <= yh; sy += 0.25 {
						interpY2 := sy * sy
						for sx := xl; sx <= xh; sx += 0.25 {
							interpX2 := sx * sx
							interpXy := sx * sy
							expon = interpX2*w.w11 + 2*interpXy*w.w12 + interpY2*w.w22
							ymod := tmod * math.Exp(-0.5*expon)

							m.sum += ymod
							m.sumx += ymod * (sx + xcen)
							m.sumy += ymod * (sy + ycen)
							m.sumxx += interpX2 * ymod
							m.sumxy += interpXy * ymod
							m.sumyy += interpY2 * ymod
							m.sums4 += expon * expon * ymod
						}
					}
				}
			} else {
				x2 := x * x
				xy := x * y
				expon := x2*w.w11 + 2*xy*w.w12 + y2*w.w22

				if expon <= maxExpon {
					ymod := (img.Value(j, i) - bkgd) * math.Exp(-0.5*expon)
					m.sum += ymod
					m.sumx += ymod * float64(j)
					m.sumy += ymod * float64(i)
					m.sumxx += x2 * ymod
					m.sumxy += xy * ymod
					m.sumyy += y2 * ymod
					m.sums4 += expon * expon * ymod
				}
			}
		}
	}

	// Normalize the raw sum by the kernel volume, so i0 estimates the
	// peak amplitude of the best-fit Gaussian rather than a weighted
	// count. With a zero (top-hat) kernel this is deliberately NaN.
	cov, _, _ := solveWeights(w.w11, w.w12, w.w22)
	detW := cov.w11*cov.w22 - cov.w12*cov.w12
	i0 = m.sum / (math.Pi * math.Sqrt(detW))

	if negative {
		ok = m.sum < 0 && m.sumxx < 0 && m.sumyy < 0
	} else {
		ok = m.sum > 0 && m.sumxx > 0 && m.sumyy > 0
	}
	return i0, m, ok, nil
}

// calcFluxSum is the flux-only variant of calcMoments: same kernel,
// same cutoffs, but only the zeroth moment, for callers that already
// know the shape.
func calcFluxSum(img Accessor, xcen, ycen float64, bb pixBox, bkgd float64,
	interp bool, w momentWeights) (float64, error) {

	if err := checkWeights(w); err != nil {
		return 0, err
	}
	if err := checkBounds(img, bb); err != nil {
		return 0, err
	}

	sum := 0.0
	for i := bb.y0; i <= bb.y1; i++ {
		y := float64(i) - ycen
		y2 := y * y
		yl := y - 0.375
		yh := y + 0.375
		for j := bb.x0; j <= bb.x1; j++ {
			x := float64(j) - xcen
			if interp {
				xl := x - 0.375
				xh := x + 0.375

				expon := xl*xl*w.w11 + yl*yl*w.w22 + 2.0*xl*yl*w.w12
				if tmp := xh*xh*w.w11 + yh*yh*w.w22 + 2.0*xh*yh*w.w12; tmp > expon { expon = tmp }
				if tmp := xl*xl*w.w11 + yh*yh*w.w22 + 2.0*xl*yh*w.w12; tmp > expon { expon = tmp }
				if tmp := xh*xh*w.w11 + yl*yl*w.w22 + 2.0*xh*yl*w.w12; tmp > expon { expon = tmp }

				if expon <= maxInterpExpon {
					tmod := img.Value(j, i) - bkgd
					for sy := yl; sy <= yh; sy += 0.25 {
						for sx := xl; sx <= xh; sx += 0.25 {
							expon = sx*sx*w.w11 + 2*sx*sy*w.w12 + sy*sy*w.w22
							sum += tmod * math.Exp(-0.5*expon)
						}
					}
				}
			} else {
				expon := x*x*w.w11 + 2*x*y*w.w12 + y2*w.w22
				if expon <= maxExpon {
					sum += (img.Value(j, i) - bkgd) * math.Exp(-0.5*expon)
				}
			}
		}
	}
	return sum, nil
}
