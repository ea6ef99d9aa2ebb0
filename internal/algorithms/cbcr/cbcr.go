// Package cbcr labels skin with the elliptical skin cluster of Hsu,
// Abdel-Mottaleb and Jain ("Face Detection in Color Images", PAMI 24(5),
// 2002) in the (Cb, Cr) chroma plane.
package cbcr

import (
	"fmt"
	"math"

	"skin-obliterator/internal/opencv/conversion"
	"skin-obliterator/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Ellipse parameters in the chroma plane.
const (
	cx    = 109.38
	cy    = 152.02
	theta = 2.53
	ecx   = 1.6
	ecy   = 2.41
	a     = 25.39
	b     = 14.03
)

// Luma-dependent cluster warps.
const (
	wcb  = 46.97
	wlcb = 23.0
	whcb = 14.0
	wcr  = 38.76
	wlcr = 20.0
	whcr = 10.0
	kl   = 125.0
	kh   = 188.0
	ymin = 16.0
	ymax = 235.0
)

var sinTheta, cosTheta = math.Sincos(theta)

type Options struct {
	// WantDistortion requests the per-pixel elliptical distortion map.
	WantDistortion bool
	// LumaCompensation applies the nonlinear luma transform to Cb and Cr
	// before the ellipse test. Pixels with luma in [Kl, Kh] are unchanged.
	LumaCompensation bool
}

// Result holds the buffers produced by Classify. The caller owns both.
type Result struct {
	// Mask is 8UC1, 1 where the distortion is at most 1.
	Mask *safe.Mat
	// Distortion is 64FC1, nil unless requested.
	Distortion *safe.Mat
}

func (r *Result) Close() {
	if r == nil {
		return
	}
	r.Mask.Close()
	r.Distortion.Close()
}

// Distortion returns the normalised elliptical distance of a chroma pair
// from the skin cluster. Values at most 1 are skin.
func Distortion(cb, cr float64) float64 {
	x := cosTheta*(cb-cx) + sinTheta*(cr-cy)
	y := -sinTheta*(cb-cx) + cosTheta*(cr-cy)
	return (x-ecx)*(x-ecx)/(a*a) + (y-ecy)*(y-ecy)/(b*b)
}

// Compensate maps (Cb, Cr) at luma y onto the cluster found at mid luma.
// Luma outside [Ymin, Ymax] is clamped for the warp computation.
func Compensate(y, cb, cr float64) (float64, float64) {
	if y >= kl && y <= kh {
		return cb, cr
	}

	y = math.Max(ymin, math.Min(ymax, y))

	var cbCenter, crCenter, cbWidth, crWidth float64
	if y < kl {
		cbWidth = wlcb + (y-ymin)*(wcb-wlcb)/(kl-ymin)
		crWidth = wlcr + (y-ymin)*(wcr-wlcr)/(kl-ymin)
		cbCenter = 108 + (kl-y)*10/(kl-ymin)
		crCenter = 154 - (kl-y)*10/(kl-ymin)
	} else {
		cbWidth = whcb + (ymax-y)*(wcb-whcb)/(ymax-kh)
		crWidth = whcr + (ymax-y)*(wcr-whcr)/(ymax-kh)
		cbCenter = 108 + (y-kh)*10/(ymax-kh)
		crCenter = 154 + (y-kh)*22/(ymax-kh)
	}

	return (cb-cbCenter)*wcb/cbWidth + 108,
		(cr-crCenter)*wcr/crWidth + 154
}

// Classify labels a BGR or BGRA 8-bit image.
func Classify(img *safe.Mat, opts Options) (*Result, error) {
	if err := safe.ValidateColorImage(img, "cbcr classification"); err != nil {
		return nil, err
	}

	ycrcb, err := conversion.ConvertBGRToYCrCb(img)
	if err != nil {
		return nil, fmt.Errorf("YCrCb conversion failed: %w", err)
	}
	defer ycrcb.Close()

	rows, cols := img.Rows(), img.Cols()
	distortion := make([]float64, rows*cols)

	err = ycrcb.WithUint8(func(data []uint8) error {
		if len(data) != 3*len(distortion) {
			return fmt.Errorf("%w: %d YCrCb bytes for %d pixels", safe.ErrShapeMismatch, len(data), len(distortion))
		}
		for j := range distortion {
			y, cr, cb := float64(data[3*j]), float64(data[3*j+1]), float64(data[3*j+2])
			if opts.LumaCompensation {
				cb, cr = Compensate(y, cb, cr)
			}
			distortion[j] = Distortion(cb, cr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	mask, err := safe.NewMatWithTag(rows, cols, gocv.MatTypeCV8UC1, "cbcr_mask")
	if err != nil {
		return nil, err
	}

	err = mask.WithUint8(func(data []uint8) error {
		for j, d := range distortion {
			if d <= 1 {
				data[j] = 1
			} else {
				data[j] = 0
			}
		}
		return nil
	})
	if err != nil {
		mask.Close()
		return nil, err
	}

	result := &Result{Mask: mask}
	if !opts.WantDistortion {
		return result, nil
	}

	result.Distortion, err = safe.NewMatWithTag(rows, cols, gocv.MatTypeCV64FC1, "cbcr_distortion")
	if err != nil {
		mask.Close()
		return nil, err
	}

	err = result.Distortion.WithFloat64(func(data []float64) error {
		copy(data, distortion)
		return nil
	})
	if err != nil {
		result.Close()
		return nil, err
	}

	return result, nil
}
