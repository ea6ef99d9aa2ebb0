package conversion

import (
	"fmt"

	"skin-obliterator/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ColorSpace names the channel layout a classifier works in.
type ColorSpace int

const (
	ColorSpaceBGR ColorSpace = iota
	ColorSpaceRGB
	ColorSpaceYCrCb
)

func (cs ColorSpace) String() string {
	switch cs {
	case ColorSpaceBGR:
		return "BGR"
	case ColorSpaceRGB:
		return "RGB"
	case ColorSpaceYCrCb:
		return "YCrCb"
	default:
		return fmt.Sprintf("ColorSpace(%d)", int(cs))
	}
}

// ConvertColorSpace converts an 8-bit BGR or BGRA image into a new
// three-channel 8-bit Mat in the target space. The source is never modified.
func ConvertColorSpace(src *safe.Mat, targetSpace ColorSpace) (*safe.Mat, error) {
	if err := safe.ValidateColorImage(src, "color space conversion"); err != nil {
		return nil, err
	}

	code, ok := conversionCode(src.Channels(), targetSpace)
	if !ok {
		if src.Channels() == 3 {
			return src.Clone()
		}
		return nil, fmt.Errorf("unsupported conversion from %d channels to %s", src.Channels(), targetSpace)
	}

	dst, err := safe.NewMatWithTag(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3, targetSpace.String())
	if err != nil {
		return nil, fmt.Errorf("destination Mat creation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	gocv.CvtColor(srcMat, &dstMat, code)

	return dst, nil
}

// ConvertBGRToRGB swaps the red and blue channels, dropping alpha if present.
func ConvertBGRToRGB(src *safe.Mat) (*safe.Mat, error) {
	return ConvertColorSpace(src, ColorSpaceRGB)
}

// ConvertBGRToYCrCb converts to OpenCV's Y, Cr, Cb channel order.
func ConvertBGRToYCrCb(src *safe.Mat) (*safe.Mat, error) {
	return ConvertColorSpace(src, ColorSpaceYCrCb)
}

func conversionCode(channels int, target ColorSpace) (gocv.ColorConversionCode, bool) {
	switch {
	case channels == 3 && target == ColorSpaceRGB:
		return gocv.ColorBGRToRGB, true
	case channels == 4 && target == ColorSpaceRGB:
		return gocv.ColorBGRAToRGB, true
	case channels == 4 && target == ColorSpaceBGR:
		return gocv.ColorBGRAToBGR, true
	case (channels == 3 || channels == 4) && target == ColorSpaceYCrCb:
		// OpenCV accepts a 3 or 4 channel source for this code.
		return gocv.ColorBGRToYCrCb, true
	default:
		return 0, false
	}
}
