package conversion

import (
	"fmt"
	"image"
	"math"

	"skin-obliterator/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ImageToMat converts a Go image into an 8-bit BGR Mat.
func ImageToMat(img image.Image) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("image to Mat conversion failed: %w", err)
	}

	return safe.Adopt(mat, "from_image")
}

// MatToImage converts a 1, 3 or 4 channel 8-bit Mat into a Go image.
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	mat := src.GetMat()
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("Mat to image conversion failed: %w", err)
	}
	return img, nil
}

// MaskToImage renders a {0,1} mask as black and white.
func MaskToImage(mask *safe.Mat) (*image.Gray, error) {
	if err := safe.ValidateMatForOperation(mask, "mask to image conversion"); err != nil {
		return nil, err
	}
	if err := safe.ValidateSingleChannel(mask, "mask to image conversion", gocv.MatTypeCV8UC1); err != nil {
		return nil, err
	}

	rows, cols := mask.Rows(), mask.Cols()
	img := image.NewGray(image.Rect(0, 0, cols, rows))

	err := mask.WithUint8(func(data []uint8) error {
		for i, v := range data {
			if v != 0 {
				img.Pix[(i/cols)*img.Stride+i%cols] = 255
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return img, nil
}

// ScoreToImage renders a single-channel 64-bit float score map through
// intensity, one grey level per pixel.
func ScoreToImage(score *safe.Mat, intensity func(float64) uint8) (*image.Gray, error) {
	if err := safe.ValidateMatForOperation(score, "score to image conversion"); err != nil {
		return nil, err
	}
	if err := safe.ValidateSingleChannel(score, "score to image conversion", gocv.MatTypeCV64FC1); err != nil {
		return nil, err
	}

	rows, cols := score.Rows(), score.Cols()
	img := image.NewGray(image.Rect(0, 0, cols, rows))

	err := score.WithFloat64(func(data []float64) error {
		for i, v := range data {
			img.Pix[(i/cols)*img.Stride+i%cols] = intensity(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return img, nil
}

// RatioIntensity maps a likelihood ratio r in [0, +Inf] to r/(1+r),
// the skin posterior under equal priors, scaled to 0..255.
func RatioIntensity(r float64) uint8 {
	switch {
	case math.IsNaN(r) || r <= 0:
		return 0
	case math.IsInf(r, 1):
		return 255
	}
	// 255*r overflows for r near MaxFloat64; 1/r does not.
	return uint8(math.Round(255 / (1 + 1/r)))
}

// DistortionIntensity maps an elliptical distortion d >= 0 to 255/(1+d),
// so pixels inside the ellipse (d <= 1) render at half intensity or above.
func DistortionIntensity(d float64) uint8 {
	if math.IsNaN(d) || math.IsInf(d, 1) {
		return 0
	}
	if d < 0 {
		d = 0
	}
	return uint8(math.Round(255 / (1 + d)))
}

// ConvertMatType changes the element depth of src, keeping values as is.
// The result is always a new Mat.
func ConvertMatType(src *safe.Mat, targetType gocv.MatType) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "Mat type conversion"); err != nil {
		return nil, err
	}
	if src.Type() == targetType {
		return src.Clone()
	}

	converted := gocv.NewMat()
	srcMat := src.GetMat()
	srcMat.ConvertTo(&converted, targetType)
	if converted.Empty() {
		converted.Close()
		return nil, fmt.Errorf("%s to %s conversion failed", safe.TypeName(src.Type()), safe.TypeName(targetType))
	}

	return safe.Adopt(converted, "converted_"+safe.TypeName(targetType))
}
