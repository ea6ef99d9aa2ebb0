package filters

import (
	"context"
	"fmt"
	"image"

	"skin-obliterator/internal/algorithms/params"
	"skin-obliterator/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// GaussianFilter smooths the color input before classification to
// suppress sensor noise and JPEG block edges.
type GaussianFilter struct{}

func NewGaussianFilter() *GaussianFilter {
	return &GaussianFilter{}
}

func (g *GaussianFilter) Name() string {
	return "gaussian_filter"
}

func (g *GaussianFilter) ShouldExecute(values map[string]interface{}) bool {
	return params.Bool(values, "blur", false)
}

func (g *GaussianFilter) Apply(ctx context.Context, input *safe.Mat, values map[string]interface{}) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateMatForOperation(input, "gaussian blur"); err != nil {
		return nil, err
	}

	sigma := params.Float(values, "blur_sigma", 1.0)
	kernelSize := params.Int(values, "blur_kernel", 5)
	if kernelSize < 1 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("blur_kernel must be a positive odd number, got: %d", kernelSize)
	}

	if sigma <= 0.0 && kernelSize == 1 {
		return input.Clone()
	}

	return g.applyGaussianBlur(input, kernelSize, sigma)
}

func (g *GaussianFilter) applyGaussianBlur(src *safe.Mat, kernelSize int, sigma float64) (*safe.Mat, error) {
	dst, err := safe.NewMat(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	gocv.GaussianBlur(srcMat, &dstMat, image.Point{X: kernelSize, Y: kernelSize}, sigma, sigma, gocv.BorderDefault)

	return dst, nil
}
