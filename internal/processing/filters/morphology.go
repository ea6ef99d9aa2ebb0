package filters

import (
	"context"
	"fmt"
	"image"

	"skin-obliterator/internal/algorithms/params"
	"skin-obliterator/internal/opencv/safe"

	"gocv.io/x/gocv"
)

func cleanupKernel(values map[string]interface{}) (int, error) {
	size := params.Int(values, "cleanup_kernel", 3)
	if size < 3 || size%2 == 0 {
		return 0, fmt.Errorf("cleanup_kernel must be an odd number of at least 3, got: %d", size)
	}
	return size, nil
}

// MorphologyFilter removes isolated mask pixels with an opening, then
// fills pinholes with a closing using a kernel two pixels larger.
type MorphologyFilter struct{}

func NewMorphologyFilter() *MorphologyFilter {
	return &MorphologyFilter{}
}

func (m *MorphologyFilter) Name() string {
	return "morphology_filter"
}

func (m *MorphologyFilter) ShouldExecute(values map[string]interface{}) bool {
	return params.Bool(values, "cleanup", false)
}

func (m *MorphologyFilter) Apply(ctx context.Context, input *safe.Mat, values map[string]interface{}) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateMatForOperation(input, "morphological cleanup"); err != nil {
		return nil, err
	}

	size, err := cleanupKernel(values)
	if err != nil {
		return nil, err
	}

	return m.applyMorphologicalCleanup(input, size)
}

func (m *MorphologyFilter) applyMorphologicalCleanup(src *safe.Mat, size int) (*safe.Mat, error) {
	openKernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: size, Y: size})
	defer openKernel.Close()

	closeKernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: size + 2, Y: size + 2})
	defer closeKernel.Close()

	opened, err := safe.NewMat(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create opened Mat: %w", err)
	}
	defer opened.Close()

	srcMat := src.GetMat()
	openedMat := opened.GetMat()
	gocv.MorphologyEx(srcMat, &openedMat, gocv.MorphOpen, openKernel)

	result, err := safe.NewMat(opened.Rows(), opened.Cols(), opened.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create result Mat: %w", err)
	}

	resultMat := result.GetMat()
	gocv.MorphologyEx(openedMat, &resultMat, gocv.MorphClose, closeKernel)

	return result, nil
}

// MedianFilter smooths jagged mask boundaries.
type MedianFilter struct{}

func NewMedianFilter() *MedianFilter {
	return &MedianFilter{}
}

func (m *MedianFilter) Name() string {
	return "median_filter"
}

func (m *MedianFilter) ShouldExecute(values map[string]interface{}) bool {
	return params.Bool(values, "cleanup", false)
}

func (m *MedianFilter) Apply(ctx context.Context, input *safe.Mat, values map[string]interface{}) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateMatForOperation(input, "median cleanup"); err != nil {
		return nil, err
	}

	size, err := cleanupKernel(values)
	if err != nil {
		return nil, err
	}

	result, err := safe.NewMat(input.Rows(), input.Cols(), input.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create result Mat: %w", err)
	}

	srcMat := input.GetMat()
	resultMat := result.GetMat()
	gocv.MedianBlur(srcMat, &resultMat, size)

	return result, nil
}
