package gmm

import (
	"fmt"
	"math"

	"skin-obliterator/internal/opencv/conversion"
	"skin-obliterator/internal/opencv/safe"
	"skin-obliterator/internal/processing/pixels"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// DefaultThreshold is the likelihood ratio above which a pixel is skin.
const DefaultThreshold = 1.0

// Result holds the buffers produced by Classify. The caller owns both.
type Result struct {
	// Mask is 8UC1, 1 where the ratio exceeds the threshold and 0 elsewhere.
	Mask *safe.Mat
	// Ratio is the 64FC1 skin/non-skin likelihood ratio map, nil unless
	// requested.
	Ratio *safe.Mat
}

func (r *Result) Close() {
	if r == nil {
		return
	}
	r.Mask.Close()
	r.Ratio.Close()
}

// Classifier labels pixels by comparing the skin and non-skin mixture
// densities. It holds no per-call state and is safe for concurrent use.
type Classifier struct {
	skin      *Model
	nonSkin   *Model
	evaluator *Evaluator
}

type Option func(*Classifier)

// WithWorkers bounds the goroutines used per density evaluation.
func WithWorkers(n int) Option {
	return func(c *Classifier) {
		c.evaluator = NewEvaluator(n)
	}
}

// WithModels replaces the trained mixtures.
func WithModels(skin, nonSkin *Model) Option {
	return func(c *Classifier) {
		c.skin = skin
		c.nonSkin = nonSkin
	}
}

func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		skin:      SkinModel(),
		nonSkin:   NonSkinModel(),
		evaluator: NewEvaluator(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) validateModels() error {
	if err := c.skin.Validate(); err != nil {
		return fmt.Errorf("skin model: %w", err)
	}
	if err := c.nonSkin.Validate(); err != nil {
		return fmt.Errorf("non-skin model: %w", err)
	}
	return nil
}

// Classify computes a skin mask for a BGR (or BGRA) 8-bit image. A pixel
// is skin when its likelihood ratio is strictly greater than threshold.
// When wantRatio is set the ratio map is returned as well.
func (c *Classifier) Classify(img *safe.Mat, threshold float64, wantRatio bool) (*Result, error) {
	if err := safe.ValidateColorImage(img, "gmm classification"); err != nil {
		return nil, err
	}
	if err := c.validateModels(); err != nil {
		return nil, err
	}

	pixelMatrix, err := pixels.ToPixelMatrix(img, conversion.ColorSpaceRGB)
	if err != nil {
		return nil, err
	}

	ratio, err := c.LikelihoodRatio(pixelMatrix)
	if err != nil {
		return nil, err
	}

	width, height := img.Cols(), img.Rows()

	mask, err := pixels.FromVector(Binarize(ratio, threshold), width, height, gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, fmt.Errorf("mask reshape failed: %w", err)
	}

	result := &Result{Mask: mask}
	if wantRatio {
		result.Ratio, err = pixels.FromVector(ratio, width, height, gocv.MatTypeCV64FC1)
		if err != nil {
			mask.Close()
			return nil, fmt.Errorf("ratio reshape failed: %w", err)
		}
	}

	return result, nil
}

// ClassifyInto writes the mask, and the ratio map when ratio is non-nil,
// into caller-supplied buffers. mask must be 8UC1 and ratio 32FC1 or
// 64FC1, both the size of img. Every check runs before any write, so on
// error neither buffer is modified.
func (c *Classifier) ClassifyInto(img, mask, ratio *safe.Mat, threshold float64) error {
	if err := safe.ValidateColorImage(img, "gmm classification"); err != nil {
		return err
	}
	if err := safe.ValidateSameSize(img, mask, "gmm mask"); err != nil {
		return err
	}
	if err := safe.ValidateSingleChannel(mask, "gmm mask", gocv.MatTypeCV8UC1); err != nil {
		return err
	}
	if ratio != nil {
		if err := safe.ValidateSameSize(img, ratio, "gmm ratio"); err != nil {
			return err
		}
		if err := safe.ValidateSingleChannel(ratio, "gmm ratio", gocv.MatTypeCV32FC1, gocv.MatTypeCV64FC1); err != nil {
			return err
		}
	}

	result, err := c.Classify(img, threshold, ratio != nil)
	if err != nil {
		return err
	}
	defer result.Close()

	if ratio != nil {
		src := result.Ratio
		if ratio.Type() != gocv.MatTypeCV64FC1 {
			narrowed, err := conversion.ConvertMatType(result.Ratio, ratio.Type())
			if err != nil {
				return err
			}
			defer narrowed.Close()
			src = narrowed
		}
		if err := src.CopyTo(ratio); err != nil {
			return err
		}
	}

	return result.Mask.CopyTo(mask)
}

// LikelihoodRatio evaluates both mixtures over a Dimension x N RGB pixel
// matrix and returns the per-pixel ratio skin/non-skin.
func (c *Classifier) LikelihoodRatio(pixelMatrix *mat.Dense) (*mat.VecDense, error) {
	if err := c.validateModels(); err != nil {
		return nil, err
	}

	var skin, nonSkin *mat.VecDense

	var g errgroup.Group
	g.Go(func() error {
		var err error
		skin, err = c.evaluator.Evaluate(pixelMatrix, c.skin)
		return err
	})
	g.Go(func() error {
		var err error
		nonSkin, err = c.evaluator.Evaluate(pixelMatrix, c.nonSkin)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := skin.Len()
	out := make([]float64, n)
	for j := 0; j < n; j++ {
		out[j] = Ratio(skin.AtVec(j), nonSkin.AtVec(j))
	}
	return mat.NewVecDense(n, out), nil
}

// Ratio divides a skin density by a non-skin density. A zero denominator
// yields +Inf for a positive numerator and 0 when both are zero, so the
// result is never NaN.
func Ratio(skin, nonSkin float64) float64 {
	if nonSkin == 0 {
		if skin > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return skin / nonSkin
}

// Binarize maps each ratio to 1 when it is strictly greater than
// threshold and 0 otherwise. A NaN threshold labels nothing.
func Binarize(ratio mat.Vector, threshold float64) *mat.VecDense {
	n := ratio.Len()
	out := make([]float64, n)
	for j := 0; j < n; j++ {
		if ratio.AtVec(j) > threshold {
			out[j] = 1
		}
	}
	return mat.NewVecDense(n, out)
}
