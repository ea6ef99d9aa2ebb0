// Package gauss labels skin by an axis-aligned box around the mean skin
// color: a pixel is skin when every RGB channel lies strictly within
// factor standard deviations of the channel mean.
package gauss

import (
	"context"
	"fmt"
	"math"

	"skin-obliterator/internal/algorithms/params"
	"skin-obliterator/internal/models"
	"skin-obliterator/internal/opencv/safe"
	"skin-obliterator/internal/processing/pixels"
)

const (
	Name = "gauss"
	// DefaultFactor is the box half-width in standard deviations.
	DefaultFactor = 2.5
)

// Mean and Sigma are the per-channel skin statistics in R, G, B order.
var (
	Mean  = [3]float64{188.9069, 142.9157, 115.1863}
	Sigma = [3]float64{58.3542, 45.3306, 43.397}
)

// Box holds the precomputed open interval for each channel.
type Box struct {
	lo, hi [3]float64
}

// NewBox returns the box for factor, which must be positive and finite.
func NewBox(factor float64) (Box, error) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return Box{}, fmt.Errorf("factor must be a positive number, got: %v", factor)
	}

	var b Box
	for i := range Mean {
		b.lo[i] = Mean[i] - factor*Sigma[i]
		b.hi[i] = Mean[i] + factor*Sigma[i]
	}
	return b, nil
}

// Contains reports whether an RGB pixel lies strictly inside the box.
func (b Box) Contains(r, g, bl uint8) bool {
	x := [3]float64{float64(r), float64(g), float64(bl)}
	for i := range x {
		if !(x[i] > b.lo[i] && x[i] < b.hi[i]) {
			return false
		}
	}
	return true
}

// Classify labels a BGR or BGRA 8-bit image and returns an 8UC1 mask.
func Classify(img *safe.Mat, factor float64) (*safe.Mat, error) {
	box, err := NewBox(factor)
	if err != nil {
		return nil, err
	}

	return pixels.Label(img, func(px []uint8) uint8 {
		if box.Contains(px[2], px[1], px[0]) {
			return 1
		}
		return 0
	})
}

type Processor struct {
	name string
}

func NewProcessor() *Processor {
	return &Processor{name: Name}
}

func (p *Processor) Name() string {
	return p.name
}

func (p *Processor) DefaultParameters() map[string]interface{} {
	return map[string]interface{}{
		"factor": DefaultFactor, // Box half-width in standard deviations
	}
}

func (p *Processor) ValidateParameters(values map[string]interface{}) error {
	if err := params.CheckType(values, "factor", "float"); err != nil {
		return err
	}
	_, err := NewBox(params.Float(values, "factor", DefaultFactor))
	return err
}

func (p *Processor) Classify(ctx context.Context, input *safe.Mat, values map[string]interface{}) (*models.Classification, error) {
	if err := p.ValidateParameters(values); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	mask, err := Classify(input, params.Float(values, "factor", DefaultFactor))
	if err != nil {
		return nil, fmt.Errorf("gauss classification failed: %w", err)
	}

	return &models.Classification{Algorithm: p.name, Mask: mask}, nil
}
