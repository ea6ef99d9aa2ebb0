package cbcr

import (
	"context"
	"fmt"

	"skin-obliterator/internal/algorithms/params"
	"skin-obliterator/internal/models"
	"skin-obliterator/internal/opencv/safe"
)

const Name = "cbcr"

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
		"want_distortion":   false, // Return the distortion map as the score
		"luma_compensation": false, // Nonlinear luma transform before the ellipse test
	}
}

func (p *Processor) ValidateParameters(values map[string]interface{}) error {
	if err := params.CheckType(values, "want_distortion", "bool"); err != nil {
		return err
	}
	return params.CheckType(values, "luma_compensation", "bool")
}

func (p *Processor) Classify(ctx context.Context, input *safe.Mat, values map[string]interface{}) (*models.Classification, error) {
	if err := p.ValidateParameters(values); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result, err := Classify(input, Options{
		WantDistortion:   params.Bool(values, "want_distortion", false),
		LumaCompensation: params.Bool(values, "luma_compensation", false),
	})
	if err != nil {
		return nil, fmt.Errorf("cbcr classification failed: %w", err)
	}

	return &models.Classification{
		Algorithm: p.name,
		Mask:      result.Mask,
		Score:     result.Distortion,
	}, nil
}
