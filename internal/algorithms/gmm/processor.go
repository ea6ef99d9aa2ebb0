package gmm

import (
	"context"
	"fmt"
	"math"

	"skin-obliterator/internal/algorithms/params"
	"skin-obliterator/internal/models"
	"skin-obliterator/internal/opencv/safe"
)

// Name identifies the mixture classifier in the algorithm registry.
const Name = "gmm"

// Processor adapts Classifier to the parameter-map algorithm interface.
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
		"threshold":  DefaultThreshold, // Likelihood ratio cut, strict >
		"want_ratio": false,            // Return the ratio map as the score
		"workers":    0,                // Goroutines per evaluation, 0 = GOMAXPROCS
	}
}

func (p *Processor) ValidateParameters(values map[string]interface{}) error {
	if err := params.CheckType(values, "threshold", "float"); err != nil {
		return err
	}
	if err := params.CheckType(values, "want_ratio", "bool"); err != nil {
		return err
	}
	if err := params.CheckType(values, "workers", "int"); err != nil {
		return err
	}

	threshold := params.Float(values, "threshold", DefaultThreshold)
	if math.IsNaN(threshold) {
		return fmt.Errorf("threshold must be a number, got NaN")
	}

	if workers := params.Int(values, "workers", 0); workers < 0 {
		return fmt.Errorf("workers must be 0 (auto) or positive, got: %d", workers)
	}

	return nil
}

func (p *Processor) Classify(ctx context.Context, input *safe.Mat, values map[string]interface{}) (*models.Classification, error) {
	if err := safe.ValidateColorImage(input, "gmm classification"); err != nil {
		return nil, err
	}

	if err := p.ValidateParameters(values); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	classifier := NewClassifier(WithWorkers(params.Int(values, "workers", 0)))
	result, err := classifier.Classify(input,
		params.Float(values, "threshold", DefaultThreshold),
		params.Bool(values, "want_ratio", false))
	if err != nil {
		return nil, err
	}

	return &models.Classification{
		Algorithm: p.name,
		Mask:      result.Mask,
		Score:     result.Ratio,
	}, nil
}
