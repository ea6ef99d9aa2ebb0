package chain

import (
	"context"
	"fmt"

	"skin-obliterator/internal/opencv/safe"
)

// ProcessingStep is one image-to-image transform. Apply must not modify
// input and returns a new Mat owned by the caller.
type ProcessingStep interface {
	Apply(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*safe.Mat, error)
	Name() string
	ShouldExecute(params map[string]interface{}) bool
}

// ProcessingChain runs a fixed sequence of steps. It is immutable after
// construction and safe for concurrent use.
type ProcessingChain struct {
	steps []ProcessingStep
}

func NewProcessingChain(steps []ProcessingStep) *ProcessingChain {
	return &ProcessingChain{
		steps: append([]ProcessingStep(nil), steps...),
	}
}

// Execute runs every step whose ShouldExecute accepts params, feeding each
// result to the next. The returned Mat is always new and owned by the
// caller, even when no step ran. Intermediates are closed as soon as the
// next step has consumed them.
func (pc *ProcessingChain) Execute(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	var owned *safe.Mat

	for _, step := range pc.steps {
		if err := ctx.Err(); err != nil {
			owned.Close()
			return nil, err
		}

		if !step.ShouldExecute(params) {
			continue
		}

		current := input
		if owned != nil {
			current = owned
		}

		next, err := step.Apply(ctx, current, params)
		owned.Close()
		if err != nil {
			return nil, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}
		owned = next
	}

	if owned == nil {
		return input.Clone()
	}

	return owned, nil
}

// StepNames lists step names in execution order.
func (pc *ProcessingChain) StepNames() []string {
	names := make([]string, len(pc.steps))
	for i, step := range pc.steps {
		names[i] = step.Name()
	}
	return names
}
