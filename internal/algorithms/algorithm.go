package algorithms

import (
	"context"

	"skin-obliterator/internal/models"
	"skin-obliterator/internal/opencv/safe"
)

// Algorithm is a skin classifier driven by a loosely typed parameter map,
// as read from configuration files or CLI flags.
type Algorithm interface {
	Name() string
	DefaultParameters() map[string]interface{}
	ValidateParameters(params map[string]interface{}) error
	// Classify labels input, a BGR or BGRA 8-bit image. The returned
	// Classification is owned by the caller.
	Classify(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*models.Classification, error)
}
