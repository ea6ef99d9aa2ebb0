// Package peer implements the explicit RGB skin rule of Peer et al.
// ("Human skin colour clustering for face detection", EUROCON 2003) for
// uniform daylight illumination.
package peer

import (
	"context"
	"fmt"

	"skin-obliterator/internal/models"
	"skin-obliterator/internal/opencv/safe"
	"skin-obliterator/internal/processing/pixels"
)

const Name = "peer"

// IsSkin applies the rule to one pixel.
func IsSkin(r, g, b uint8) bool {
	ri, gi, bi := int(r), int(g), int(b)
	hi := max(ri, gi, bi)
	lo := min(ri, gi, bi)

	return ri > 95 && gi > 40 && bi > 20 &&
		hi-lo > 15 &&
		abs(ri-gi) > 15 &&
		ri > gi && ri > bi
}

// Classify labels every pixel of a BGR or BGRA 8-bit image and returns an
// 8UC1 mask holding 1 for skin.
func Classify(img *safe.Mat) (*safe.Mat, error) {
	return pixels.Label(img, func(px []uint8) uint8 {
		if IsSkin(px[2], px[1], px[0]) {
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
	return map[string]interface{}{}
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	return nil
}

func (p *Processor) Classify(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*models.Classification, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	mask, err := Classify(input)
	if err != nil {
		return nil, fmt.Errorf("peer classification failed: %w", err)
	}

	return &models.Classification{Algorithm: p.name, Mask: mask}, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
