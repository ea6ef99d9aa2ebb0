package models

import (
	"skin-obliterator/internal/opencv/safe"
)

// Classification is the output of one skin classifier run. Ownership of
// both buffers passes to the caller.
type Classification struct {
	Algorithm string
	// Mask is 8UC1 with values in {0,1}, 1 marking skin.
	Mask *safe.Mat
	// Score is an optional 64FC1 per-pixel score: the likelihood ratio
	// for the mixture model, the elliptical distortion for CbCr.
	Score *safe.Mat
}

func (c *Classification) Close() {
	if c == nil {
		return
	}
	c.Mask.Close()
	c.Score.Close()
}

// SkinPixels counts mask pixels set to 1.
func (c *Classification) SkinPixels() (int, error) {
	count := 0
	err := c.Mask.WithUint8(func(data []uint8) error {
		for _, v := range data {
			if v != 0 {
				count++
			}
		}
		return nil
	})
	return count, err
}
