package pipeline

import (
	"image"
	"io"

	"skin-obliterator/internal/opencv/safe"
)

// ImageLoader decodes encoded image files into BGR Mats.
type ImageLoader interface {
	LoadFromBytes(data []byte, extension string) (*ImageData, error)
}

// ImageSaver encodes single-channel results into image files.
type ImageSaver interface {
	SaveToWriter(writer io.Writer, img image.Image, format string) error
}

// ImageData is a decoded input image.
type ImageData struct {
	Mat      *safe.Mat
	Width    int
	Height   int
	Channels int
	Format   string
}

func (d *ImageData) Close() {
	if d == nil {
		return
	}
	d.Mat.Close()
}
