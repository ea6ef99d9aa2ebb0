package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type imageSaver struct {
	logger        Logger
	timingTracker TimingTracker
}

func NewImageSaver(logger Logger, timingTracker TimingTracker) ImageSaver {
	return &imageSaver{logger: logger, timingTracker: timingTracker}
}

// ErrUnsupportedFormat reports an output extension no encoder handles.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// FormatForExtension maps a file extension (with its dot, any case) onto
// a saver format.
func FormatForExtension(extension string) (string, error) {
	format := determineFormat(strings.ToLower(extension), "")
	if format == "unknown" {
		return "", fmt.Errorf("%w: %q (use .png, .jpg, .jpeg, .bmp, .tif or .tiff)", ErrUnsupportedFormat, extension)
	}
	return format, nil
}

func (s *imageSaver) SaveToWriter(writer io.Writer, img image.Image, format string) error {
	if img == nil {
		return fmt.Errorf("no image data to save")
	}

	ctx := s.timingTracker.StartTiming("save_to_writer")
	defer s.timingTracker.EndTiming(ctx)

	bounds := img.Bounds()
	s.logger.Debug("ImageSaver", "saving image", map[string]interface{}{
		"format": format,
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
	})

	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(writer, img, &jpeg.Options{Quality: 95})
	case "png":
		err = png.Encode(writer, img)
	case "bmp":
		err = bmp.Encode(writer, img)
	case "tiff":
		err = tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"format": format,
		})
		return err
	}

	return nil
}
