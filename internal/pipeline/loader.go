package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"skin-obliterator/internal/opencv/safe"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

type imageLoader struct {
	logger        Logger
	timingTracker TimingTracker
}

func NewImageLoader(logger Logger, timingTracker TimingTracker) ImageLoader {
	return &imageLoader{logger: logger, timingTracker: timingTracker}
}

func (l *imageLoader) LoadFromBytes(data []byte, extension string) (*ImageData, error) {
	ctx := l.timingTracker.StartTiming("load_from_bytes")
	defer l.timingTracker.EndTiming(ctx)

	// image.DecodeConfig only sniffs the header; the pixels come from OpenCV.
	_, standardLibFormat, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		l.logger.Debug("ImageLoader", "format sniffing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cvCtx := l.timingTracker.StartTiming("opencv_decode")
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	l.timingTracker.EndTiming(cvCtx)

	if err != nil {
		return nil, fmt.Errorf("failed to decode image with OpenCV: %w", err)
	}

	safeMat, err := safe.Adopt(mat, "loaded_image")
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	imageData := &ImageData{
		Mat:      safeMat,
		Width:    safeMat.Cols(),
		Height:   safeMat.Rows(),
		Channels: safeMat.Channels(),
		Format:   determineFormat(strings.ToLower(extension), standardLibFormat),
	}

	l.logger.Info("ImageLoader", "image loaded", map[string]interface{}{
		"width":    imageData.Width,
		"height":   imageData.Height,
		"channels": imageData.Channels,
		"format":   imageData.Format,
	})

	return imageData, nil
}

func determineFormat(extension, stdLibFormat string) string {
	switch extension {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	default:
		if stdLibFormat != "" {
			return stdLibFormat
		}
		return "unknown"
	}
}
