package services

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"skin-obliterator/internal/logger"
	"skin-obliterator/internal/opencv/conversion"
	"skin-obliterator/internal/opencv/safe"
	"skin-obliterator/internal/pipeline"

	"gocv.io/x/gocv"
)

// maxImageSize bounds input files read into memory.
const maxImageSize = 256 * 1024 * 1024

// ImageService reads input images and ground truth masks and writes
// classifier outputs.
type ImageService struct {
	loader pipeline.ImageLoader
	saver  pipeline.ImageSaver
	logger logger.Logger
}

func NewImageService(log logger.Logger, timing pipeline.TimingTracker) *ImageService {
	return &ImageService{
		loader: pipeline.NewImageLoader(log, timing),
		saver:  pipeline.NewImageSaver(log, timing),
		logger: log,
	}
}

func readImageFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.Size() > maxImageSize {
		return nil, fmt.Errorf("image file too large: %d bytes (max %d)", info.Size(), maxImageSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// Load decodes the color image at path into a BGR Mat.
func (is *ImageService) Load(ctx context.Context, path string) (*pipeline.ImageData, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := readImageFile(path)
	if err != nil {
		return nil, err
	}

	imageData, err := is.loader.LoadFromBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return imageData, nil
}

// LoadMask decodes a ground truth image at path as 8-bit grayscale.
func (is *ImageService) LoadMask(ctx context.Context, path string) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := readImageFile(path)
	if err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask %s: %w", path, err)
	}

	mask, err := safe.Adopt(mat, "ground_truth")
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask %s: %w", path, err)
	}

	is.logger.Debug("ImageService", "ground truth loaded", map[string]interface{}{
		"path":   path,
		"width":  mask.Cols(),
		"height": mask.Rows(),
	})

	return mask, nil
}

// SaveMask writes a {0,1} mask as a black and white image; the format
// follows the file extension.
func (is *ImageService) SaveMask(ctx context.Context, path string, mask *safe.Mat) error {
	img, err := conversion.MaskToImage(mask)
	if err != nil {
		return fmt.Errorf("failed to convert mask: %w", err)
	}
	return is.save(ctx, path, img)
}

// SaveScore writes a 64-bit score map using intensity to map each value
// to a gray level.
func (is *ImageService) SaveScore(ctx context.Context, path string, score *safe.Mat, intensity func(float64) uint8) error {
	img, err := conversion.ScoreToImage(score, intensity)
	if err != nil {
		return fmt.Errorf("failed to convert score map: %w", err)
	}
	return is.save(ctx, path, img)
}

func (is *ImageService) save(ctx context.Context, path string, img image.Image) (err error) {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	format, err := pipeline.FormatForExtension(filepath.Ext(path))
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	if err := is.saver.SaveToWriter(file, img, format); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	is.logger.Info("ImageService", "image saved", map[string]interface{}{
		"path":   path,
		"format": format,
	})

	return nil
}
