package safe

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrShapeMismatch reports buffers that are expected to share width,
// height or channel layout but do not.
var ErrShapeMismatch = errors.New("shape mismatch")

// TypeName returns the OpenCV spelling of the Mat types used here.
func TypeName(t gocv.MatType) string {
	switch t {
	case gocv.MatTypeCV8UC1:
		return "8UC1"
	case gocv.MatTypeCV8UC3:
		return "8UC3"
	case gocv.MatTypeCV8UC4:
		return "8UC4"
	case gocv.MatTypeCV32FC1:
		return "32FC1"
	case gocv.MatTypeCV64FC1:
		return "64FC1"
	case gocv.MatTypeCV64FC3:
		return "64FC3"
	default:
		return fmt.Sprintf("MatType(%d)", int(t))
	}
}

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat %q is invalid for operation: %s", mat.Tag(), operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat %q is empty for operation: %s", mat.Tag(), operation)
	}

	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("Mat has invalid dimensions %dx%d for operation: %s",
			mat.Cols(), mat.Rows(), operation)
	}

	return nil
}

// ValidateColorImage checks that src is a usable 8-bit image with at
// least three interleaved channels.
func ValidateColorImage(src *Mat, operation string) error {
	if err := ValidateMatForOperation(src, operation); err != nil {
		return err
	}

	if src.Channels() < 3 {
		return fmt.Errorf("%w: %s requires at least 3 channels, got %d", ErrShapeMismatch, operation, src.Channels())
	}

	switch src.Type() {
	case gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return nil
	default:
		return fmt.Errorf("%s requires an 8-bit image, got %s", operation, TypeName(src.Type()))
	}
}

// ValidateSameSize checks that dst has the width and height of src.
func ValidateSameSize(src, dst *Mat, operation string) error {
	if err := ValidateMatForOperation(dst, operation); err != nil {
		return err
	}

	if src.Cols() != dst.Cols() || src.Rows() != dst.Rows() {
		return fmt.Errorf("%w: %s expects %dx%d, got %dx%d", ErrShapeMismatch, operation,
			src.Cols(), src.Rows(), dst.Cols(), dst.Rows())
	}

	return nil
}

// ValidateSingleChannel checks that dst has exactly one channel of one of
// the allowed types.
func ValidateSingleChannel(dst *Mat, operation string, allowed ...gocv.MatType) error {
	if dst.Channels() != 1 {
		return fmt.Errorf("%w: %s requires a single-channel buffer, got %d channels",
			ErrShapeMismatch, operation, dst.Channels())
	}

	for _, t := range allowed {
		if dst.Type() == t {
			return nil
		}
	}

	return fmt.Errorf("%w: %s does not accept %s", ErrShapeMismatch, operation, TypeName(dst.Type()))
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}

	if width > 32768 || height > 32768 {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}

	return nil
}

func ValidateCoordinates(row, col, rows, cols int, operation string) error {
	if row < 0 || row >= rows {
		return fmt.Errorf("row %d out of bounds [0, %d) for operation: %s", row, rows, operation)
	}

	if col < 0 || col >= cols {
		return fmt.Errorf("col %d out of bounds [0, %d) for operation: %s", col, cols, operation)
	}

	return nil
}

func ValidateChannel(channel, channels int, operation string) error {
	if channel < 0 || channel >= channels {
		return fmt.Errorf("channel %d out of bounds [0, %d) for operation: %s", channel, channels, operation)
	}

	return nil
}
