// Package pixels moves image data between gocv raster buffers and the
// channel-major matrices the statistical classifiers work on.
package pixels

import (
	"fmt"
	"math"

	"skin-obliterator/internal/opencv/conversion"
	"skin-obliterator/internal/opencv/safe"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// Dimension is the number of color channels per pixel column.
const Dimension = 3

// ToPixelMatrix converts img into space and flattens it into a
// Dimension x N matrix, N = width*height. Column j holds pixel
// j = row*width + col. The result is a deep copy; img is not modified.
func ToPixelMatrix(img *safe.Mat, space conversion.ColorSpace) (*mat.Dense, error) {
	if err := safe.ValidateColorImage(img, "pixel matrix"); err != nil {
		return nil, err
	}

	converted, err := conversion.ConvertColorSpace(img, space)
	if err != nil {
		return nil, fmt.Errorf("color conversion failed: %w", err)
	}
	defer converted.Close()

	doubles, err := conversion.ConvertMatType(converted, gocv.MatTypeCV64FC3)
	if err != nil {
		return nil, fmt.Errorf("depth conversion failed: %w", err)
	}
	defer doubles.Close()

	n := doubles.Rows() * doubles.Cols()

	// Reshape to N x 1 rows of Dimension values, then transpose to
	// Dimension x N so each column is one pixel.
	doublesMat := doubles.GetMat()
	flat := doublesMat.Reshape(1, n)
	defer flat.Close()

	transposed := gocv.NewMat()
	defer transposed.Close()
	gocv.Transpose(flat, &transposed)

	if transposed.Rows() != Dimension || transposed.Cols() != n {
		return nil, fmt.Errorf("%w: transposed pixel matrix is %dx%d, want %dx%d",
			safe.ErrShapeMismatch, transposed.Rows(), transposed.Cols(), Dimension, n)
	}

	data, err := transposed.DataPtrFloat64()
	if err != nil {
		return nil, fmt.Errorf("pixel data access failed: %w", err)
	}

	return mat.NewDense(Dimension, n, append([]float64(nil), data...)), nil
}

// FromVector reshapes a 1 x N vector into a height x width single-channel
// Mat of matType (8UC1, 32FC1 or 64FC1). 8-bit output saturates to 0..255.
func FromVector(v mat.Vector, width, height int, matType gocv.MatType) (*safe.Mat, error) {
	if err := safe.ValidateDimensions(width, height, "vector reshape"); err != nil {
		return nil, err
	}

	if v.Len() != width*height {
		return nil, fmt.Errorf("%w: vector of length %d cannot fill %dx%d",
			safe.ErrShapeMismatch, v.Len(), width, height)
	}

	dst, err := safe.NewMatWithTag(height, width, matType, "from_vector")
	if err != nil {
		return nil, err
	}

	switch matType {
	case gocv.MatTypeCV8UC1:
		err = dst.WithUint8(func(data []uint8) error {
			for i := range data {
				data[i] = saturateUint8(v.AtVec(i))
			}
			return nil
		})
	case gocv.MatTypeCV32FC1:
		err = dst.WithFloat32(func(data []float32) error {
			for i := range data {
				data[i] = float32(v.AtVec(i))
			}
			return nil
		})
	case gocv.MatTypeCV64FC1:
		err = dst.WithFloat64(func(data []float64) error {
			for i := range data {
				data[i] = v.AtVec(i)
			}
			return nil
		})
	default:
		err = fmt.Errorf("unsupported output MatType %d", int(matType))
	}

	if err != nil {
		dst.Close()
		return nil, err
	}

	return dst, nil
}

func saturateUint8(x float64) uint8 {
	switch {
	case math.IsNaN(x) || x <= 0:
		return 0
	case x >= 255:
		return 255
	default:
		return uint8(math.Round(x))
	}
}

// Label evaluates rule on every pixel of an 8-bit color image and returns
// an 8UC1 mask of the results. rule receives the pixel's interleaved
// channel values in the image's own order.
func Label(img *safe.Mat, rule func(px []uint8) uint8) (*safe.Mat, error) {
	if err := safe.ValidateColorImage(img, "pixel labelling"); err != nil {
		return nil, err
	}

	mask, err := safe.NewMatWithTag(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1, "label")
	if err != nil {
		return nil, err
	}

	channels := img.Channels()
	err = img.WithUint8(func(src []uint8) error {
		return mask.WithUint8(func(dst []uint8) error {
			if len(src) != len(dst)*channels {
				return fmt.Errorf("%w: %d source bytes for %d mask pixels",
					safe.ErrShapeMismatch, len(src), len(dst))
			}
			for j := range dst {
				dst[j] = rule(src[j*channels : (j+1)*channels])
			}
			return nil
		})
	})
	if err != nil {
		mask.Close()
		return nil, err
	}

	return mask, nil
}
