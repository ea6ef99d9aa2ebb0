package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"skin-obliterator/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{})   {}
func (nopLogger) Info(string, string, map[string]interface{})    {}
func (nopLogger) Warning(string, string, map[string]interface{}) {}
func (nopLogger) Error(string, error, map[string]interface{})    {}

type nopTimer struct{}

func (nopTimer) StartTiming(string) context.Context { return context.Background() }
func (nopTimer) EndTiming(context.Context)          {}

func grayMat(t *testing.T, rows, cols int, data []byte) *safe.Mat {
	t.Helper()
	m, err := safe.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, data)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestCalculateSegmentationMetrics(t *testing.T) {
	mask := grayMat(t, 2, 2, []byte{1, 1, 0, 0})
	truth := grayMat(t, 2, 2, []byte{255, 0, 255, 0})

	m, err := CalculateSegmentationMetrics(mask, truth)
	require.NoError(t, err)

	assert.Equal(t, 1, m.TruePositive)
	assert.Equal(t, 1, m.FalsePositive)
	assert.Equal(t, 1, m.FalseNegative)
	assert.Equal(t, 1, m.TrueNegative)
	assert.InDelta(t, 1.0/3.0, m.IoU, 1e-12)
	assert.InDelta(t, 0.5, m.DiceCoefficient, 1e-12)
	assert.InDelta(t, 0.5, m.MisclassificationError, 1e-12)
	assert.InDelta(t, 0.5, m.TruePositiveRate, 1e-12)
	assert.InDelta(t, 0.5, m.FalsePositiveRate, 1e-12)
	assert.InDelta(t, 1.0, m.HausdorffDistance, 1e-5)
	assert.Len(t, m.Description(), 6)
}

func TestCalculateSegmentationMetrics_Perfect(t *testing.T) {
	mask := grayMat(t, 1, 3, []byte{0, 1, 0})
	truth := grayMat(t, 1, 3, []byte{0, 200, 10})

	m, err := CalculateSegmentationMetrics(mask, truth)
	require.NoError(t, err)

	assert.Equal(t, 1.0, m.IoU)
	assert.Equal(t, 1.0, m.DiceCoefficient)
	assert.Equal(t, 0.0, m.MisclassificationError)
	assert.Equal(t, 0.0, m.HausdorffDistance)
}

func TestCalculateSegmentationMetrics_BothEmpty(t *testing.T) {
	m, err := CalculateSegmentationMetrics(grayMat(t, 1, 2, []byte{0, 0}), grayMat(t, 1, 2, []byte{0, 0}))
	require.NoError(t, err)

	assert.Equal(t, 1.0, m.IoU)
	assert.Equal(t, 0.0, m.TruePositiveRate)
}

func TestCalculateSegmentationMetrics_Hausdorff(t *testing.T) {
	blob := func(value byte, x0, y0, size int) []byte {
		data := make([]byte, 100)
		for y := y0; y < y0+size; y++ {
			for x := x0; x < x0+size; x++ {
				data[y*10+x] = value
			}
		}
		return data
	}

	t.Run("empty prediction against skin", func(t *testing.T) {
		m, err := CalculateSegmentationMetrics(grayMat(t, 10, 10, make([]byte, 100)), grayMat(t, 10, 10, blob(255, 2, 2, 6)))
		require.NoError(t, err)

		assert.True(t, math.IsInf(m.HausdorffDistance, 1))
		assert.Contains(t, m.Description()["HausdorffDistance"], "undefined")
		assert.Equal(t, 0.0, m.TruePositiveRate)
	})

	t.Run("skin against empty truth", func(t *testing.T) {
		m, err := CalculateSegmentationMetrics(grayMat(t, 10, 10, blob(1, 0, 0, 3)), grayMat(t, 10, 10, make([]byte, 100)))
		require.NoError(t, err)

		assert.True(t, math.IsInf(m.HausdorffDistance, 1))
	})

	t.Run("both empty", func(t *testing.T) {
		m, err := CalculateSegmentationMetrics(grayMat(t, 10, 10, make([]byte, 100)), grayMat(t, 10, 10, make([]byte, 100)))
		require.NoError(t, err)

		assert.Equal(t, 0.0, m.HausdorffDistance)
	})

	t.Run("shifted blob", func(t *testing.T) {
		// Same 3x3 square moved four columns right.
		m, err := CalculateSegmentationMetrics(grayMat(t, 10, 10, blob(1, 5, 3, 3)), grayMat(t, 10, 10, blob(255, 1, 3, 3)))
		require.NoError(t, err)

		assert.InDelta(t, 4.0, m.HausdorffDistance, 1e-5)
		assert.Contains(t, m.Description()["HausdorffDistance"], "4.00 pixels")
	})
}

func TestCalculateSegmentationMetrics_SizeMismatch(t *testing.T) {
	_, err := CalculateSegmentationMetrics(grayMat(t, 1, 2, []byte{0, 0}), grayMat(t, 2, 1, []byte{0, 0}))
	assert.ErrorIs(t, err, safe.ErrShapeMismatch)
}

func TestImageLoader_LoadFromBytes(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	data, err := NewImageLoader(nopLogger{}, nopTimer{}).LoadFromBytes(buf.Bytes(), ".PNG")
	require.NoError(t, err)
	defer data.Close()

	assert.Equal(t, 3, data.Width)
	assert.Equal(t, 2, data.Height)
	assert.Equal(t, 3, data.Channels)
	assert.Equal(t, "png", data.Format)

	// OpenCV decodes to BGR.
	b, err := data.Mat.GetUCharAt3(0, 0, 0)
	require.NoError(t, err)
	r, err := data.Mat.GetUCharAt3(0, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, uint8(50), b)
	assert.Equal(t, uint8(200), r)
}

func TestImageLoader_Garbage(t *testing.T) {
	_, err := NewImageLoader(nopLogger{}, nopTimer{}).LoadFromBytes([]byte("not an image"), ".png")
	assert.Error(t, err)
}

func TestImageSaver_Formats(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(1, 1, color.Gray{Y: 255})
	saver := NewImageSaver(nopLogger{}, nopTimer{})

	for _, format := range []string{"png", "jpeg", "bmp", "tiff"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, saver.SaveToWriter(&buf, img, format))

			_, decodedFormat, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, format, decodedFormat)
		})
	}

	var buf bytes.Buffer
	assert.ErrorIs(t, saver.SaveToWriter(&buf, img, "gif"), ErrUnsupportedFormat)
	assert.Error(t, saver.SaveToWriter(&buf, nil, "png"))
}

func TestImageSaver_BMPRoundTrip(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(1, 0, color.Gray{Y: 255})

	var buf bytes.Buffer
	require.NoError(t, NewImageSaver(nopLogger{}, nopTimer{}).SaveToWriter(&buf, img, "bmp"))

	decoded, err := bmp.Decode(&buf)
	require.NoError(t, err)
	r, _, _, _ := decoded.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestFormatForExtension(t *testing.T) {
	tests := []struct {
		extension string
		want      string
	}{
		{".tif", "tiff"},
		{".TIFF", "tiff"},
		{".jpeg", "jpeg"},
		{".JPG", "jpeg"},
		{".png", "png"},
		{".bmp", "bmp"},
	}
	for _, tt := range tests {
		got, err := FormatForExtension(tt.extension)
		require.NoError(t, err, tt.extension)
		assert.Equal(t, tt.want, got, tt.extension)
	}

	for _, extension := range []string{".webp", ".gif", ""} {
		_, err := FormatForExtension(extension)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, "extension %q", extension)
	}
}
