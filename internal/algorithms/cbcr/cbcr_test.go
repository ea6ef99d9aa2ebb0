package cbcr

import (
	"context"
	"errors"
	"math"
	"testing"

	"skin-obliterator/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestDistortion(t *testing.T) {
	// The ellipse center in (Cb, Cr) is the rotated offset (ecx, ecy).
	centerCb := cx + cosTheta*ecx - sinTheta*ecy
	centerCr := cy + sinTheta*ecx + cosTheta*ecy
	assert.InDelta(t, 0, Distortion(centerCb, centerCr), 1e-12)

	assert.InDelta(t, 0.2461, Distortion(103, 160), 1e-3)
	assert.InDelta(t, 1.6749, Distortion(128, 128), 1e-3)
}

func TestCompensate_MidLumaUnchanged(t *testing.T) {
	for _, y := range []float64{kl, 150, kh} {
		cb, cr := Compensate(y, 100, 160)
		assert.Equal(t, 100.0, cb)
		assert.Equal(t, 160.0, cr)
	}
}

func TestCompensate_ContinuousAtKnees(t *testing.T) {
	for _, y := range []float64{kl - 1e-9, kh + 1e-9} {
		cb, cr := Compensate(y, 100, 160)
		assert.InDelta(t, 100, cb, 1e-6)
		assert.InDelta(t, 160, cr, 1e-6)
	}
}

func TestCompensate_ExtremeLumaFinite(t *testing.T) {
	for _, y := range []float64{0, 5, 40, 200, 240, 255} {
		cb, cr := Compensate(y, 110, 150)
		assert.False(t, math.IsNaN(cb) || math.IsInf(cb, 0), "cb at luma %v", y)
		assert.False(t, math.IsNaN(cr) || math.IsInf(cr, 0), "cr at luma %v", y)
	}

	cb, cr := Compensate(41, 115, 150)
	assert.NotEqual(t, 115.0, cb)
	assert.NotEqual(t, 150.0, cr)
}

func testImage(t *testing.T) *safe.Mat {
	t.Helper()
	img, err := safe.NewMatFromBytes(1, 3, gocv.MatTypeCV8UC3, []byte{
		110, 140, 200, // skin
		255, 255, 255, // white
		0, 0, 0, // black
	})
	require.NoError(t, err)
	t.Cleanup(img.Close)
	return img
}

func TestClassify(t *testing.T) {
	result, err := Classify(testImage(t), Options{WantDistortion: true})
	require.NoError(t, err)
	defer result.Close()

	mask, err := result.Mask.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0}, mask)

	require.NotNil(t, result.Distortion)
	assert.Equal(t, gocv.MatTypeCV64FC1, result.Distortion.Type())
	require.NoError(t, result.Distortion.WithFloat64(func(data []float64) error {
		assert.InDelta(t, 0.2461, data[0], 0.05)
		assert.Greater(t, data[1], 1.0)
		assert.Greater(t, data[2], 1.0)
		return nil
	}))
}

func TestClassify_DistortionOptional(t *testing.T) {
	result, err := Classify(testImage(t), Options{})
	require.NoError(t, err)
	defer result.Close()

	assert.Nil(t, result.Distortion)
}

func TestClassify_LumaCompensationKeepsMidLuma(t *testing.T) {
	img, err := safe.NewMatFromBytes(1, 1, gocv.MatTypeCV8UC3, []byte{110, 140, 200})
	require.NoError(t, err)
	defer img.Close()

	plain, err := Classify(img, Options{WantDistortion: true})
	require.NoError(t, err)
	defer plain.Close()
	compensated, err := Classify(img, Options{WantDistortion: true, LumaCompensation: true})
	require.NoError(t, err)
	defer compensated.Close()

	a, err := plain.Distortion.GetDoubleAt(0, 0)
	require.NoError(t, err)
	b, err := compensated.Distortion.GetDoubleAt(0, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestClassify_RejectsGray(t *testing.T) {
	gray, err := safe.NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer gray.Close()

	_, err = Classify(gray, Options{})
	assert.True(t, errors.Is(err, safe.ErrShapeMismatch))
}

func TestProcessor(t *testing.T) {
	p := NewProcessor()
	assert.NoError(t, p.ValidateParameters(p.DefaultParameters()))
	assert.Error(t, p.ValidateParameters(map[string]interface{}{"luma_compensation": "on"}))

	result, err := p.Classify(context.Background(), testImage(t), map[string]interface{}{
		"want_distortion": true,
	})
	require.NoError(t, err)
	defer result.Close()

	assert.Equal(t, Name, result.Algorithm)
	assert.NotNil(t, result.Score)
	count, err := result.SkinPixels()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
