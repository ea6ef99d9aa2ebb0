package gmm

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor_DefaultParameters(t *testing.T) {
	p := NewProcessor()
	defaults := p.DefaultParameters()

	assert.Equal(t, Name, p.Name())
	assert.Equal(t, 1.0, defaults["threshold"])
	assert.Equal(t, false, defaults["want_ratio"])
	assert.NoError(t, p.ValidateParameters(defaults))
}

func TestProcessor_ValidateParameters(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{"empty", map[string]interface{}{}, false},
		{"integer threshold", map[string]interface{}{"threshold": 2}, false},
		{"NaN threshold", map[string]interface{}{"threshold": math.NaN()}, true},
		{"string threshold", map[string]interface{}{"threshold": "high"}, true},
		{"negative workers", map[string]interface{}{"workers": -2}, true},
		{"fractional workers", map[string]interface{}{"workers": 1.5}, true},
		{"want_ratio not bool", map[string]interface{}{"want_ratio": 1}, true},
	}

	p := NewProcessor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateParameters(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessor_Classify(t *testing.T) {
	img := bgrRow(t, [3]uint8{18, 30, 73}, [3]uint8{254, 254, 254})

	result, err := NewProcessor().Classify(context.Background(), img, map[string]interface{}{
		"threshold":  1.0,
		"want_ratio": true,
		"workers":    2,
	})
	require.NoError(t, err)
	defer result.Close()

	assert.Equal(t, Name, result.Algorithm)
	assert.Equal(t, []uint8{1, 0}, maskValues(t, result.Mask))
	require.NotNil(t, result.Score)

	skin, err := result.SkinPixels()
	require.NoError(t, err)
	assert.Equal(t, 1, skin)
}

func TestProcessor_ClassifyCancelled(t *testing.T) {
	img := bgrRow(t, [3]uint8{18, 30, 73})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcessor().Classify(ctx, img, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
