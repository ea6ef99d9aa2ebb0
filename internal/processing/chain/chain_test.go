package chain

import (
	"context"
	"errors"
	"testing"

	"skin-obliterator/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// addStep adds delta to every byte when params[key] is true.
type addStep struct {
	key   string
	delta uint8
	fail  bool
}

func (s *addStep) Name() string { return s.key }

func (s *addStep) ShouldExecute(params map[string]interface{}) bool {
	on, _ := params[s.key].(bool)
	return on
}

func (s *addStep) Apply(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	if s.fail {
		return nil, errors.New("boom")
	}
	out, err := input.Clone()
	if err != nil {
		return nil, err
	}
	err = out.WithUint8(func(data []uint8) error {
		for i := range data {
			data[i] += s.delta
		}
		return nil
	})
	return out, err
}

func testMat(t *testing.T) *safe.Mat {
	t.Helper()
	m, err := safe.NewMatFromBytes(1, 2, gocv.MatTypeCV8UC1, []byte{1, 2})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestExecute_RunsEnabledSteps(t *testing.T) {
	c := NewProcessingChain([]ProcessingStep{
		&addStep{key: "a", delta: 10},
		&addStep{key: "b", delta: 100},
	})
	input := testMat(t)

	out, err := c.Execute(context.Background(), input, map[string]interface{}{"a": true, "b": true})
	require.NoError(t, err)
	defer out.Close()

	data, err := out.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{111, 112}, data)

	original, err := input.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, original)
}

func TestExecute_NoStepsReturnsCopy(t *testing.T) {
	c := NewProcessingChain([]ProcessingStep{&addStep{key: "a", delta: 10}})
	input := testMat(t)

	out, err := c.Execute(context.Background(), input, nil)
	require.NoError(t, err)
	defer out.Close()

	assert.NotSame(t, input, out)
	data, err := out.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
}

func TestExecute_StepError(t *testing.T) {
	c := NewProcessingChain([]ProcessingStep{
		&addStep{key: "a", delta: 1},
		&addStep{key: "b", fail: true},
	})

	_, err := c.Execute(context.Background(), testMat(t), map[string]interface{}{"a": true, "b": true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step b failed")
}

func TestExecute_Cancelled(t *testing.T) {
	c := NewProcessingChain([]ProcessingStep{&addStep{key: "a", delta: 1}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Execute(ctx, testMat(t), map[string]interface{}{"a": true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepNames(t *testing.T) {
	steps := []ProcessingStep{&addStep{key: "a"}, &addStep{key: "b"}}
	c := NewProcessingChain(steps)
	steps[0] = &addStep{key: "z"}

	assert.Equal(t, []string{"a", "b"}, c.StepNames())
}
