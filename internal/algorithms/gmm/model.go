package gmm

import (
	"errors"
	"fmt"
	"math"

	"skin-obliterator/internal/processing/pixels"
)

const (
	// Dimension is the number of color channels each component models.
	Dimension = pixels.Dimension
	// Components is the number of mixture components in the trained models.
	Components = 16
)

// ErrInvalidModelParameter reports a mixture whose parameters cannot
// produce finite densities: a non-positive or non-finite variance, a
// negative weight, or a non-finite mean.
var ErrInvalidModelParameter = errors.New("invalid model parameter")

// Component is one diagonal-covariance Gaussian of a mixture.
type Component struct {
	Mean     [Dimension]float64
	Variance [Dimension]float64
	Weight   float64
}

// Model is an immutable Gaussian mixture over RGB. Weights are used as
// given and are not renormalized.
type Model struct {
	name       string
	components []Component
}

// NewModel copies components into a new Model. Parameters are checked by
// Validate, which every evaluation runs before touching pixels.
func NewModel(name string, components []Component) (*Model, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: model %q has no components", ErrInvalidModelParameter, name)
	}

	return &Model{
		name:       name,
		components: append([]Component(nil), components...),
	}, nil
}

func (m *Model) Name() string {
	return m.name
}

// Len returns the number of mixture components.
func (m *Model) Len() int {
	return len(m.components)
}

// Component returns a copy of component k.
func (m *Model) Component(k int) Component {
	return m.components[k]
}

// WeightSum returns the sum of the mixing weights.
func (m *Model) WeightSum() float64 {
	sum := 0.0
	for _, c := range m.components {
		sum += c.Weight
	}
	return sum
}

func (m *Model) Validate() error {
	if m == nil || len(m.components) == 0 {
		return fmt.Errorf("%w: empty model", ErrInvalidModelParameter)
	}

	for k, c := range m.components {
		if c.Weight < 0 || math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return fmt.Errorf("%w: %s component %d has weight %v", ErrInvalidModelParameter, m.name, k, c.Weight)
		}
		for i := 0; i < Dimension; i++ {
			if !(c.Variance[i] > 0) || math.IsInf(c.Variance[i], 0) {
				return fmt.Errorf("%w: %s component %d channel %d has variance %v",
					ErrInvalidModelParameter, m.name, k, i, c.Variance[i])
			}
			if math.IsNaN(c.Mean[i]) || math.IsInf(c.Mean[i], 0) {
				return fmt.Errorf("%w: %s component %d channel %d has mean %v",
					ErrInvalidModelParameter, m.name, k, i, c.Mean[i])
			}
		}
	}

	return nil
}

var (
	skinModel    = mustUnpack("skin", &skinMean, &skinVariance, &skinWeight)
	nonSkinModel = mustUnpack("non-skin", &nonSkinMean, &nonSkinVariance, &nonSkinWeight)
)

// SkinModel returns the trained skin mixture. The value is shared and
// must be treated as read-only.
func SkinModel() *Model {
	return skinModel
}

// NonSkinModel returns the trained non-skin mixture.
func NonSkinModel() *Model {
	return nonSkinModel
}

// mustUnpack builds a Model from channel-major tables.
func mustUnpack(name string, mean, variance *[Dimension * Components]float64, weight *[Components]float64) *Model {
	components := make([]Component, Components)
	for k := range components {
		components[k].Weight = weight[k]
		for i := 0; i < Dimension; i++ {
			components[k].Mean[i] = mean[Components*i+k]
			components[k].Variance[i] = variance[Components*i+k]
		}
	}

	m, err := NewModel(name, components)
	if err != nil {
		panic(err)
	}
	if err := m.Validate(); err != nil {
		panic(err)
	}
	return m
}
