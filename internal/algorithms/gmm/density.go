package gmm

import (
	"fmt"
	"math"
	"runtime"

	"skin-obliterator/internal/opencv/safe"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// minChunk keeps per-goroutine work large enough to outweigh scheduling.
const minChunk = 4096

// Evaluator computes mixture densities for every column of a pixel matrix.
type Evaluator struct {
	workers int
}

// NewEvaluator returns an Evaluator that splits pixels across up to
// workers goroutines. workers <= 0 means runtime.GOMAXPROCS(0).
func NewEvaluator(workers int) *Evaluator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Evaluator{workers: workers}
}

func (e *Evaluator) Workers() int {
	return e.workers
}

// kernel is a component with its normalisation folded into scale:
// weight * (2*pi)^(-D/2) * prod(variance_i)^(-1/2).
type kernel struct {
	mean     [Dimension]float64
	variance [Dimension]float64
	scale    float64
}

func prepare(m *Model) ([]kernel, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	norm := math.Pow(2*math.Pi, -float64(Dimension)/2)
	kernels := make([]kernel, len(m.components))
	for k, c := range m.components {
		scale := c.Weight * norm
		for i := 0; i < Dimension; i++ {
			scale /= math.Sqrt(c.Variance[i])
		}
		kernels[k] = kernel{mean: c.Mean, variance: c.Variance, scale: scale}
	}
	return kernels, nil
}

// Evaluate returns the 1 x N vector of mixture densities of model m at each
// column of pixels, a Dimension x N matrix. Values are non-negative and
// finite; they are densities, not probabilities.
func (e *Evaluator) Evaluate(pixels *mat.Dense, m *Model) (*mat.VecDense, error) {
	if pixels == nil {
		return nil, fmt.Errorf("pixel matrix is nil")
	}

	d, n := pixels.Dims()
	if d != Dimension {
		return nil, fmt.Errorf("%w: pixel matrix has %d rows, model expects %d", safe.ErrShapeMismatch, d, Dimension)
	}

	kernels, err := prepare(m)
	if err != nil {
		return nil, err
	}

	raw := pixels.RawMatrix()
	for i := 0; i < Dimension; i++ {
		if floats.HasNaN(raw.Data[i*raw.Stride : i*raw.Stride+n]) {
			return nil, fmt.Errorf("pixel matrix row %d contains NaN", i)
		}
	}

	out := make([]float64, n)

	var g errgroup.Group
	for _, r := range e.ranges(n) {
		start, end := r[0], r[1]
		g.Go(func() error {
			evaluateRange(raw, kernels, out, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mat.NewVecDense(n, out), nil
}

// ranges splits [0, n) into contiguous half-open chunks, one per goroutine.
func (e *Evaluator) ranges(n int) [][2]int {
	size := (n + e.workers - 1) / e.workers
	if size < minChunk {
		size = minChunk
	}

	chunks := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, [2]int{start, end})
	}
	return chunks
}

func evaluateRange(raw blas64.General, kernels []kernel, out []float64, start, end int) {
	var x [Dimension]float64
	for j := start; j < end; j++ {
		for i := 0; i < Dimension; i++ {
			x[i] = raw.Data[i*raw.Stride+j]
		}

		sum := 0.0
		for k := range kernels {
			kn := &kernels[k]
			q := 0.0
			for i := 0; i < Dimension; i++ {
				diff := x[i] - kn.mean[i]
				q += diff * diff / kn.variance[i]
			}
			sum += kn.scale * math.Exp(-0.5*q)
		}
		out[j] = sum
	}
}
