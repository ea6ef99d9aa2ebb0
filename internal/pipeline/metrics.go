package pipeline

import (
	"fmt"
	"math"

	"skin-obliterator/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// SegmentationMetrics compares a predicted skin mask against ground truth.
type SegmentationMetrics struct {
	IoU                    float64 // Intersection over Union
	DiceCoefficient        float64 // Dice Similarity Coefficient
	MisclassificationError float64 // Fraction of pixels labelled wrongly
	TruePositiveRate       float64 // Recall on skin pixels
	FalsePositiveRate      float64 // Non-skin pixels labelled skin
	HausdorffDistance      float64 // Maximum boundary discrepancy in pixels, +Inf if only one mask is empty

	TruePositive  int
	FalsePositive int
	FalseNegative int
	TrueNegative  int
}

// CalculateSegmentationMetrics scores mask, a classifier output where any
// nonzero value is skin, against truth, a single-channel 8-bit reference
// where values above 127 are skin.
func CalculateSegmentationMetrics(mask, truth *safe.Mat) (*SegmentationMetrics, error) {
	if err := safe.ValidateMatForOperation(mask, "segmentation metrics"); err != nil {
		return nil, err
	}
	if err := safe.ValidateSameSize(mask, truth, "segmentation metrics"); err != nil {
		return nil, err
	}
	if err := safe.ValidateSingleChannel(mask, "segmentation metrics", gocv.MatTypeCV8UC1); err != nil {
		return nil, err
	}
	if err := safe.ValidateSingleChannel(truth, "segmentation metrics", gocv.MatTypeCV8UC1); err != nil {
		return nil, err
	}

	predicted, err := mask.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read mask: %w", err)
	}
	reference, err := truth.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read ground truth: %w", err)
	}

	predictedBinary := make([]bool, len(predicted))
	referenceBinary := make([]bool, len(reference))
	for i := range predicted {
		predictedBinary[i] = predicted[i] != 0
		referenceBinary[i] = reference[i] > 127
	}

	metrics := &SegmentationMetrics{}
	calculateBinaryMaskMetrics(predictedBinary, referenceBinary, metrics)

	metrics.HausdorffDistance, err = calculateHausdorff(predictedBinary, referenceBinary, mask.Rows(), mask.Cols())
	if err != nil {
		return nil, err
	}

	return metrics, nil
}

func calculateBinaryMaskMetrics(predicted, reference []bool, metrics *SegmentationMetrics) {
	for i := range predicted {
		switch {
		case reference[i] && predicted[i]:
			metrics.TruePositive++
		case !reference[i] && predicted[i]:
			metrics.FalsePositive++
		case reference[i] && !predicted[i]:
			metrics.FalseNegative++
		default:
			metrics.TrueNegative++
		}
	}

	tp := float64(metrics.TruePositive)
	fp := float64(metrics.FalsePositive)
	fn := float64(metrics.FalseNegative)
	tn := float64(metrics.TrueNegative)

	// Both masks empty counts as a perfect match.
	if union := tp + fp + fn; union > 0 {
		metrics.IoU = tp / union
		metrics.DiceCoefficient = 2 * tp / (2*tp + fp + fn)
	} else {
		metrics.IoU = 1.0
		metrics.DiceCoefficient = 1.0
	}

	if total := tp + fp + fn + tn; total > 0 {
		metrics.MisclassificationError = (fp + fn) / total
	}

	if tp+fn > 0 {
		metrics.TruePositiveRate = tp / (tp + fn)
	}

	if fp+tn > 0 {
		metrics.FalsePositiveRate = fp / (fp + tn)
	}
}

// Point represents a 2D point
type Point struct {
	X, Y int
}

// extractBoundaryPoints finds foreground pixels with at least one
// background or out-of-image 8-neighbour.
func extractBoundaryPoints(binary []bool, cols int) []Point {
	var boundary []Point
	rows := len(binary) / cols

	at := func(y, x int) bool {
		if y < 0 || y >= rows || x < 0 || x >= cols {
			return false
		}
		return binary[y*cols+x]
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if !at(y, x) {
				continue
			}

			isBoundary := false
			for dy := -1; dy <= 1 && !isBoundary; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if (dy != 0 || dx != 0) && !at(y+dy, x+dx) {
						isBoundary = true
						break
					}
				}
			}

			if isBoundary {
				boundary = append(boundary, Point{X: x, Y: y})
			}
		}
	}

	return boundary
}

// calculateHausdorff returns the symmetric Hausdorff distance between
// the boundaries of two masks. Two empty masks match exactly; one empty
// mask is infinitely far from any boundary.
func calculateHausdorff(predicted, reference []bool, rows, cols int) (float64, error) {
	predictedBoundary := extractBoundaryPoints(predicted, cols)
	referenceBoundary := extractBoundaryPoints(reference, cols)

	switch {
	case len(predictedBoundary) == 0 && len(referenceBoundary) == 0:
		return 0, nil
	case len(predictedBoundary) == 0 || len(referenceBoundary) == 0:
		return math.Inf(1), nil
	}

	toPredicted, err := boundaryDistance(predictedBoundary, rows, cols)
	if err != nil {
		return 0, err
	}
	toReference, err := boundaryDistance(referenceBoundary, rows, cols)
	if err != nil {
		return 0, err
	}

	return math.Max(
		directedHausdorff(referenceBoundary, toPredicted, cols),
		directedHausdorff(predictedBoundary, toReference, cols),
	), nil
}

// boundaryDistance returns, for every pixel in raster order, the distance
// to the nearest point of boundary. OpenCV computes it in one pass over
// an image that is zero on the boundary; with a label output OpenCV uses
// the 5x5 L2 mask, which is exact along rows and columns and within a
// few percent elsewhere.
func boundaryDistance(boundary []Point, rows, cols int) ([]float32, error) {
	inverted, err := safe.NewMatWithTag(rows, cols, gocv.MatTypeCV8UC1, "hausdorff_boundary")
	if err != nil {
		return nil, fmt.Errorf("failed to create boundary image: %w", err)
	}
	defer inverted.Close()

	err = inverted.WithUint8(func(data []uint8) error {
		for i := range data {
			data[i] = 255
		}
		for _, p := range boundary {
			data[p.Y*cols+p.X] = 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dst := gocv.NewMat()
	labels := gocv.NewMat()
	defer labels.Close()

	gocv.DistanceTransform(inverted.GetMat(), &dst, &labels, gocv.DistL2, gocv.DistanceMask5, gocv.DistanceLabelCComp)

	distances, err := safe.Adopt(dst, "hausdorff_distance")
	if err != nil {
		return nil, fmt.Errorf("distance transform failed: %w", err)
	}
	defer distances.Close()

	out := make([]float32, rows*cols)
	err = distances.WithFloat32(func(data []float32) error {
		copy(out, data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// directedHausdorff is the largest distance from a point of from to the
// boundary whose distance map is given.
func directedHausdorff(from []Point, distance []float32, cols int) float64 {
	maxDist := 0.0
	for _, p := range from {
		maxDist = math.Max(maxDist, float64(distance[p.Y*cols+p.X]))
	}
	return maxDist
}

// Description returns human-readable descriptions of the metrics
func (m *SegmentationMetrics) Description() map[string]string {
	return map[string]string{
		"IoU":                    fmt.Sprintf("Intersection over Union: %.4f (higher is better, 1.0 = perfect)", m.IoU),
		"DiceCoefficient":        fmt.Sprintf("Dice Similarity: %.4f (higher is better, 1.0 = perfect)", m.DiceCoefficient),
		"MisclassificationError": fmt.Sprintf("Misclassification Error: %.4f (lower is better, 0.0 = perfect)", m.MisclassificationError),
		"TruePositiveRate":       fmt.Sprintf("True Positive Rate: %.4f (higher is better)", m.TruePositiveRate),
		"FalsePositiveRate":      fmt.Sprintf("False Positive Rate: %.4f (lower is better)", m.FalsePositiveRate),
		"HausdorffDistance":      m.hausdorffDescription(),
	}
}

func (m *SegmentationMetrics) hausdorffDescription() string {
	if math.IsInf(m.HausdorffDistance, 1) {
		return "Hausdorff Distance: undefined (one mask has no skin pixels)"
	}
	return fmt.Sprintf("Hausdorff Distance: %.2f pixels (lower is better, 0.0 = perfect)", m.HausdorffDistance)
}
