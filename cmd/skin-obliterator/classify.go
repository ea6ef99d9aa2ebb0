package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"sort"
	"strings"
	"time"

	"skin-obliterator/internal/algorithms"
	"skin-obliterator/internal/algorithms/cbcr"
	"skin-obliterator/internal/debug/timing"
	"skin-obliterator/internal/logger"
	"skin-obliterator/internal/models"
	"skin-obliterator/internal/opencv/conversion"
	"skin-obliterator/internal/pipeline"
	"skin-obliterator/internal/services"
	"skin-obliterator/internal/shutdown"
	"skin-obliterator/internal/views"
)

type classifyOptions struct {
	input      string
	algorithm  string
	parameters map[string]interface{}
	processing map[string]interface{}
	maskOut    string
	scoreOut   string
	truth      string
	preview    bool
	// out receives the metrics report; nil discards it.
	out io.Writer
}

// releaseTimeout bounds each Mat release when the command exits.
const releaseTimeout = 2 * time.Second

func runClassify(opts classifyOptions, log logger.Logger) error {
	shutdownManager := shutdown.NewManager(log)
	shutdownManager.SetTimeout(releaseTimeout)
	shutdownManager.Listen()
	defer shutdownManager.Shutdown()
	ctx := shutdownManager.Context()

	tracker := timing.NewTracker()
	imageService := services.NewImageService(log, tracker)
	processingService := services.NewProcessingService(
		algorithms.NewManager(),
		models.NewProcessingStateRepository(),
		tracker,
		log,
	)

	input, err := imageService.Load(ctx, opts.input)
	if err != nil {
		return err
	}
	shutdownManager.Register(shutdown.Func(input.Close))

	result, err := processingService.Run(ctx, input.Mat, services.Request{
		Algorithm:  opts.algorithm,
		Parameters: opts.parameters,
		Processing: opts.processing,
	})
	state := processingService.State()
	if err != nil {
		if state.FailedStage != "" {
			return fmt.Errorf("%s failed at %s (%.0f%%): %w", opts.algorithm, strings.ToLower(state.FailedStage), state.Progress*100, err)
		}
		return err
	}
	shutdownManager.Register(shutdown.Func(result.Close))

	log.Debug("classify", "run state", map[string]interface{}{
		"stage":    state.CurrentStage,
		"progress": state.Progress,
		"elapsed":  state.Duration().String(),
	})

	if opts.scoreOut != "" && result.Score == nil {
		return fmt.Errorf("algorithm %s does not produce a score map", result.Algorithm)
	}

	if opts.maskOut != "" {
		if err := imageService.SaveMask(ctx, opts.maskOut, result.Mask); err != nil {
			return err
		}
	}

	intensity := conversion.RatioIntensity
	if result.Algorithm == cbcr.Name {
		intensity = conversion.DistortionIntensity
	}

	if opts.scoreOut != "" {
		if err := imageService.SaveScore(ctx, opts.scoreOut, result.Score, intensity); err != nil {
			return err
		}
	}

	var metrics *pipeline.SegmentationMetrics
	if opts.truth != "" {
		metrics, err = evaluate(ctx, imageService, opts.truth, result)
		if err != nil {
			return err
		}
		log.Info("classify", "segmentation metrics", map[string]interface{}{
			"iou":               metrics.IoU,
			"dice":              metrics.DiceCoefficient,
			"misclassification": metrics.MisclassificationError,
			"tpr":               metrics.TruePositiveRate,
			"fpr":               metrics.FalsePositiveRate,
			"hausdorff":         metrics.HausdorffDistance,
		})
		if opts.out != nil {
			writeReport(opts.out, metrics)
		}
	}

	for _, operation := range tracker.Operations() {
		log.Debug("classify", "stage timing", map[string]interface{}{
			"operation": operation,
			"average":   tracker.GetAverageTime(operation).String(),
		})
	}

	if opts.preview {
		return preview(ctx, opts, input, result, intensity, metrics, state)
	}

	return nil
}

func evaluate(ctx context.Context, imageService *services.ImageService, path string, result *models.Classification) (*pipeline.SegmentationMetrics, error) {
	truth, err := imageService.LoadMask(ctx, path)
	if err != nil {
		return nil, err
	}
	defer truth.Close()

	return pipeline.CalculateSegmentationMetrics(result.Mask, truth)
}

// writeReport prints one metric description per line in a stable order.
func writeReport(w io.Writer, metrics *pipeline.SegmentationMetrics) {
	descriptions := metrics.Description()
	keys := make([]string, 0, len(descriptions))
	for key := range descriptions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintln(w, descriptions[key])
	}
}

func preview(ctx context.Context, opts classifyOptions, input *pipeline.ImageData, result *models.Classification, intensity func(float64) uint8, metrics *pipeline.SegmentationMetrics, state models.ProcessingState) error {
	inputImage, err := conversion.MatToImage(input.Mat)
	if err != nil {
		return fmt.Errorf("failed to convert input for preview: %w", err)
	}

	maskImage, err := conversion.MaskToImage(result.Mask)
	if err != nil {
		return fmt.Errorf("failed to convert mask for preview: %w", err)
	}

	var scoreImage image.Image
	if result.Score != nil {
		gray, err := conversion.ScoreToImage(result.Score, intensity)
		if err != nil {
			return fmt.Errorf("failed to convert score for preview: %w", err)
		}
		scoreImage = gray
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	views.ShowPreview(ctx, views.Preview{
		Title:     opts.input,
		Algorithm: result.Algorithm,
		Input:     inputImage,
		Mask:      maskImage,
		Score:     scoreImage,
		Channels:  input.Channels,
		Format:    input.Format,
		Metrics:   metrics,
		State:     state,
	})

	return nil
}
