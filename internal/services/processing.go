package services

import (
	"context"
	"fmt"
	"time"

	"skin-obliterator/internal/algorithms"
	"skin-obliterator/internal/logger"
	"skin-obliterator/internal/models"
	"skin-obliterator/internal/opencv/safe"
	"skin-obliterator/internal/pipeline"
	"skin-obliterator/internal/processing/chain"
	"skin-obliterator/internal/processing/filters"
)

// Request selects an algorithm and the settings for one run.
type Request struct {
	Algorithm string
	// Parameters override the registry defaults for Algorithm.
	Parameters map[string]interface{}
	// Processing configures the filters around the classifier: blur,
	// blur_kernel, blur_sigma, cleanup and cleanup_kernel.
	Processing map[string]interface{}
}

// ProcessingService runs the blur, classify and cleanup stages.
type ProcessingService struct {
	algorithmManager *algorithms.Manager
	preprocess       *chain.ProcessingChain
	cleanup          *chain.ProcessingChain
	stateRepo        *models.ProcessingStateRepository
	timingTracker    pipeline.TimingTracker
	logger           logger.Logger
}

func NewProcessingService(
	algorithmManager *algorithms.Manager,
	stateRepo *models.ProcessingStateRepository,
	timingTracker pipeline.TimingTracker,
	log logger.Logger,
) *ProcessingService {
	return &ProcessingService{
		algorithmManager: algorithmManager,
		preprocess: chain.NewProcessingChain([]chain.ProcessingStep{
			filters.NewGaussianFilter(),
		}),
		cleanup: chain.NewProcessingChain([]chain.ProcessingStep{
			filters.NewMorphologyFilter(),
			filters.NewMedianFilter(),
		}),
		stateRepo:     stateRepo,
		timingTracker: timingTracker,
		logger:        log,
	}
}

// Run classifies input. The returned Classification is owned by the
// caller; input is never modified.
func (ps *ProcessingService) Run(ctx context.Context, input *safe.Mat, req Request) (result *models.Classification, err error) {
	if err := safe.ValidateColorImage(input, "skin classification"); err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}

	algorithm, err := ps.algorithmManager.Get(req.Algorithm)
	if err != nil {
		return nil, err
	}

	params, err := ps.algorithmManager.Merge(req.Algorithm, req.Parameters)
	if err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	if err := ps.stateRepo.StartProcessing(req.Algorithm); err != nil {
		return nil, err
	}
	defer func() { ps.stateRepo.CompleteProcessing(err) }()

	startTime := time.Now()

	ps.stateRepo.UpdateProgress("Preprocessing", 0.1)
	prepared, err := ps.runChain(ctx, "preprocess", ps.preprocess, input, req.Processing)
	if err != nil {
		return nil, err
	}
	defer prepared.Close()

	ps.stateRepo.UpdateProgress("Classifying", 0.3)
	timingCtx := ps.timingTracker.StartTiming("classify_" + algorithm.Name())
	result, err = algorithm.Classify(ctx, prepared, params)
	ps.timingTracker.EndTiming(timingCtx)
	if err != nil {
		ps.logger.Error("ProcessingService", err, map[string]interface{}{
			"algorithm": algorithm.Name(),
		})
		return nil, fmt.Errorf("%s classification failed: %w", algorithm.Name(), err)
	}

	ps.stateRepo.UpdateProgress("Cleaning up mask", 0.8)
	cleaned, err := ps.runChain(ctx, "cleanup", ps.cleanup, result.Mask, req.Processing)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.Mask.Close()
	result.Mask = cleaned

	skinPixels, err := result.SkinPixels()
	if err != nil {
		result.Close()
		return nil, err
	}

	ps.logger.Info("ProcessingService", "classification complete", map[string]interface{}{
		"algorithm":   algorithm.Name(),
		"width":       input.Cols(),
		"height":      input.Rows(),
		"skin_pixels": skinPixels,
		"skin_ratio":  float64(skinPixels) / float64(input.Rows()*input.Cols()),
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	return result, nil
}

func (ps *ProcessingService) runChain(ctx context.Context, stage string, c *chain.ProcessingChain, input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	timingCtx := ps.timingTracker.StartTiming(stage)
	defer ps.timingTracker.EndTiming(timingCtx)

	output, err := c.Execute(ctx, input, params)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", stage, err)
	}

	ps.logger.Debug("ProcessingService", "stage complete", map[string]interface{}{
		"stage": stage,
		"steps": c.StepNames(),
	})

	return output, nil
}

func (ps *ProcessingService) State() models.ProcessingState {
	return ps.stateRepo.GetState()
}
