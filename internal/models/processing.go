package models

import (
	"fmt"
	"sync"
	"time"
)

// ProcessingState describes the classification run in progress, if any.
type ProcessingState struct {
	IsActive     bool
	Algorithm    string
	CurrentStage string
	Progress     float64
	StartTime    time.Time
	EndTime      time.Time
	// FailedStage is the stage a failed run was in when it stopped.
	FailedStage string
	Err         error
}

// Duration is the run time so far, or the total once the run ended.
func (s ProcessingState) Duration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// ProcessingStateRepository guards a single active run and records how
// far it got: the CLI reports the stage a run failed in and the preview
// status bar shows the outcome and run time.
type ProcessingStateRepository struct {
	mu    sync.RWMutex
	state ProcessingState
}

func NewProcessingStateRepository() *ProcessingStateRepository {
	return &ProcessingStateRepository{}
}

func (psr *ProcessingStateRepository) GetState() ProcessingState {
	psr.mu.RLock()
	defer psr.mu.RUnlock()
	return psr.state
}

// StartProcessing marks a run as active, failing if one already is.
func (psr *ProcessingStateRepository) StartProcessing(algorithm string) error {
	psr.mu.Lock()
	defer psr.mu.Unlock()

	if psr.state.IsActive {
		return fmt.Errorf("processing already in progress: %s", psr.state.Algorithm)
	}

	psr.state = ProcessingState{
		IsActive:     true,
		Algorithm:    algorithm,
		CurrentStage: "Initializing",
		StartTime:    time.Now(),
	}
	return nil
}

// UpdateProgress records the current stage of the active run.
func (psr *ProcessingStateRepository) UpdateProgress(stage string, progress float64) {
	psr.mu.Lock()
	defer psr.mu.Unlock()

	if psr.state.IsActive {
		psr.state.CurrentStage = stage
		psr.state.Progress = progress
	}
}

// CompleteProcessing ends the active run, recording err if it failed.
func (psr *ProcessingStateRepository) CompleteProcessing(err error) {
	psr.mu.Lock()
	defer psr.mu.Unlock()

	psr.state.IsActive = false
	psr.state.EndTime = time.Now()
	psr.state.Err = err
	if err != nil {
		psr.state.FailedStage = psr.state.CurrentStage
		psr.state.CurrentStage = "Failed"
		return
	}
	psr.state.CurrentStage = "Complete"
	psr.state.Progress = 1.0
}

func (psr *ProcessingStateRepository) IsProcessing() bool {
	psr.mu.RLock()
	defer psr.mu.RUnlock()
	return psr.state.IsActive
}
