package views

import (
	"context"
	"fmt"
	"image"
	"time"

	"skin-obliterator/internal/models"
	"skin-obliterator/internal/pipeline"
	"skin-obliterator/internal/views/components"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
)

const (
	AppID   = "com.imageprocessing.skin-obliterator"
	AppName = "Skin Obliterator"
)

const (
	InputPane = iota
	MaskPane
	ScorePane
)

// Preview holds everything shown in the preview window. Score and
// Metrics are optional; a zero State shows only the algorithm.
type Preview struct {
	Title     string
	Algorithm string
	Input     image.Image
	Mask      image.Image
	Score     image.Image
	Channels  int
	Format    string
	Metrics   *pipeline.SegmentationMetrics
	State     models.ProcessingState
}

// PreviewView is a read-only window comparing an input image with its
// skin mask and score map.
type PreviewView struct {
	window       fyne.Window
	imageDisplay *components.ImageDisplay
	statusBar    *components.StatusBar
}

func NewPreviewView(window fyne.Window) *PreviewView {
	pv := &PreviewView{
		window:       window,
		imageDisplay: components.NewImageDisplay("Input", "Skin Mask", "Score"),
		statusBar:    components.NewStatusBar(),
	}

	window.SetContent(container.NewBorder(
		nil,
		pv.statusBar.GetContainer(),
		nil, nil,
		pv.imageDisplay.GetContainer(),
	))

	return pv
}

// Display fills the panes and status bar from p.
func (pv *PreviewView) Display(p Preview) {
	pv.imageDisplay.SetImage(InputPane, p.Input)
	pv.imageDisplay.SetImage(MaskPane, p.Mask)
	pv.imageDisplay.SetImage(ScorePane, p.Score)

	if p.Input != nil {
		bounds := p.Input.Bounds()
		pv.statusBar.SetImageInfo(bounds.Dx(), bounds.Dy(), p.Channels, p.Format)
	}
	pv.statusBar.SetStatus(statusText(p))
	pv.statusBar.SetMetrics(p.Metrics)

	if p.Title != "" {
		fyne.Do(func() {
			pv.window.SetTitle(fmt.Sprintf("%s - %s", AppName, p.Title))
		})
	}
}

func (pv *PreviewView) ImageDisplay() *components.ImageDisplay {
	return pv.imageDisplay
}

func (pv *PreviewView) StatusBar() *components.StatusBar {
	return pv.statusBar
}

// ShowPreview opens the preview window and blocks until it is closed or
// ctx is cancelled. It must be called from the main goroutine.
func ShowPreview(ctx context.Context, p Preview) {
	app.SetMetadata(fyne.AppMetadata{
		ID:   AppID,
		Name: AppName,
	})
	fyneApp := app.NewWithID(AppID)

	window := fyneApp.NewWindow(AppName)
	window.Resize(fyne.NewSize(3*components.PaneWidth+64, components.PaneHeight+96))
	window.CenterOnScreen()

	view := NewPreviewView(window)
	view.Display(p)

	stop := context.AfterFunc(ctx, func() {
		fyne.Do(fyneApp.Quit)
	})
	defer stop()

	window.ShowAndRun()
}

func statusText(p Preview) string {
	status := fmt.Sprintf("Algorithm: %s", p.Algorithm)
	if p.State.CurrentStage == "" {
		return status
	}
	return fmt.Sprintf("%s | %s in %s", status, p.State.CurrentStage, p.State.Duration().Round(time.Millisecond))
}
