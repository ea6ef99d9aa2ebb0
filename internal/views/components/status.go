package components

import (
	"fmt"

	"skin-obliterator/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// StatusBar shows the classification summary under the image panes.
type StatusBar struct {
	container    *fyne.Container
	statusLabel  *widget.Label
	imageInfo    *widget.Label
	metricsLabel *widget.Label
}

func NewStatusBar() *StatusBar {
	sb := &StatusBar{
		statusLabel:  widget.NewLabel("Ready"),
		imageInfo:    widget.NewLabel("No image loaded"),
		metricsLabel: widget.NewLabel("No ground truth"),
	}

	sb.container = container.NewHBox(
		sb.statusLabel,
		widget.NewSeparator(),
		sb.imageInfo,
		widget.NewSeparator(),
		sb.metricsLabel,
	)

	return sb
}

func (sb *StatusBar) SetStatus(status string) {
	fyne.Do(func() {
		sb.statusLabel.SetText(status)
	})
}

func (sb *StatusBar) SetImageInfo(width, height, channels int, format string) {
	fyne.Do(func() {
		sb.imageInfo.SetText(fmt.Sprintf("Image: %dx%d, %d channels, %s", width, height, channels, format))
	})
}

// SetMetrics summarises agreement with ground truth; nil clears it.
func (sb *StatusBar) SetMetrics(metrics *pipeline.SegmentationMetrics) {
	text := "No ground truth"
	if metrics != nil {
		text = fmt.Sprintf("IoU %.4f  Dice %.4f  Error %.4f  TPR %.4f  FPR %.4f",
			metrics.IoU, metrics.DiceCoefficient, metrics.MisclassificationError,
			metrics.TruePositiveRate, metrics.FalsePositiveRate)
	}

	fyne.Do(func() {
		sb.metricsLabel.SetText(text)
	})
}

func (sb *StatusBar) Status() string {
	return sb.statusLabel.Text
}

func (sb *StatusBar) Metrics() string {
	return sb.metricsLabel.Text
}

func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}
