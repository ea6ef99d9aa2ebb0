package components

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	PaneWidth  = 400
	PaneHeight = 300
)

// ImageDisplay lays out titled image panes side by side.
type ImageDisplay struct {
	container   *fyne.Container
	images      []*canvas.Image
	titles      []string
	placeholder image.Image
	loaded      []bool
}

// NewImageDisplay creates one pane per title, each showing a placeholder
// until an image is set.
func NewImageDisplay(titles ...string) *ImageDisplay {
	id := &ImageDisplay{
		titles:      append([]string(nil), titles...),
		images:      make([]*canvas.Image, len(titles)),
		loaded:      make([]bool, len(titles)),
		placeholder: createPlaceholderImage(),
	}
	id.buildLayout()
	return id
}

func createPlaceholderImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, PaneWidth, PaneHeight))

	lightGray := color.RGBA{R: 240, G: 240, B: 240, A: 255}
	borderColor := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	for y := 0; y < PaneHeight; y++ {
		for x := 0; x < PaneWidth; x++ {
			if x == 0 || y == 0 || x == PaneWidth-1 || y == PaneHeight-1 {
				img.Set(x, y, borderColor)
				continue
			}
			img.Set(x, y, lightGray)
		}
	}

	return img
}

func (id *ImageDisplay) buildLayout() {
	panes := make([]fyne.CanvasObject, len(id.titles))

	for i, title := range id.titles {
		img := canvas.NewImageFromImage(id.placeholder)
		img.FillMode = canvas.ImageFillContain
		// Masks are 0/255 so smoothing would blur the class boundary.
		img.ScaleMode = canvas.ImageScalePixels
		img.SetMinSize(fyne.NewSize(PaneWidth, PaneHeight))
		id.images[i] = img

		panes[i] = container.NewBorder(
			widget.NewRichTextFromMarkdown("**"+title+"**"),
			nil, nil, nil,
			container.NewStack(
				canvas.NewRectangle(color.RGBA{R: 252, G: 252, B: 252, A: 255}),
				img,
			),
		)
	}

	id.container = container.NewGridWithColumns(max(len(panes), 1), panes...)
}

// SetImage shows img in pane index; nil restores the placeholder.
// Out-of-range indices are ignored.
func (id *ImageDisplay) SetImage(index int, img image.Image) {
	if index < 0 || index >= len(id.images) {
		return
	}

	fyne.Do(func() {
		if img != nil {
			id.images[index].Image = img
			id.loaded[index] = true
		} else {
			id.images[index].Image = id.placeholder
			id.loaded[index] = false
		}
		id.images[index].Refresh()
	})
}

func (id *ImageDisplay) HasImage(index int) bool {
	if index < 0 || index >= len(id.loaded) {
		return false
	}
	return id.loaded[index]
}

func (id *ImageDisplay) PaneCount() int {
	return len(id.images)
}

func (id *ImageDisplay) GetContainer() *fyne.Container {
	return id.container
}
