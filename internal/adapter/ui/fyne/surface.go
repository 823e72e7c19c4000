package fyne

import (
	"image"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/uapsignal/signalscope/internal/ports"
)

// RasterSurface is a ports.RenderSurface backed by a canvas.Image.
// Renderers draw at the fixed pixel size given at construction; Fyne scales
// the image to the space the tab gives it.
//
// Thread-safety: Present may be called from any goroutine.
type RasterSurface struct {
	id     string
	width  int
	height int
	image  *canvas.Image

	mu      sync.Mutex
	last    *image.RGBA
	pending bool
}

// NewRasterSurface creates a surface with a blank frame.
func NewRasterSurface(id string, width, height int) *RasterSurface {
	blank := image.NewRGBA(image.Rect(0, 0, width, height))
	img := canvas.NewImageFromImage(blank)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleFastest
	img.SetMinSize(fyneapp.NewSize(float32(width)/2, float32(height)/2))

	return &RasterSurface{
		id:     id,
		width:  width,
		height: height,
		image:  img,
		last:   blank,
	}
}

// ID implements ports.RenderSurface.
func (s *RasterSurface) ID() string { return s.id }

// Size implements ports.RenderSurface.
func (s *RasterSurface) Size() (int, int) { return s.width, s.height }

// Present implements ports.RenderSurface. Frames presented faster than the UI
// thread can apply them are coalesced; only the newest is shown.
func (s *RasterSurface) Present(img *image.RGBA) {
	s.mu.Lock()
	s.last = img
	if s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.mu.Unlock()

	fyneapp.Do(s.apply)
}

func (s *RasterSurface) apply() {
	s.mu.Lock()
	frame := s.last
	s.pending = false
	s.mu.Unlock()

	s.image.Image = frame
	s.image.Refresh()
}

// Frame returns the last presented image.
func (s *RasterSurface) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// CanvasObject returns the widget to place in a tab.
func (s *RasterSurface) CanvasObject() fyneapp.CanvasObject {
	return s.image
}

var _ ports.RenderSurface = (*RasterSurface)(nil)
