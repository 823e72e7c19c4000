// Package pngfile provides render surfaces that keep the last presented
// frame in memory and write it out as a PNG file.
package pngfile

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/uapsignal/signalscope/internal/ports"
)

// Surface is an off-screen ports.RenderSurface.
//
// Thread-safety: This implementation is thread-safe.
type Surface struct {
	id     string
	width  int
	height int

	mu    sync.Mutex
	frame *image.RGBA
}

// NewSurface creates a surface of the given pixel size.
func NewSurface(id string, width, height int) *Surface {
	return &Surface{id: id, width: width, height: height}
}

// ID implements ports.RenderSurface.
func (s *Surface) ID() string { return s.id }

// Size implements ports.RenderSurface.
func (s *Surface) Size() (int, int) { return s.width, s.height }

// Present implements ports.RenderSurface.
func (s *Surface) Present(img *image.RGBA) {
	s.mu.Lock()
	s.frame = img
	s.mu.Unlock()
}

// Frame returns the last presented image, or nil.
func (s *Surface) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// WriteFile encodes the last frame to dir/<prefix><id>.png and returns the path.
func (s *Surface) WriteFile(dir, prefix string) (string, error) {
	frame := s.Frame()
	if frame == nil {
		return "", fmt.Errorf("surface %s: nothing rendered", s.id)
	}

	path := filepath.Join(dir, prefix+s.id+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("surface %s: %w", s.id, err)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return "", fmt.Errorf("surface %s: encode: %w", s.id, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("surface %s: %w", s.id, err)
	}
	return path, nil
}

var _ ports.RenderSurface = (*Surface)(nil)
