package pngfile

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurface_WriteFile(t *testing.T) {
	s := NewSurface("spectrum", 8, 4)
	w, h := s.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 4, h)

	_, err := s.WriteFile(t.TempDir(), "x_")
	assert.Error(t, err, "nothing presented yet")

	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.Set(3, 2, color.RGBA{R: 255, A: 255})
	s.Present(img)

	path, err := s.WriteFile(t.TempDir(), "uap_signal_1_")
	require.NoError(t, err)
	assert.Equal(t, "uap_signal_1_spectrum.png", filepath.Base(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)

	r, _, _, _ := decoded.At(3, 2).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}
