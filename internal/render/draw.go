// Package render draws the waveform, spectrum and spectrogram visualizations.
// Renderers are pure with respect to their inputs: data in, image out, presented
// on a ports.RenderSurface.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	backgroundColor = color.RGBA{A: 255}
	gridColor       = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 255}
	traceColor      = color.RGBA{G: 0xff, A: 255}
	labelColor      = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 255}
)

// newFrame allocates a frame, never smaller than 1x1.
func newFrame(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
}

// DrawingUtils provides common drawing operations.
type DrawingUtils struct{}

// FillBackground fills the image with a solid color.
func (DrawingUtils) FillBackground(img *image.RGBA, col color.Color) {
	draw.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// FillRect fills r, clipped to the image bounds.
func (DrawingUtils) FillRect(img *image.RGBA, r image.Rectangle, col color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(col), image.Point{}, draw.Src)
}

// DrawThickLine draws a line with the specified thickness.
func (DrawingUtils) DrawThickLine(img *image.RGBA, x1, y1, x2, y2 float64, thickness int, col color.RGBA) {
	bounds := img.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	length := math.Sqrt(dx*dx + dy*dy)

	if length == 0 {
		px, py := int(x1), int(y1)
		if image.Pt(px, py).In(bounds) {
			img.SetRGBA(px, py, col)
		}
		return
	}

	// Perpendicular unit vector for thickness
	perpX := -dy / length
	perpY := dx / length

	steps := int(length) + 1
	half := thickness / 2

	for t := -half; t <= thickness-1-half; t++ {
		offsetX := float64(t) * perpX
		offsetY := float64(t) * perpY

		for i := 0; i <= steps; i++ {
			progress := float64(i) / float64(steps)
			px := int(x1 + dx*progress + offsetX)
			py := int(y1 + dy*progress + offsetY)

			if image.Pt(px, py).In(bounds) {
				img.SetRGBA(px, py, col)
			}
		}
	}
}

// DrawText draws s with its baseline at (x, y) using the built-in 7x13 face.
func (DrawingUtils) DrawText(img *image.RGBA, x, y int, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

// TextWidth returns the advance of s in pixels.
func (DrawingUtils) TextWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// HSLToRGB converts HSL to RGB (h, s, l in 0-1 range).
func HSLToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = hueToRGB(p, q, h+1.0/3.0)
	g = hueToRGB(p, q, h)
	b = hueToRGB(p, q, h-1.0/3.0)

	return r, g, b
}

// hueToRGB is a helper for HSL to RGB conversion.
func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 0.5 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
