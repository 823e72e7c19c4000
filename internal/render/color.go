package render

import "image/color"

// IntensityColor maps an intensity in [0,1] to the spectrogram palette:
// black to blue below the midpoint, then blue through yellow to red.
// Both branches give pure blue at 0.5, so the palette has no seam.
func IntensityColor(i float64) color.RGBA {
	i = clamp01(i)
	if i < 0.5 {
		return lowIntensity(i)
	}
	return highIntensity(i)
}

// lowIntensity ramps blue from black.
func lowIntensity(i float64) color.RGBA {
	t := i * 2
	return color.RGBA{B: toByte(t), A: 255}
}

// highIntensity ramps red and green up while blue fades, peaking at yellow
// halfway and ending at red.
func highIntensity(i float64) color.RGBA {
	t := (i - 0.5) * 2

	r := min(1, 2*t)
	var g float64
	if t < 0.5 {
		g = 2 * t
	} else {
		g = 2 * (1 - t)
	}
	b := max(0, 1-2*t)

	return color.RGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: 255}
}

// SpectrumColor returns the bar colour for bin i of n: hue 240 at the lowest
// bin down to 0 at the highest, full saturation, half lightness.
func SpectrumColor(i, n int) color.RGBA {
	hue := 240.0
	if n > 1 {
		hue = 240 * (1 - float64(i)/float64(n-1))
	}
	r, g, b := HSLToRGB(hue/360, 1, 0.5)
	return color.RGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: 255}
}
