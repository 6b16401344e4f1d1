package scene

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/go-gl/mathgl/mgl32"
)

// DisplayGamma is the gamma ToImage encodes linear radiance with by default.
const DisplayGamma = 2.2

// ToImage converts linear RGBA pixels to an 8-bit image.
// Channels are clamped to [0, 1] before gamma encoding; alpha is forced to opaque.
//
// Parameters:
//   - pixels: row-major pixels, top row first, width*height long
//   - width: the image width
//   - height: the image height
//   - gamma: the encoding gamma, 1 keeps the values linear
//
// Returns:
//   - *image.RGBA: the encoded image
func ToImage(pixels []mgl32.Vec4, width, height int, gamma float64) *image.RGBA {
	linear := image.NewRGBA64(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			i := y*width + x
			if i >= len(pixels) {
				break
			}
			p := pixels[i]
			linear.SetRGBA64(x, y, color.RGBA64{
				R: channel16(p[0]),
				G: channel16(p[1]),
				B: channel16(p[2]),
				A: 0xffff,
			})
		}
	}
	if gamma <= 0 {
		gamma = DisplayGamma
	}
	return adjust.Gamma(linear, gamma)
}

func channel16(v float32) uint16 {
	return uint16(mgl32.Clamp(v, 0, 1)*0xffff + 0.5)
}
