package main

import (
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/image/draw"
)

// saveSnapshot reads the converged image of s and writes it to path as a PNG.
// A positive scaleWidth resamples the image to that width, keeping the aspect ratio.
func saveSnapshot(s scene.Scene, path string, gamma float64, scaleWidth int) error {
	pixels, st, err := s.Snapshot()
	if err != nil {
		return err
	}
	img := scaleImage(scene.ToImage(pixels, st.Width, st.Height, gamma), scaleWidth)
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	common.Logger().Info("snapshot written",
		"path", path,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"samples", st.SampleCount)
	return nil
}

// scaleImage resamples src to width with Catmull-Rom filtering. Widths <= 0 or equal to the
// source width return src unchanged.
func scaleImage(src *image.RGBA, width int) *image.RGBA {
	b := src.Bounds()
	if width <= 0 || width == b.Dx() || b.Dx() == 0 {
		return src
	}
	height := max(1, common.CeilDiv(width*b.Dy(), b.Dx()))
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
