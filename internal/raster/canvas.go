package raster

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// CommonCanvas returns the smallest size both images fit in when anchored at
// the origin.
func CommonCanvas(a image.Image, b image.Image) (int, int) {
	return max(a.Bounds().Dx(), b.Bounds().Dx()), max(a.Bounds().Dy(), b.Bounds().Dy())
}

// Reconcile places img at the origin of a width x height canvas. Pixels outside
// img stay transparent black; nothing is scaled. width and height must be at
// least the size of img.
func Reconcile(img *image.NRGBA, width int, height int) *image.NRGBA {
	canvas := imaging.New(width, height, color.NRGBA{})
	return imaging.Paste(canvas, img, image.Point{})
}
