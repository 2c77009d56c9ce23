package image

import "image"

type DiffResult struct {
	Image            *image.NRGBA
	MismatchedPixels int
	Regions          []Rectangle
}

type Differ interface {
	Calculate(baseline *image.NRGBA, target *image.NRGBA) *DiffResult
}
