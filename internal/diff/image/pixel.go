package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"visual-regression/internal/raster"
)

// PixelDiff compares two equally sized rasters pixel by pixel in YIQ space.
// Pixels that only differ because of anti-aliasing are not counted.
type PixelDiff struct {
	threshold        float64
	includeAA        bool
	alpha            float64
	antiAliasedColor color.NRGBA
	diffColor        color.NRGBA
	diffColorAlt     *color.NRGBA
	diffMask         bool
}

type Option func(*PixelDiff)

// WithIncludeAA counts anti-aliased pixels as mismatches.
func WithIncludeAA(includeAA bool) Option {
	return func(p *PixelDiff) {
		p.includeAA = includeAA
	}
}

// WithAlpha sets the opacity of the faded copy drawn for matching pixels.
func WithAlpha(alpha float64) Option {
	return func(p *PixelDiff) {
		p.alpha = alpha
	}
}

func WithAntiAliasedColor(c color.NRGBA) Option {
	return func(p *PixelDiff) {
		p.antiAliasedColor = c
	}
}

func WithDiffColor(c color.NRGBA) Option {
	return func(p *PixelDiff) {
		p.diffColor = c
	}
}

// WithDiffColorAlt paints pixels that got lighter in the target with c instead
// of the diff colour, which tells added content apart from removed content.
func WithDiffColorAlt(c color.NRGBA) Option {
	return func(p *PixelDiff) {
		p.diffColorAlt = &c
	}
}

// WithDiffMask draws mismatches over a transparent background instead of a
// faded copy of the target.
func WithDiffMask(diffMask bool) Option {
	return func(p *PixelDiff) {
		p.diffMask = diffMask
	}
}

// NewPixelDiff returns a differ for the given matching threshold in [0, 1].
// Smaller values make the comparison more sensitive.
func NewPixelDiff(threshold float64, opts ...Option) *PixelDiff {
	p := &PixelDiff{
		threshold:        threshold,
		alpha:            0.1,
		antiAliasedColor: color.NRGBA{R: 255, G: 255, A: 255},
		diffColor:        color.NRGBA{R: 255, A: 255},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Calculate diffs target against baseline. Both must have the same size; the
// caller reconciles them onto a common canvas first.
func (p *PixelDiff) Calculate(baseline *image.NRGBA, target *image.NRGBA) *DiffResult {
	if baseline.Rect.Size() != target.Rect.Size() {
		panic(fmt.Sprintf("image sizes do not match: baseline %v, target %v", baseline.Rect.Size(), target.Rect.Size()))
	}

	img1 := raster.Pack(target).Pix
	img2 := raster.Pack(baseline).Pix
	width := target.Rect.Dx()
	height := target.Rect.Dy()

	diff := image.NewNRGBA(image.Rect(0, 0, width, height))

	if bytes.Equal(img1, img2) {
		if !p.diffMask {
			for i := 0; i < len(img1); i += 4 {
				p.drawGrayPixel(img1, i, diff.Pix)
			}
		}
		return &DiffResult{
			Image: diff,
		}
	}

	// 35215 is the largest possible YIQ delta between two colours.
	maxDelta := 35215 * p.threshold * p.threshold
	mask := make([]bool, width*height)

	var mismatchedPixelCount int64

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	numWorkers := runtime.GOMAXPROCS(0)
	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			p.processRows(img1, img2, diff.Pix, mask, width, height, startY, endY, maxDelta, &mismatchedPixelCount)
		}(startY, endY)
	}

	wg.Wait()

	return &DiffResult{
		Image:            diff,
		MismatchedPixels: int(mismatchedPixelCount),
		Regions:          findRegions(mask, width, height),
	}
}

func (p *PixelDiff) processRows(img1 []uint8, img2 []uint8, output []uint8, mask []bool, width int, height int, startY int, endY int, maxDelta float64, mismatchedCount *int64) {
	var localMismatched int64

	for y := startY; y < endY; y++ {
		for x := 0; x < width; x++ {
			pos := (y*width + x) * 4

			delta := colorDelta(img1, img2, pos, pos, false)

			if math.Abs(delta) > maxDelta {
				if !p.includeAA && (antialiased(img1, x, y, width, height, img2) || antialiased(img2, x, y, width, height, img1)) {
					if !p.diffMask {
						drawPixel(output, pos, p.antiAliasedColor)
					}
					continue
				}

				c := p.diffColor
				if delta < 0 && p.diffColorAlt != nil {
					c = *p.diffColorAlt
				}
				drawPixel(output, pos, c)
				mask[y*width+x] = true
				localMismatched++
			} else if !p.diffMask {
				p.drawGrayPixel(img1, pos, output)
			}
		}
	}

	atomic.AddInt64(mismatchedCount, localMismatched)
}

// antialiased reports whether the pixel at (x1, y1) looks like an anti-aliased
// edge: it sits between a darker and a brighter neighbour, and one of those
// neighbours lies in a flat area of both images.
func antialiased(img []uint8, x1 int, y1 int, width int, height int, img2 []uint8) bool {
	x0 := max(x1-1, 0)
	y0 := max(y1-1, 0)
	x2 := min(x1+1, width-1)
	y2 := min(y1+1, height-1)
	pos := (y1*width + x1) * 4

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	var minDelta, maxDelta float64
	var minX, minY, maxX, maxY int

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}

			delta := colorDelta(img, img, pos, (y*width+x)*4, true)

			if delta == 0 {
				zeroes++
				if zeroes > 2 {
					return false
				}
			} else if delta < minDelta {
				minDelta = delta
				minX, minY = x, y
			} else if delta > maxDelta {
				maxDelta = delta
				maxX, maxY = x, y
			}
		}
	}

	if minDelta == 0 || maxDelta == 0 {
		return false
	}

	return (hasManySiblings(img, minX, minY, width, height) && hasManySiblings(img2, minX, minY, width, height)) ||
		(hasManySiblings(img, maxX, maxY, width, height) && hasManySiblings(img2, maxX, maxY, width, height))
}

// hasManySiblings reports whether more than two neighbours of (x1, y1) have
// exactly its colour.
func hasManySiblings(img []uint8, x1 int, y1 int, width int, height int) bool {
	x0 := max(x1-1, 0)
	y0 := max(y1-1, 0)
	x2 := min(x1+1, width-1)
	y2 := min(y1+1, height-1)
	pos := (y1*width + x1) * 4

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}

			pos2 := (y*width + x) * 4
			if img[pos] == img[pos2] &&
				img[pos+1] == img[pos2+1] &&
				img[pos+2] == img[pos2+2] &&
				img[pos+3] == img[pos2+3] {
				zeroes++
			}
			if zeroes > 2 {
				return true
			}
		}
	}

	return false
}

// colorDelta is the squared YUV distance between two pixels, after blending
// translucent pixels over white. The sign tells whether the first pixel is
// lighter (negative) or darker. With yOnly only the luma difference is returned.
func colorDelta(img1 []uint8, img2 []uint8, k int, m int, yOnly bool) float64 {
	r1, g1, b1, a1 := float64(img1[k]), float64(img1[k+1]), float64(img1[k+2]), float64(img1[k+3])
	r2, g2, b2, a2 := float64(img2[m]), float64(img2[m+1]), float64(img2[m+2]), float64(img2[m+3])

	if a1 == a2 && r1 == r2 && g1 == g2 && b1 == b2 {
		return 0
	}

	if a1 < 255 {
		a1 /= 255
		r1 = blend(r1, a1)
		g1 = blend(g1, a1)
		b1 = blend(b1, a1)
	}

	if a2 < 255 {
		a2 /= 255
		r2 = blend(r2, a2)
		g2 = blend(g2, a2)
		b2 = blend(b2, a2)
	}

	y1 := rgb2y(r1, g1, b1)
	y2 := rgb2y(r2, g2, b2)
	y := y1 - y2

	if yOnly {
		return y
	}

	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)

	delta := 0.5053*y*y + 0.299*i*i + 0.1957*q*q

	if y1 > y2 {
		return -delta
	}
	return delta
}

func rgb2y(r float64, g float64, b float64) float64 {
	return r*0.29889531 + g*0.58662247 + b*0.11448223
}

func rgb2i(r float64, g float64, b float64) float64 {
	return r*0.59597799 - g*0.27417610 - b*0.32180189
}

func rgb2q(r float64, g float64, b float64) float64 {
	return r*0.21147017 - g*0.52261711 + b*0.31114694
}

// blend composites c with opacity a over white.
func blend(c float64, a float64) float64 {
	return 255 + (c-255)*a
}

func drawPixel(output []uint8, pos int, c color.NRGBA) {
	output[pos] = c.R
	output[pos+1] = c.G
	output[pos+2] = c.B
	output[pos+3] = 255
}

func (p *PixelDiff) drawGrayPixel(img []uint8, pos int, output []uint8) {
	r, g, b := float64(img[pos]), float64(img[pos+1]), float64(img[pos+2])
	v := blend(rgb2y(r, g, b), p.alpha*float64(img[pos+3])/255)
	gray := uint8(math.Round(math.Max(0, math.Min(255, v))))
	drawPixel(output, pos, color.NRGBA{R: gray, G: gray, B: gray})
}
