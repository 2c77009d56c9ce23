package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"visual-regression/internal/storage"

	"github.com/disintegration/imaging"
	"golang.org/x/xerrors"
)

// DecodeError reports a key that is missing or does not hold a PNG image.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Load reads key from s and decodes it. Every call reads and decodes again.
func Load(ctx context.Context, s storage.Storage, key string) (*image.NRGBA, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Errorf("failed to load %s: %w", key, err)
		}
		return nil, &DecodeError{Key: key, Err: err}
	}

	img, err := Decode(data)
	if err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}

	return img, nil
}

// Decode turns PNG bytes into a non-premultiplied RGBA raster anchored at the
// origin with a tight stride, whatever colour model the file was stored in.
func Decode(data []byte) (*image.NRGBA, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return Pack(img), nil
}

// Pack returns img as an NRGBA raster with Rect.Min at the origin and
// Stride == 4*width. img itself is returned when it already has that shape.
func Pack(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok &&
		nrgba.Rect.Min == (image.Point{}) &&
		nrgba.Stride == 4*nrgba.Rect.Dx() &&
		len(nrgba.Pix) == 4*nrgba.Rect.Dx()*nrgba.Rect.Dy() {
		return nrgba
	}
	return imaging.Clone(img)
}

// Encode serialises img as PNG.
func Encode(img image.Image) ([]byte, error) {
	var buffer bytes.Buffer
	if err := imaging.Encode(&buffer, img, imaging.PNG); err != nil {
		return nil, xerrors.Errorf("failed to encode png: %w", err)
	}
	return buffer.Bytes(), nil
}
