package raster

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"visual-regression/internal/storage"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewFileStorage(ctx, storage.FileConfig{Directory: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	img := solid(5, 2, color.NRGBA{G: 128, B: 255, A: 200})
	data, err := Encode(img)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if _, err := s.Put(ctx, "ok.png", data); err != nil {
		t.Fatalf("failed to put: %v", err)
	}
	if _, err := s.Put(ctx, "garbage.png", []byte("not a png")); err != nil {
		t.Fatalf("failed to put: %v", err)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		got, err := Load(ctx, s, "ok.png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(img.Pix, got.Pix); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(img.Rect, got.Rect); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := Load(ctx, s, "missing.png")
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected DecodeError, got %v", err)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected wrapped ErrNotFound, got %v", err)
		}
	})

	t.Run("NotAnImage", func(t *testing.T) {
		_, err := Load(ctx, s, "garbage.png")
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected DecodeError, got %v", err)
		}
		if diff := cmp.Diff("garbage.png", decodeErr.Key); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestDecodeNormalisesColorModel(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 1, color.Gray{Y: 77})

	data, err := Encode(gray)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(2*2*4, len(got.Pix)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(color.NRGBA{R: 77, G: 77, B: 77, A: 255}, got.NRGBAAt(1, 1)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
