package config_test

import (
	"flag"
	"image"
	"image/color"
	"testing"
	"visual-regression/internal/config"

	"github.com/google/go-cmp/cmp"
)

func TestDifferBindFlags(t *testing.T) {
	t.Setenv("TOLERANCE", "0.2")

	var d config.Differ
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	d.BindFlags(fs)
	if err := fs.Parse([]string{"-diff-color", "#00ff00", "-include-aa"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	want := config.Differ{
		Tolerance:        0.2,
		IncludeAA:        true,
		Alpha:            0.1,
		AntiAliasedColor: "#ffff00",
		DiffColor:        "#00ff00",
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDifferNew(t *testing.T) {
	t.Run("DiffColor", func(t *testing.T) {
		differ, err := config.Differ{Tolerance: 0.1, Alpha: 0.1, DiffColor: "#00ff00"}.New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		white := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		white.Pix = []uint8{255, 255, 255, 255}
		black := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		black.Pix = []uint8{0, 0, 0, 255}

		result := differ.Calculate(white, black)
		if diff := cmp.Diff(color.NRGBA{G: 255, A: 255}, result.Image.NRGBAAt(0, 0)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("InvalidTolerance", func(t *testing.T) {
		if _, err := (config.Differ{Tolerance: 1.5}).New(); err == nil {
			t.Errorf("expected an error")
		}
	})

	t.Run("InvalidColor", func(t *testing.T) {
		if _, err := (config.Differ{Tolerance: 0.1, DiffColorAlt: "blue"}).New(); err == nil {
			t.Errorf("expected an error")
		}
	})
}
