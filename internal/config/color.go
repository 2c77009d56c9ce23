package config

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/xerrors"
)

// ParseColor parses a "#rrggbb" or "#rgb" string into an opaque colour.
func ParseColor(s string) (color.NRGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, xerrors.Errorf("invalid colour %q: %w", s, err)
	}

	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
