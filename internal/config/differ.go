package config

import (
	"flag"
	diffimage "visual-regression/internal/diff/image"

	"golang.org/x/xerrors"
)

// Differ holds the per-process pixel comparison settings. Colours are hex
// strings; an empty DiffColorAlt disables the alternate colour.
type Differ struct {
	Tolerance        float64
	IncludeAA        bool
	Alpha            float64
	AntiAliasedColor string
	DiffColor        string
	DiffColorAlt     string
	DiffMask         bool
}

// BindFlags registers the settings on fs with defaults taken from the
// environment.
func (d *Differ) BindFlags(fs *flag.FlagSet) {
	fs.Float64Var(&d.Tolerance, "tolerance", EnvOrDefault("TOLERANCE", 0.1), "Per-pixel matching threshold between 0 and 1, smaller is more sensitive")
	fs.BoolVar(&d.IncludeAA, "include-aa", EnvOrDefault("INCLUDE_AA", false), "Count anti-aliased pixels as mismatches")
	fs.Float64Var(&d.Alpha, "alpha", EnvOrDefault("ALPHA", 0.1), "Opacity of the faded copy drawn for matching pixels")
	fs.StringVar(&d.AntiAliasedColor, "aa-color", EnvOrDefault("AA_COLOR", "#ffff00"), "Colour of anti-aliased pixels in the diff image")
	fs.StringVar(&d.DiffColor, "diff-color", EnvOrDefault("DIFF_COLOR", "#ff0000"), "Colour of mismatched pixels in the diff image")
	fs.StringVar(&d.DiffColorAlt, "diff-color-alt", EnvOrDefault("DIFF_COLOR_ALT", ""), "Colour of mismatched pixels that got lighter, empty to use diff-color")
	fs.BoolVar(&d.DiffMask, "diff-mask", EnvOrDefault("DIFF_MASK", false), "Draw mismatches over a transparent background")
}

// New builds the pixel differ described by d.
func (d Differ) New() (*diffimage.PixelDiff, error) {
	if d.Tolerance < 0 || d.Tolerance > 1 {
		return nil, xerrors.Errorf("tolerance must be between 0 and 1, got %v", d.Tolerance)
	}

	opts := []diffimage.Option{
		diffimage.WithIncludeAA(d.IncludeAA),
		diffimage.WithAlpha(d.Alpha),
		diffimage.WithDiffMask(d.DiffMask),
	}

	if d.AntiAliasedColor != "" {
		c, err := ParseColor(d.AntiAliasedColor)
		if err != nil {
			return nil, err
		}
		opts = append(opts, diffimage.WithAntiAliasedColor(c))
	}
	if d.DiffColor != "" {
		c, err := ParseColor(d.DiffColor)
		if err != nil {
			return nil, err
		}
		opts = append(opts, diffimage.WithDiffColor(c))
	}
	if d.DiffColorAlt != "" {
		c, err := ParseColor(d.DiffColorAlt)
		if err != nil {
			return nil, err
		}
		opts = append(opts, diffimage.WithDiffColorAlt(c))
	}

	return diffimage.NewPixelDiff(d.Tolerance, opts...), nil
}
