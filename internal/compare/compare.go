package compare

import (
	"context"
	"image"
	"math"
	diffimage "visual-regression/internal/diff/image"
	"visual-regression/internal/layout"
	"visual-regression/internal/raster"
	"visual-regression/internal/storage"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// DefaultTolerance is the per-pixel colour distance below which two pixels match.
const DefaultTolerance = 0.1

var defaultTracer = otel.Tracer("visual-regression/internal/compare")

type Request struct {
	SpecDirectory  string
	FileName       string
	Layout         layout.Layout
	ErrorThreshold float64
	FailSilently   bool
}

type Result struct {
	MismatchedPixels int
	Percentage       float64
	Regions          []diffimage.Rectangle
	DiffWritten      bool
}

type PromoteRequest struct {
	SpecName string
	From     string
	To       string
	Layout   layout.Layout
}

type Comparator struct {
	Storage storage.Storage
	Differ  diffimage.Differ
	// Log is used when the context carries no request logger
	Log logr.Logger
	// Tracer defaults to the global tracer provider
	Tracer trace.Tracer
}

// NewComparator returns a Comparator that diffs with DefaultTolerance.
func NewComparator(s storage.Storage, log logr.Logger) *Comparator {
	return &Comparator{
		Storage: s,
		Differ:  diffimage.NewPixelDiff(DefaultTolerance),
		Log:     log,
	}
}

// Compare diffs the actual screenshot of r against its baseline and returns
// the measured mismatch. A missing baseline is not a regression: the actual
// image is copied to the diff location and the result is zero. The diff image
// is only written when the percentage exceeds r.ErrorThreshold; deciding
// whether the test fails is left to the caller.
func (c *Comparator) Compare(ctx context.Context, r Request) (_ *Result, err error) {
	ctx, span := c.tracer().Start(ctx, "Compare")
	defer func() {
		endSpan(span, err)
	}()

	fileName := layout.SanitizeFileName(r.FileName)
	actualPath := r.Layout.Actual(r.SpecDirectory, fileName)
	baselinePath := r.Layout.Baseline(r.SpecDirectory, fileName)
	diffPath := r.Layout.Diff(r.SpecDirectory, fileName)

	log := c.logger(ctx).WithValues("spec", r.SpecDirectory, "file", fileName)

	if err := c.ensureFolders(ctx, log, r.FailSilently,
		r.Layout.ActualFolder(r.SpecDirectory),
		r.Layout.DiffFolder(r.SpecDirectory),
		r.Layout.BaselineFolder(r.SpecDirectory),
	); err != nil {
		return nil, err
	}

	exists, err := c.Storage.Exists(ctx, baselinePath)
	if err != nil {
		return nil, xerrors.Errorf("failed to check baseline %s: %w", baselinePath, err)
	}
	if !exists {
		if err := c.Storage.Copy(ctx, actualPath, diffPath); err != nil {
			return nil, xerrors.Errorf("failed to copy actual image to %s: %w", diffPath, err)
		}
		log.V(1).Info("no baseline, copied actual image to diff", "diff", diffPath)
		return &Result{}, nil
	}

	var actual *image.NRGBA
	var baseline *image.NRGBA
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			img, err := raster.Load(ctx, c.Storage, actualPath)
			if err != nil {
				return err
			}
			actual = img
			return nil
		})

		eg.Go(func() error {
			img, err := raster.Load(ctx, c.Storage, baselinePath)
			if err != nil {
				return err
			}
			baseline = img
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	width, height := raster.CommonCanvas(actual, baseline)
	diffResult := c.Differ.Calculate(
		raster.Reconcile(baseline, width, height),
		raster.Reconcile(actual, width, height),
	)

	result := &Result{
		MismatchedPixels: diffResult.MismatchedPixels,
		Percentage:       Score(diffResult.MismatchedPixels, width, height),
		Regions:          diffResult.Regions,
	}

	span.SetAttributes(
		attribute.Int("mismatched_pixels", result.MismatchedPixels),
		attribute.Float64("percentage", result.Percentage),
	)

	if result.Percentage > r.ErrorThreshold {
		data, err := raster.Encode(diffResult.Image)
		if err != nil {
			return nil, xerrors.Errorf("failed to encode diff image: %w", err)
		}
		if _, err := c.Storage.Put(ctx, diffPath, data); err != nil {
			return nil, xerrors.Errorf("failed to write diff image: %w", err)
		}
		result.DiffWritten = true
	}

	log.Info("compared snapshot",
		"mismatchedPixels", result.MismatchedPixels,
		"percentage", result.Percentage,
		"canvas", []int{width, height},
		"diffWritten", result.DiffWritten,
	)

	return result, nil
}

// Promote accepts an actual screenshot as the baseline for r.To.
func (c *Comparator) Promote(ctx context.Context, r PromoteRequest) (err error) {
	ctx, span := c.tracer().Start(ctx, "Promote")
	defer func() {
		endSpan(span, err)
	}()

	log := c.logger(ctx)

	from := r.Layout.Actual(r.SpecName, layout.SanitizeFileName(r.From))
	to := r.Layout.Baseline(r.SpecName, layout.SanitizeFileName(r.To))

	if err := c.ensureFolders(ctx, log, false, r.Layout.BaselineFolder(r.SpecName)); err != nil {
		return err
	}

	if err := c.Storage.Copy(ctx, from, to); err != nil {
		return xerrors.Errorf("failed to promote %s: %w", from, err)
	}

	log.Info("promoted snapshot", "from", from, "to", to)

	return nil
}

// Score normalises a mismatch count to the square root of the mismatched
// fraction of the canvas, so partial changes are not understated.
func Score(mismatchedPixels int, width int, height int) float64 {
	area := width * height
	if area == 0 {
		return 0
	}
	return math.Sqrt(float64(mismatchedPixels) / float64(area))
}

func (c *Comparator) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return defaultTracer
}

// logger prefers the request logger carried by ctx so log lines keep the
// request's trace and span IDs.
func (c *Comparator) logger(ctx context.Context) logr.Logger {
	if log, err := logr.FromContext(ctx); err == nil {
		return log.WithName("comparator")
	}
	return c.Log
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Comparator) ensureFolders(ctx context.Context, log logr.Logger, failSilently bool, dirs ...string) error {
	eg, ctx := errgroup.WithContext(ctx)

	for _, dir := range dirs {
		eg.Go(func() error {
			if err := c.Storage.MkdirAll(ctx, dir); err != nil {
				if failSilently {
					log.V(1).Info("ignoring directory creation failure", "dir", dir, "error", err.Error())
					return nil
				}
				return &DirectoryCreationError{Dir: dir, Err: err}
			}
			return nil
		})
	}

	return eg.Wait()
}
