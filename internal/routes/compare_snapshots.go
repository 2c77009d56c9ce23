package routes

import (
	"net/http"
	v1 "visual-regression/api/v1"
	"visual-regression/internal/compare"
	"visual-regression/internal/layout"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CompareSnapshots serves the compareSnapshotsPlugin task. Failures are
// reported as a TaskError body with status 200 so the test runner can decide
// what to do with them.
func CompareSnapshots(comparator *compare.Comparator, root string, mismatchPercentage metric.Float64Histogram) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var args v1.CompareSnapshotsArgs
		if !decodeJSON(w, r, &args) {
			return
		}

		result, err := comparator.Compare(r.Context(), compare.Request{
			SpecDirectory:  args.SpecDirectory,
			FileName:       args.FileName,
			Layout:         layout.New(root, args.BaseDir, args.DiffDir),
			ErrorThreshold: args.ErrorThreshold,
			FailSilently:   args.FailSilently,
		})
		if err != nil {
			logr.FromContextOrDiscard(r.Context()).Error(err, "failed to compare snapshot", "spec", args.SpecDirectory, "file", args.FileName)
			writeJSON(w, r, v1.TaskError{Error: err.Error()})
			return
		}

		mismatchPercentage.Record(r.Context(), result.Percentage, metric.WithAttributes(
			attribute.Key("spec").String(args.SpecDirectory),
		))

		response := v1.CompareSnapshotsResult{
			MismatchedPixels: result.MismatchedPixels,
			Percentage:       result.Percentage,
		}
		for _, region := range result.Regions {
			response.Regions = append(response.Regions, v1.Region{
				X:      region.X,
				Y:      region.Y,
				Width:  region.Width,
				Height: region.Height,
			})
		}

		writeJSON(w, r, response)
	}
}
