package routes

import (
	"net/http"
	v1 "visual-regression/api/v1"
	"visual-regression/internal/compare"
	"visual-regression/internal/layout"

	"github.com/go-logr/logr"
)

// VisualRegressionCopy serves the visualRegressionCopy task, promoting an
// actual screenshot to a baseline. It answers true on success.
func VisualRegressionCopy(comparator *compare.Comparator, root string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var args v1.VisualRegressionCopyArgs
		if !decodeJSON(w, r, &args) {
			return
		}

		if err := comparator.Promote(r.Context(), compare.PromoteRequest{
			SpecName: args.SpecName,
			From:     args.From,
			To:       args.To,
			Layout:   layout.New(root, args.BaseDir, ""),
		}); err != nil {
			logr.FromContextOrDiscard(r.Context()).Error(err, "failed to promote snapshot", "spec", args.SpecName, "from", args.From, "to", args.To)
			writeJSON(w, r, v1.TaskError{Error: err.Error()})
			return
		}

		writeJSON(w, r, true)
	}
}
