package routes_test

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	v1 "visual-regression/api/v1"
	"visual-regression/internal/compare"
	"visual-regression/internal/layout"
	"visual-regression/internal/raster"
	"visual-regression/internal/routes"
	"visual-regression/internal/storage"

	"github.com/disintegration/imaging"
	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const spec = "cart.cy.js"

type server struct {
	root   string
	reader *sdkmetric.ManualReader
	mux    *http.ServeMux
}

func newServer(t *testing.T) *server {
	t.Helper()

	root := t.TempDir()
	s, err := storage.NewFileStorage(context.Background(), storage.FileConfig{Directory: root})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	comparator := compare.NewComparator(s, logr.Discard())

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	histogram, err := meter.Float64Histogram("snapshot_mismatch_percentage")
	if err != nil {
		t.Fatalf("failed to create histogram: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /tasks/compareSnapshotsPlugin", routes.CompareSnapshots(comparator, root, histogram))
	mux.HandleFunc("POST /tasks/visualRegressionCopy", routes.VisualRegressionCopy(comparator, root))

	return &server{
		root:   root,
		reader: reader,
		mux:    mux,
	}
}

func (s *server) post(t *testing.T, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func writePNG(t *testing.T, path string, c color.NRGBA) {
	t.Helper()

	data, err := raster.Encode(imaging.New(10, 10, c))
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func TestCompareSnapshots(t *testing.T) {
	s := newServer(t)
	l := layout.New(s.root, "", "")
	writePNG(t, l.Actual(spec, "header"), color.NRGBA{R: 255, A: 255})
	writePNG(t, l.Baseline(spec, "header"), color.NRGBA{B: 255, A: 255})

	rec := s.post(t, "/tasks/compareSnapshotsPlugin", `{"fileName":"header","specDirectory":"cart.cy.js","errorThreshold":0.01}`)

	if diff := cmp.Diff(http.StatusOK, rec.Code); diff != "" {
		t.Fatalf("status (-want +got):\n%s", diff)
	}

	var got v1.CompareSnapshotsResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := v1.CompareSnapshotsResult{
		MismatchedPixels: 100,
		Percentage:       1,
		Regions: []v1.Region{
			{X: 0, Y: 0, Width: 10, Height: 10},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := os.Stat(l.Diff(spec, "header")); err != nil {
		t.Errorf("expected a diff image: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	var count uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok {
				for _, dp := range h.DataPoints {
					count += dp.Count
				}
			}
		}
	}
	if diff := cmp.Diff(uint64(1), count); diff != "" {
		t.Errorf("recorded percentages (-want +got):\n%s", diff)
	}
}

func TestCompareSnapshotsBaseDirOverride(t *testing.T) {
	s := newServer(t)
	baseDir := t.TempDir()
	l := layout.New(s.root, baseDir, "")
	writePNG(t, l.Actual(spec, "footer"), color.NRGBA{R: 255, A: 255})
	writePNG(t, l.Baseline(spec, "footer"), color.NRGBA{R: 255, A: 255})

	body, err := json.Marshal(v1.CompareSnapshotsArgs{
		FileName:       "footer",
		SpecDirectory:  spec,
		BaseDir:        baseDir,
		ErrorThreshold: 0.01,
	})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	rec := s.post(t, "/tasks/compareSnapshotsPlugin", string(body))

	if diff := cmp.Diff(`{"mismatchedPixels":0,"percentage":0}`, rec.Body.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCompareSnapshotsReportsErrors(t *testing.T) {
	s := newServer(t)
	l := layout.New(s.root, "", "")
	writePNG(t, l.Actual(spec, "broken"), color.NRGBA{R: 255, A: 255})
	if err := os.WriteFile(l.Baseline(spec, "broken"), []byte("garbage"), 0644); err != nil {
		t.Fatalf("failed to write baseline: %v", err)
	}

	rec := s.post(t, "/tasks/compareSnapshotsPlugin", `{"fileName":"broken","specDirectory":"cart.cy.js","errorThreshold":0.01}`)

	if diff := cmp.Diff(http.StatusOK, rec.Code); diff != "" {
		t.Fatalf("status (-want +got):\n%s", diff)
	}
	var got v1.TaskError
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Error == "" {
		t.Errorf("expected an error message, got %s", rec.Body.String())
	}
}

func TestMalformedBody(t *testing.T) {
	s := newServer(t)

	for _, path := range []string{"/tasks/compareSnapshotsPlugin", "/tasks/visualRegressionCopy"} {
		rec := s.post(t, path, `{"fileName":`)
		if diff := cmp.Diff(http.StatusBadRequest, rec.Code); diff != "" {
			t.Errorf("%s (-want +got):\n%s", path, diff)
		}
	}
}

func TestVisualRegressionCopy(t *testing.T) {
	s := newServer(t)
	l := layout.New(s.root, "", "")
	writePNG(t, l.Actual(spec, "checkout"), color.NRGBA{G: 255, A: 255})

	rec := s.post(t, "/tasks/visualRegressionCopy", `{"specName":"cart.cy.js","from":"checkout","to":"checkout-base"}`)

	if diff := cmp.Diff("true", rec.Body.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if _, err := os.Stat(l.Baseline(spec, "checkout-base")); err != nil {
		t.Errorf("expected promoted baseline: %v", err)
	}

	rec = s.post(t, "/tasks/visualRegressionCopy", `{"specName":"cart.cy.js","from":"missing","to":"x"}`)

	var got v1.TaskError
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Error == "" {
		t.Errorf("expected an error message, got %s", rec.Body.String())
	}
}
