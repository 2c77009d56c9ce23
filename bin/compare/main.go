package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"visual-regression/internal/compare"
	"visual-regression/internal/config"
	diffimage "visual-regression/internal/diff/image"
	"visual-regression/internal/layout"
	"visual-regression/internal/storage"

	"github.com/go-logr/logr"
)

type CompareOutput struct {
	MismatchedPixels int                   `json:"mismatchedPixels"`
	Percentage       float64               `json:"percentage"`
	Regions          []diffimage.Rectangle `json:"regions,omitempty"`
	DiffPath         string                `json:"diffPath,omitempty"`
}

type PromoteOutput struct {
	BaselinePath string `json:"baselinePath"`
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}

	var root string
	var baseDir string
	var diffDir string
	var errorThreshold float64
	var failSilently bool
	var promoteFrom string
	var promoteTo string
	var verbose bool
	var differConfig config.Differ
	flag.StringVar(&root, "root", config.EnvOrDefault("ROOT", cwd), "Project root that holds cypress/snapshots")
	flag.StringVar(&baseDir, "base-dir", config.EnvOrDefault("BASE_DIR", ""), "Baseline root, defaults to <root>/cypress/snapshots/base")
	flag.StringVar(&diffDir, "diff-dir", config.EnvOrDefault("DIFF_DIR", ""), "Diff root, defaults to <root>/cypress/snapshots/diff")
	flag.Float64Var(&errorThreshold, "error-threshold", config.EnvOrDefault("ERROR_THRESHOLD", 0.0), "Write the diff image when the percentage exceeds this value")
	flag.BoolVar(&failSilently, "fail-silently", config.EnvOrDefault("FAIL_SILENTLY", false), "Ignore directory creation failures")
	flag.StringVar(&promoteFrom, "promote-from", "", "Promote this actual screenshot instead of comparing")
	flag.StringVar(&promoteTo, "promote-to", "", "Baseline name the promoted screenshot is stored as")
	flag.BoolVar(&verbose, "v", false, "Log progress to stderr")
	differConfig.BindFlags(flag.CommandLine)

	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		log.Fatalf("spec directory not specified")
	}
	specDirectory := args[0]

	ctx := context.Background()

	s, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: root,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	differ, err := differConfig.New()
	if err != nil {
		log.Fatalf("Failed to create differ: %v", err)
	}

	logger := logr.Discard()
	if verbose {
		logger = logr.FromSlogHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	comparator := &compare.Comparator{
		Storage: s,
		Differ:  differ,
		Log:     logger,
	}

	l := layout.New(root, baseDir, diffDir)

	if promoteFrom != "" || promoteTo != "" {
		if promoteFrom == "" || promoteTo == "" {
			log.Fatalf("both -promote-from and -promote-to are required")
		}

		if err := comparator.Promote(ctx, compare.PromoteRequest{
			SpecName: specDirectory,
			From:     promoteFrom,
			To:       promoteTo,
			Layout:   l,
		}); err != nil {
			log.Fatalf("Failed to promote snapshot: %v", err)
		}

		if err := json.NewEncoder(os.Stdout).Encode(PromoteOutput{
			BaselinePath: l.Baseline(specDirectory, layout.SanitizeFileName(promoteTo)),
		}); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		return
	}

	if len(args) < 2 {
		log.Fatalf("file name not specified")
	}
	fileName := args[1]

	result, err := comparator.Compare(ctx, compare.Request{
		SpecDirectory:  specDirectory,
		FileName:       fileName,
		Layout:         l,
		ErrorThreshold: errorThreshold,
		FailSilently:   failSilently,
	})
	if err != nil {
		log.Fatalf("Failed to compare snapshot: %v", err)
	}

	output := CompareOutput{
		MismatchedPixels: result.MismatchedPixels,
		Percentage:       result.Percentage,
		Regions:          result.Regions,
	}
	if result.DiffWritten {
		output.DiffPath = l.Diff(specDirectory, layout.SanitizeFileName(fileName))
	}

	if err := json.NewEncoder(os.Stdout).Encode(output); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}
