package main

import (
	"context"
	"flag"
	"log"
	"os"
	"visual-regression/internal/compare"
	"visual-regression/internal/config"
	"visual-regression/internal/runnable"
	"visual-regression/internal/storage"

	"github.com/go-logr/logr"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}

	var root string
	var backend string
	var bucket string
	var differConfig config.Differ
	flag.StringVar(&root, "root", config.EnvOrDefault("ROOT", cwd), "Project root that holds cypress/snapshots")
	flag.StringVar(&backend, "storage", config.EnvOrDefault("STORAGE", storage.BackendFile), "Storage backend (file or s3)")
	flag.StringVar(&bucket, "s3-bucket", config.EnvOrDefault("S3_BUCKET", ""), "Bucket used by the s3 storage backend")
	flag.BoolVar(&runnable.Debug, "debug", config.EnvOrDefault("DEBUG", false), "Enable text logs and pprof endpoints")
	differConfig.BindFlags(flag.CommandLine)
	flag.Parse()

	logger, err := runnable.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx := context.Background()

	s, err := storage.New(ctx, backend, storage.FileConfig{Directory: root}, storage.S3Config{Bucket: bucket})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	differ, err := differConfig.New()
	if err != nil {
		log.Fatalf("Failed to create differ: %v", err)
	}

	comparator := &compare.Comparator{
		Storage: s,
		Differ:  differ,
		Log:     logr.FromSlogHandler(logger.Handler()).WithName("comparator"),
	}

	if err := runnable.NewServer(comparator, root, logger).Start(ctx); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
