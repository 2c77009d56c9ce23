package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"
	"visual-regression/internal/capture"
	"visual-regression/internal/config"
	"visual-regression/internal/layout"
	"visual-regression/internal/storage"
)

type CaptureOutput struct {
	ScreenshotPath string `json:"screenshotPath"`
}

type headers []string

func (h *headers) String() string {
	return strings.Join(*h, ", ")
}

func (h *headers) Set(value string) error {
	*h = append(*h, value)
	return nil
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
	var maskSelectors string
	var maskColor string
	var delay time.Duration
	var viewportWidth int
	var viewportHeight int
	var userAgent string
	var chromeDevtoolsProtocolURL string
	var headers headers
	flag.StringVar(&root, "root", config.EnvOrDefault("ROOT", cwd), "Project root that holds cypress/snapshots")
	flag.StringVar(&maskSelectors, "mask-selectors", config.EnvOrDefault("MASK_SELECTORS", ""), "Comma-separated list of CSS selectors to mask during capture")
	flag.StringVar(&maskColor, "mask-color", config.EnvOrDefault("MASK_COLOR", "#000000"), "Colour painted over masked elements")
	flag.DurationVar(&delay, "delay", config.EnvOrDefault("DELAY", 3*time.Second), "Delay before capturing")
	flag.IntVar(&viewportWidth, "viewport-width", config.EnvOrDefault("VIEWPORT_WIDTH", 1920), "Viewport width in pixels")
	flag.IntVar(&viewportHeight, "viewport-height", config.EnvOrDefault("VIEWPORT_HEIGHT", 1080), "Viewport height in pixels")
	flag.StringVar(&userAgent, "user-agent", config.EnvOrDefault("USER_AGENT", ""), "User-Agent string to use for requests")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", config.EnvOrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.Var(&headers, "H", "Add HTTP header (can be used multiple times, e.g., -H 'Accept: text/html' -H 'Authorization: Bearer token')")

	flag.Parse()

	args := flag.Args()
	if len(args) < 3 {
		log.Fatalf("usage: capture [flags] <url> <specDirectory> <fileName>")
	}
	url := args[0]
	specDirectory := args[1]
	fileName := args[2]

	ctx := context.Background()

	s, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: root,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	playwrightConfig := capture.DefaultPlaywrightConfig()
	playwrightConfig.Delay = delay
	playwrightConfig.MaskColor = maskColor
	playwrightConfig.UserAgent = userAgent
	playwrightConfig.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	if display := os.Getenv("DISPLAY"); display != "" {
		playwrightConfig.Headless = false
	}
	if viewportWidth > 0 {
		playwrightConfig.ViewportWidth = viewportWidth
	}
	if viewportHeight > 0 {
		playwrightConfig.ViewportHeight = viewportHeight
	}

	capturer, err := capture.NewPlaywrightCapturer(ctx, playwrightConfig)
	if err != nil {
		log.Fatalf("Failed to create capturer: %v", err)
	}

	result, err := capturer.Capture(ctx, url, capture.CaptureOptions{
		Headers:       capture.ParseHeaders(headers),
		MaskSelectors: capture.ParseSelectors(maskSelectors),
	})
	if err != nil {
		log.Fatalf("Failed to capture screenshot: %v", err)
	}

	path, err := capture.Save(ctx, s, layout.New(root, "", ""), specDirectory, fileName, result)
	if err != nil {
		log.Fatalf("Failed to save screenshot: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(CaptureOutput{
		ScreenshotPath: path,
	}); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}
