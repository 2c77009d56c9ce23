package capture

import (
	"context"
	"fmt"
	"strings"
	"visual-regression/internal/layout"
	"visual-regression/internal/storage"
)

type CaptureResult struct {
	// Screenshot is a PNG encoded image
	Screenshot []byte
}

type CaptureOptions struct {
	// Headers are sent with every request the page makes
	Headers map[string]string
	// MaskSelectors are CSS selectors painted over before the screenshot is taken
	MaskSelectors []string
}

type Capturer interface {
	Capture(ctx context.Context, url string, captureOptions CaptureOptions) (*CaptureResult, error)
}

// Save writes result where the comparator expects the actual screenshot for
// name and returns the storage path.
func Save(ctx context.Context, s storage.Storage, l layout.Layout, specDirectory string, name string, result *CaptureResult) (string, error) {
	key := l.Actual(specDirectory, layout.SanitizeFileName(name))
	path, err := s.Put(ctx, key, result.Screenshot)
	if err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}

// ParseHeaders turns "Key: Value" strings into a header map. Entries without
// a colon are ignored.
func ParseHeaders(headers []string) map[string]string {
	if len(headers) == 0 {
		return nil
	}

	m := make(map[string]string, len(headers))
	for _, header := range headers {
		key, value, ok := strings.Cut(header, ":")
		if !ok {
			continue
		}
		m[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return m
}

// ParseSelectors splits a comma separated selector list.
func ParseSelectors(s string) []string {
	var selectors []string
	for _, selector := range strings.Split(s, ",") {
		if selector = strings.TrimSpace(selector); selector != "" {
			selectors = append(selectors, selector)
		}
	}
	return selectors
}
