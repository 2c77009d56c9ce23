package config_test

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
	"visual-regression/internal/config"

	"github.com/google/go-cmp/cmp"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("VR_TEST_FLOAT", "0.25")
	t.Setenv("VR_TEST_BOOL", "true")
	t.Setenv("VR_TEST_DURATION", "3s")
	t.Setenv("VR_TEST_BROKEN", "not-a-number")

	if diff := cmp.Diff(0.25, config.EnvOrDefault("VR_TEST_FLOAT", 0.1)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(true, config.EnvOrDefault("VR_TEST_BOOL", false)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(3*time.Second, config.EnvOrDefault("VR_TEST_DURATION", time.Second)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(42, config.EnvOrDefault("VR_TEST_BROKEN", 42)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("fallback", config.EnvOrDefault("VR_TEST_UNSET", "fallback")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("VR_TEST_FROM_FILE=from-file\nVR_TEST_PRESET=from-file\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("VR_TEST_PRESET", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("VR_TEST_FROM_FILE")
	})

	if err := config.LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff("from-file", os.Getenv("VR_TEST_FROM_FILE")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("from-env", os.Getenv("VR_TEST_PRESET")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestParseColor(t *testing.T) {
	type in struct {
		first string
	}

	type want struct {
		first color.NRGBA
		err   bool
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"#ff0000",
			},
			want{
				color.NRGBA{R: 255, A: 255},
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"#ff0",
			},
			want{
				color.NRGBA{R: 255, G: 255, A: 255},
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				"red",
			},
			want{
				color.NRGBA{},
				true,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := config.ParseColor(in.first)
			if diff := cmp.Diff(want.err, err != nil); diff != "" {
				t.Errorf("error (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.first, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
