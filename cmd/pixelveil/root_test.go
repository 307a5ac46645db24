package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixelveil/pixelveil/internal/detect"
	"github.com/pixelveil/pixelveil/internal/surface"
)

// writeTestImage writes a small JPEG to a temp directory and returns its
// path.
func writeTestImage(t *testing.T) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	data, err := surface.EncodeJPEG(img, 90)
	if err != nil {
		t.Fatalf("encode test image: %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test image: %v", err)
	}
	return path
}

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "pixelveil" {
			t.Errorf("expected use 'pixelveil', got %q", cmd.Use)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"detect": false, "redact": false, "models": false, "version": false}
		for _, sub := range cmd.Commands() {
			name := strings.Fields(sub.Use)[0]
			if _, ok := want[name]; ok {
				want[name] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("missing subcommand %q", name)
			}
		}
	})

	t.Run("has cascade-dir flag", func(t *testing.T) {
		t.Parallel()
		if cmd.PersistentFlags().Lookup("cascade-dir") == nil {
			t.Error("expected cascade-dir persistent flag")
		}
	})
}

// TestVersionCmd tests version output.
func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out.String(), "pixelveil version") {
		t.Errorf("unexpected version output: %q", out.String())
	}
}

// TestDetectCmd_NoCascades tests that detect fails cleanly when no
// detector model can be loaded.
func TestDetectCmd_NoCascades(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"detect", "--cascade-dir", t.TempDir(), writeTestImage(t)})

	err := cmd.Execute()
	if !errors.Is(err, detect.ErrNoDetectors) {
		t.Errorf("expected ErrNoDetectors, got %v", err)
	}
}

// TestDetectCmd_RejectsBadSensitivity tests flag validation.
func TestDetectCmd_RejectsBadSensitivity(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"detect", "--sensitivity", "extreme", writeTestImage(t)})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "sensitivity") {
		t.Errorf("expected sensitivity error, got %v", err)
	}
}

// TestRedactCmd_RejectsBadMethod tests flag validation.
func TestRedactCmd_RejectsBadMethod(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"redact", "--output", filepath.Join(t.TempDir(), "out.jpg"),
		"--method", "mosaic", writeTestImage(t),
	})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "method") {
		t.Errorf("expected method error, got %v", err)
	}
}

// TestRedactCmd_RequiresOutput tests that the output flag is mandatory.
func TestRedactCmd_RequiresOutput(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"redact", writeTestImage(t)})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error when --output is missing")
	}
}

// TestDetectCmd_MissingImage tests the file-not-found path.
func TestDetectCmd_MissingImage(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"detect", filepath.Join(t.TempDir(), "nope.jpg")})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing input image")
	}
}
