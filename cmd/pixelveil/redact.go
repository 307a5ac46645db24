package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pixelveil/pixelveil/internal/redact"
	"github.com/pixelveil/pixelveil/internal/surface"
)

// NewRedactCmd creates the redact command.
func NewRedactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redact <image>",
		Short: "Detect faces and write a redacted copy of the image",
		Long: `Redact runs the full detection pipeline over one image, obscures every
detected region with the chosen method, and writes the result. The output
format follows the output file extension: .png writes PNG, everything
else writes JPEG.

A region whose transform fails is blacked out instead, so no detected
face survives redaction.

Examples:
  # Blur every detected face
  pixelveil redact --output out.jpg photo.jpg

  # Pixelate at thorough sensitivity
  pixelveil redact --output out.png --method pixelate --sensitivity thorough photo.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: runRedactCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (required)")
	cmd.Flags().StringP("method", "m", "blur",
		"Redaction method: blur, pixelate, or blackout")
	cmd.Flags().StringP("sensitivity", "s", "balanced",
		"Detection effort: fast, balanced, or thorough")
	cmd.Flags().IntP("quality", "q", 90, "JPEG quality (1-100)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// runRedactCmd executes the redact command.
func runRedactCmd(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	rawMethod, _ := cmd.Flags().GetString("method")
	method, ok := redact.ParseMethod(rawMethod)
	if !ok {
		return fmt.Errorf("unknown method %q (want blur, pixelate, or blackout)", rawMethod)
	}
	level, err := parseSensitivity(cmd)
	if err != nil {
		return err
	}
	tuning, err := loadTuning(cmd)
	if err != nil {
		return err
	}

	img, err := surface.LoadFile(args[0])
	if err != nil {
		return err
	}

	regions, err := detectRegions(cmd, logger, img, level, tuning)
	if err != nil {
		return err
	}
	logger.Info("redacting", "regions", len(regions), "method", method.String())

	out := redact.NewRenderer(logger).Render(img, regions, method)

	output, _ := cmd.Flags().GetString("output")
	quality, _ := cmd.Flags().GetInt("quality")

	var data []byte
	if strings.EqualFold(filepath.Ext(output), ".png") {
		data, err = surface.EncodePNG(out)
	} else {
		data, err = surface.EncodeJPEG(out, quality)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "redacted %d region(s) -> %s\n", len(regions), output)
	return nil
}
