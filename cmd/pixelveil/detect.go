package main

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pixelveil/pixelveil/internal/candidate"
	"github.com/pixelveil/pixelveil/internal/config"
	"github.com/pixelveil/pixelveil/internal/fusion"
	"github.com/pixelveil/pixelveil/internal/surface"
)

// NewDetectCmd creates the detect command.
func NewDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Detect faces and print the fused regions as JSON",
		Long: `Detect runs the full detection pipeline over one image and prints the
fused region list as JSON, without redacting anything.

Examples:
  # Detect with the default balanced sensitivity
  pixelveil detect photo.jpg

  # Trade speed for recall
  pixelveil detect --sensitivity thorough photo.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: runDetectCmd,
	}

	cmd.Flags().StringP("sensitivity", "s", "balanced",
		"Detection effort: fast, balanced, or thorough")

	return cmd
}

// runDetectCmd executes the detect command.
func runDetectCmd(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

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
	logger.Debug("detection complete", "regions", len(regions))

	out, err := json.MarshalIndent(regions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode regions: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// detectRegions runs candidate generation and fusion over one image.
// Shared by the detect and redact commands.
func detectRegions(cmd *cobra.Command, logger *slog.Logger, img image.Image,
	level config.SensitivityLevel, tuning config.Tuning) ([]fusion.Region, error) {

	registry := buildRegistry(cmd, logger)
	generator := candidate.NewGenerator(registry, tuning, logger)
	engine := fusion.NewEngine(tuning, logger)

	sensitivity := level.Scalar()
	cands, err := generator.Generate(cmd.Context(), img, sensitivity)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return engine.Fuse(cands, bounds.Dx(), bounds.Dy(), sensitivity), nil
}
