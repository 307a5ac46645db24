// Package main provides the entry point for the pixelveil CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pixelveil/pixelveil/internal/config"
	"github.com/pixelveil/pixelveil/internal/detect"
)

// NewRootCmd creates the root command for pixelveil.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pixelveil",
		Short: "Find and irreversibly obscure faces in still images",
		Long: `Pixelveil detects faces in still images and redacts them.

Detection runs several strategies (model ensemble, scale pyramid,
adaptive tiling, preprocessing variants) and fuses their candidates into
a single deduplicated region list. Redaction blurs, pixelates, or blacks
out each region; a region whose transform fails is blacked out instead,
so no detected face ever survives redaction.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("cascade-dir", "cascade",
		"Directory holding the detection cascade files")
	cmd.PersistentFlags().String("tuning", "",
		"Optional YAML file overriding pipeline tuning values")

	// Add subcommands
	cmd.AddCommand(NewDetectCmd())
	cmd.AddCommand(NewRedactCmd())
	cmd.AddCommand(NewModelsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the CLI logger from the verbose flag.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadTuning resolves the effective tuning: defaults, overlaid with the
// optional YAML file from the --tuning flag.
func loadTuning(cmd *cobra.Command) (config.Tuning, error) {
	path, _ := cmd.Flags().GetString("tuning")
	if path == "" {
		return config.DefaultTuning(), nil
	}
	return config.LoadTuning(path)
}

// buildRegistry loads the detector registry from the cascade directory.
func buildRegistry(cmd *cobra.Command, logger *slog.Logger) *detect.Registry {
	dir, _ := cmd.Flags().GetString("cascade-dir")
	return detect.NewPigoRegistry(dir, logger)
}

// parseSensitivity resolves the --sensitivity flag.
func parseSensitivity(cmd *cobra.Command) (config.SensitivityLevel, error) {
	raw, _ := cmd.Flags().GetString("sensitivity")
	level, ok := config.ParseSensitivity(raw)
	if !ok {
		return level, fmt.Errorf("unknown sensitivity %q (want fast, balanced, or thorough)", raw)
	}
	return level, nil
}
