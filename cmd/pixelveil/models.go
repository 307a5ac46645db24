package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewModelsCmd creates the models command.
func NewModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the registered detection models",
		Long: `Models lists every registered detector with its priority, what it is
best suited for, and whether its cascade loaded from the cascade
directory.`,
		Args: cobra.NoArgs,
		RunE: runModelsCmd,
	}
}

// runModelsCmd executes the models command.
func runModelsCmd(cmd *cobra.Command, _ []string) error {
	registry := buildRegistry(cmd, newLogger(cmd))

	out, err := json.MarshalIndent(registry.Descriptors(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode descriptors: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
