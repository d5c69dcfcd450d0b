package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <screenshot.png>",
	Short: "Run metric extraction on a saved screenshot and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var extractShowPrompt bool

func init() {
	extractCmd.Flags().BoolVar(&extractShowPrompt, "show-prompt", false, "print the prompt sent to the model before the result")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := LoadConfig(configFile, envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Logs go to stderr so stdout carries only the result.
	log := newLogger(cfg.Log, cmd.ErrOrStderr())

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read screenshot: %w", err)
	}

	extractor, err := newExtractor(ctx, cfg.Extraction, log)
	if err != nil {
		return err
	}

	if extractShowPrompt {
		fmt.Fprintln(cmd.ErrOrStderr(), extractor.Prompt())
	}

	result := extractor.Extract(ctx, image)
	if result.Empty() {
		return fmt.Errorf("no valid metrics extracted from %s", args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
