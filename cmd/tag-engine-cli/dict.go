package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/extract"
)

// newDictCmd creates the dict command.
func newDictCmd() *cobra.Command {
	var (
		overlayPath string
		noColor     bool
	)

	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Validate a dictionary overlay against the built-in vocabulary",
		Long: `Dict loads the built-in dictionaries, merges the given YAML
overlay, and reports the resulting table sizes. Use it to catch overlay
syntax errors before deploying them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := NewUI(outputJSON, noColor)

			path := overlayPath
			if path == "" {
				path = cfg.Extraction.DictionaryPath
			}

			dict, err := extract.LoadDictionaries(path)
			if err != nil {
				ui.Error("Dictionary overlay rejected: %v", err)
				return err
			}

			stats := dict.Stats()
			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(stats)
			}

			if path == "" {
				ui.Info("No overlay configured, built-in vocabulary only")
			} else {
				ui.Success("Overlay %s merged cleanly", path)
			}
			ui.Info("  prefixes:          %d", stats.Prefixes)
			ui.Info("  compound keywords: %d", stats.CompoundKeywords)
			ui.Info("  single keywords:   %d", stats.SingleKeywords)
			ui.Info("  units:             %d", stats.Units)
			return nil
		},
	}

	cmd.Flags().StringVarP(&overlayPath, "overlay", "o", "", "overlay file (default: configured dictionary_path)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}
