package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/extract"
)

// newExtractCmd creates the extract command.
func newExtractCmd() *cobra.Command {
	var (
		inputFile string
		noColor   bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract tags, line numbers, and specs from one page of OCR words",
		Long: `Extract reads OCR words from a file (JSON array or one word per
line) or stdin and prints the classified result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readWords(inputFile)
			if err != nil {
				return err
			}

			engine, err := buildEngine()
			if err != nil {
				return err
			}

			tags := engine.Extract(words)

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(struct {
					ExtractionID string `json:"extractionId"`
					extract.ParsedTags
				}{
					ExtractionID: extract.ExtractionID(words).String(),
					ParsedTags:   tags,
				})
			}

			printTags(NewUI(false, noColor), tags, len(words))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "input file (default: stdin)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

// buildEngine assembles the engine from the loaded configuration.
func buildEngine() (*extract.Engine, error) {
	dict, err := extract.LoadDictionaries(cfg.Extraction.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("load dictionaries: %w", err)
	}

	return extract.NewEngine(dict, extract.Config{
		MergeLookahead:   cfg.Extraction.MergeLookahead,
		KeywordScanRange: cfg.Extraction.KeywordScanRange,
		UnitScanRange:    cfg.Extraction.UnitScanRange,
		MinLineLength:    cfg.Extraction.MinLineLength,
	}), nil
}

// readWords loads OCR words from path or stdin. A leading "[" selects the
// JSON array format, anything else is one word per line.
func readWords(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var words []string
		if err := json.Unmarshal([]byte(trimmed), &words); err != nil {
			return nil, fmt.Errorf("parse JSON word array: %w", err)
		}
		return words, nil
	}

	var words []string
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	for scanner.Scan() {
		if w := strings.TrimSpace(scanner.Text()); w != "" {
			words = append(words, w)
		}
	}
	return words, scanner.Err()
}

// printTags renders a colored human-readable summary.
func printTags(ui *UI, tags extract.ParsedTags, wordCount int) {
	ui.Success("Processed %d words (%s)", wordCount, tags)

	ui.Heading(fmt.Sprintf("Equipment (%d)", len(tags.Equipment)))
	for _, tag := range tags.Equipment {
		ui.Info("  %s", tag)
	}

	ui.Heading(fmt.Sprintf("Lines (%d)", len(tags.Lines)))
	for _, line := range tags.Lines {
		ui.Info("  %s", line)
	}

	ui.Heading(fmt.Sprintf("Specs (%d)", len(tags.Specs)))
	for _, spec := range tags.Specs {
		ui.Info("  %s  %s", spec.Display, spec.Tag)
	}
}
