package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/extract"
)

// newBatchCmd creates the batch command.
func newBatchCmd() *cobra.Command {
	var (
		inputDir string
		noColor  bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process a directory of per-page OCR word files",
		Long: `Batch reads every .json and .txt file in a directory as one page
of OCR words, extracts all pages concurrently, and prints per-page results.
Files are processed in name order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := NewUI(outputJSON, noColor)

			stop := ui.StartSpinner("Scanning " + inputDir)
			files, err := listPageFiles(inputDir)
			stop()
			if err != nil {
				return err
			}
			if len(files) == 0 {
				ui.Warning("No page files found in %s", inputDir)
				return nil
			}

			pages := make([][]string, len(files))
			for i, f := range files {
				words, err := readWords(f)
				if err != nil {
					return fmt.Errorf("read page %s: %w", f, err)
				}
				pages[i] = words
			}

			engine, err := buildEngine()
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			batchCfg := extract.BatchConfig{MaxWorkers: cfg.Extraction.MaxWorkers}
			if !outputJSON {
				bar = newPageProgressBar(len(pages))
				batchCfg.OnPage = func(extract.PageResult) {
					_ = bar.Add(1)
				}
			}

			processor := extract.NewBatchProcessor(logger, engine, batchCfg)
			results, err := processor.ProcessPages(cmd.Context(), pages)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return fmt.Errorf("batch cancelled: %w", err)
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(results)
			}

			var equipment, lines, specs int
			for _, res := range results {
				equipment += len(res.Tags.Equipment)
				lines += len(res.Tags.Lines)
				specs += len(res.Tags.Specs)
				ui.Info("%s: page %d %s", filepath.Base(files[res.Page-1]), res.Page, res.Tags)
			}

			ui.Success("Processed %d pages: %d equipment, %d lines, %d specs",
				len(results), equipment, lines, specs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "dir", "d", ".", "directory of page word files")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

// listPageFiles returns the .json/.txt files in dir, sorted by name so page
// ordering follows file naming.
func listPageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json", ".txt":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// newPageProgressBar builds the batch progress bar.
func newPageProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription("Extracting pages"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}
