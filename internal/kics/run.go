// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kics

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Runner performs the full clean, scan and summarize sequence.
type Runner struct {
	Scanner *Scanner
	// Out receives progress lines (default os.Stdout).
	Out io.Writer
}

// ResultsPath returns the CSV summary path for input.
func ResultsPath(input string) string {
	return input + ".results"
}

// Run cleans input, scans it against queries and writes the summary CSV.
// Nothing is modified when input is not a file or queries is not a
// directory.
func (r *Runner) Run(ctx context.Context, input, queries string) error {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	scanner := r.Scanner
	if scanner == nil {
		scanner = &Scanner{}
	}

	if info, err := os.Stat(input); err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("the file %s does not exist", input)
	}
	if info, err := os.Stat(queries); err != nil || !info.IsDir() {
		return fmt.Errorf("the directory %s does not exist", queries)
	}

	if err := CleanFile(input); err != nil {
		return err
	}

	result, err := scanner.Scan(ctx, input, queries)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "KICS scan completed successfully. Results saved to %s\n", result.OutputDir)

	reportPath := filepath.Join(result.OutputDir, "results.json")
	counters, err := ReadSeverityCounters(reportPath)
	if err != nil {
		return fmt.Errorf("failed to read severity counters: %w", err)
	}

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	lloc, err := CountLogicalLines(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to count lines of %s: %w", input, err)
	}

	resultsPath := ResultsPath(input)
	if err := WriteResults(resultsPath, counters, lloc); err != nil {
		return fmt.Errorf("failed to write %s: %w", resultsPath, err)
	}
	fmt.Fprintf(out, "Severity counters saved to %s\n", resultsPath)
	return nil
}
