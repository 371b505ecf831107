// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rescan asks a model to remediate Terraform files using their KICS
// scan results, one request per file.
package rescan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nogoodai/msise-ise-5901/internal/dispatch"
)

// ErrModelNotFound indicates no line of the model file matches a file's
// model base name.
var ErrModelNotFound = errors.New("model not found in model file")

const rescannedMarker = "rescanned"

// Dispatcher performs one completion. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	DispatchOnce(ctx context.Context, model string, temperature float64, system, user string) dispatch.Result
}

// Params configure one rescan pass.
type Params struct {
	// Dir holds the *.tf files and their <name>.json/results.json reports.
	Dir string
	// OutputDir receives <name>.rescanned.tf files.
	OutputDir string
	// SystemPrompt is sent unchanged with every file.
	SystemPrompt string
	// ModelFile lists full model references, one per line.
	ModelFile   string
	Temperature float64
}

// Summary counts what a pass did.
type Summary struct {
	Saved   int
	Skipped int
	Failed  int
}

// Rescanner remediates Terraform files through a Dispatcher.
type Rescanner struct {
	dispatcher Dispatcher
	stdout     io.Writer
	stderr     io.Writer
}

// New creates a Rescanner printing to stdout and stderr.
func New(d Dispatcher, stdout, stderr io.Writer) *Rescanner {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Rescanner{dispatcher: d, stdout: stdout, stderr: stderr}
}

// OutputPath returns where the remediated version of tfName is written.
func OutputPath(outputDir, tfName string) string {
	return filepath.Join(outputDir, tfName+".rescanned.tf")
}

// ModelBase returns the part of a file name before its first "_".
func ModelBase(tfName string) string {
	base, _, _ := strings.Cut(tfName, "_")
	return base
}

// BuildUserPrompt wraps a Terraform file and its scan report in the tags
// the remediation prompt refers to.
func BuildUserPrompt(tf, scanResults string) string {
	return "<original_tf>\n" + tf + "\n</original_tf>\n" +
		"<scan_results>\n" + scanResults + "\n</scan_results>\n"
}

// FindModel returns the first line of the model file at path that contains
// base, trimmed of surrounding whitespace.
func FindModel(path, base string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); strings.Contains(line, base) {
			return strings.TrimSpace(line), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: %q", ErrModelNotFound, base)
}

// ListTerraformFiles returns the names of *.tf files directly in dir,
// sorted.
func ListTerraformFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".tf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Run remediates every eligible *.tf file in p.Dir. Files already
// rescanned, or whose output exists, are skipped. Per-file failures are
// reported and skipped; the returned error is for directory or write
// failures.
func (r *Rescanner) Run(ctx context.Context, p Params) (Summary, error) {
	var summary Summary
	dir := p.Dir
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return summary, fmt.Errorf("failed to create output directory: %w", err)
	}
	files, err := ListTerraformFiles(dir)
	if err != nil {
		return summary, err
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		out := OutputPath(p.OutputDir, name)
		if strings.Contains(name, rescannedMarker) || fileExists(out) {
			fmt.Fprintf(r.stdout, "%s already exists or contains '%s'. Skipping.\n", out, rescannedMarker)
			summary.Skipped++
			continue
		}

		base := ModelBase(name)
		model, err := FindModel(p.ModelFile, base)
		if err != nil {
			if errors.Is(err, ErrModelNotFound) {
				fmt.Fprintf(r.stderr, "Model base '%s' not found in model file.\n", base)
				summary.Skipped++
				continue
			}
			return summary, fmt.Errorf("failed to read model file: %w", err)
		}

		user, err := r.userPrompt(dir, name)
		if err != nil {
			fmt.Fprintf(r.stderr, "Error: %v\n", err)
			summary.Failed++
			continue
		}

		result := r.dispatcher.DispatchOnce(ctx, model, p.Temperature, p.SystemPrompt, user)
		if !result.OK() {
			summary.Failed++
			continue
		}
		if result.Text == "" {
			fmt.Fprintf(r.stderr, "Error: empty response for %s\n", name)
			summary.Failed++
			continue
		}
		if err := dispatch.Save(out, result.Text); err != nil {
			return summary, err
		}
		fmt.Fprintf(r.stdout, "Response saved to %s\n", out)
		summary.Saved++
	}
	return summary, nil
}

func (r *Rescanner) userPrompt(dir, name string) (string, error) {
	tfPath := filepath.Join(dir, name)
	tf, err := os.ReadFile(tfPath)
	if err != nil {
		return "", err
	}
	report, err := os.ReadFile(filepath.Join(tfPath+".json", "results.json"))
	if err != nil {
		return "", fmt.Errorf("scan results for %s: %w", name, err)
	}
	return BuildUserPrompt(string(tf), string(report)), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
