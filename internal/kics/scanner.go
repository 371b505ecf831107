// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrScannerFailed indicates KICS could not complete a scan.
var ErrScannerFailed = errors.New("KICS scan failed")

// KICS encodes findings in its exit status: 0 means no results, and codes
// in this range mean the scan finished with findings of some severity.
const (
	minFindingsExit = 2
	maxFindingsExit = 125
)

// Scanner runs the kics executable.
type Scanner struct {
	// Path is the kics executable (default "kics").
	Path string
	// Timeout bounds one scan (0 = no limit beyond ctx).
	Timeout time.Duration
}

// ScanResult describes a completed scan.
type ScanResult struct {
	// OutputDir is the directory KICS wrote its reports into.
	OutputDir string
	// ExitCode is the scanner's exit status (0 or a findings code).
	ExitCode int
	Duration time.Duration
}

// Scan runs "kics scan -p input -q queries -o input.json". Exit statuses 0
// and 2-125 count as a completed scan.
func (s *Scanner) Scan(ctx context.Context, input, queries string) (ScanResult, error) {
	path := s.Path
	if path == "" {
		path = "kics"
	}
	result := ScanResult{OutputDir: input + ".json"}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, "scan", "-p", input, "-q", queries, "-o", result.OutputDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%w: %w", ErrScannerFailed, ctxErr)
	}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode >= minFindingsExit && result.ExitCode <= maxFindingsExit {
			return result, nil
		}
		return result, fmt.Errorf("%w: exited with code %d: %s", ErrScannerFailed, result.ExitCode, strings.TrimSpace(stderr.String()))
	}
	return result, fmt.Errorf("%w: %w", ErrScannerFailed, err)
}
