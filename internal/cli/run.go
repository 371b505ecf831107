// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/nogoodai/msise-ise-5901/internal/config"
	"github.com/nogoodai/msise-ise-5901/internal/dispatch"
	"github.com/nogoodai/msise-ise-5901/internal/kics"
	"github.com/nogoodai/msise-ise-5901/internal/rescan"
)

// temperatureFor returns the --temperature value or the configured default.
func temperatureFor(raw string, cfg *config.Config) (float64, error) {
	if raw == "" {
		return cfg.Dispatch.Temperature, nil
	}
	return ParseFloatArg(raw, "temperature")
}

// HandleRun handles "llmscan run". All argument checks happen before any
// file is read or request is made.
func (e *Env) HandleRun(ctx context.Context, args Args) error {
	if len(args.Positional) != 5 {
		return newUsageError("run", runUsage, 5, len(args.Positional))
	}
	systemPath, userPath, outputDir := args.Positional[0], args.Positional[1], args.Positional[2]
	model := args.Positional[4]

	calls, err := ParseCount(args.Positional[3], "call_count")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	temperature, err := temperatureFor(args.Temperature, cfg)
	if err != nil {
		return err
	}

	prompts, err := dispatch.LoadPrompts(systemPath, userPath)
	if err != nil {
		return NewCommandError("run", "load prompts", err)
	}

	d := dispatch.New(e.completer(cfg, args.Verbose), dispatch.WithOutput(e.stdout(), e.stderr()))
	return d.Run(ctx, dispatch.RunParams{
		Prompts:     prompts,
		OutputDir:   outputDir,
		Calls:       calls,
		Model:       model,
		Temperature: temperature,
	})
}

// HandleScan handles "llmscan scan".
func (e *Env) HandleScan(ctx context.Context, args Args) error {
	if len(args.Positional) != 2 {
		return newUsageError("scan", scanUsage, 2, len(args.Positional))
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	runner := &kics.Runner{
		Scanner: &kics.Scanner{Path: cfg.Scan.KICSPath, Timeout: cfg.ScanTimeout()},
		Out:     e.stdout(),
	}
	if err := runner.Run(ctx, args.Positional[0], args.Positional[1]); err != nil {
		return NewCommandError("scan", "scan "+args.Positional[0], err)
	}
	return nil
}

// HandleRescan handles "llmscan rescan".
func (e *Env) HandleRescan(ctx context.Context, args Args) error {
	if len(args.Positional) != 4 {
		return newUsageError("rescan", rescanUsage, 4, len(args.Positional))
	}
	systemPath, outputDir, modelFile := args.Positional[0], args.Positional[1], args.Positional[2]

	temperature, err := ParseFloatArg(args.Positional[3], "temperature")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	system, err := os.ReadFile(systemPath)
	if err != nil {
		return NewCommandError("rescan", "read system prompt", err)
	}

	d := dispatch.New(e.completer(cfg, args.Verbose), dispatch.WithOutput(e.stdout(), e.stderr()))
	summary, err := rescan.New(d, e.stdout(), e.stderr()).Run(ctx, rescan.Params{
		Dir:          args.Dir,
		OutputDir:    outputDir,
		SystemPrompt: string(system),
		ModelFile:    modelFile,
		Temperature:  temperature,
	})
	if err != nil {
		return NewCommandError("rescan", "rescan", err)
	}

	status := "ok"
	if summary.Failed > 0 {
		status = "warn"
	}
	fmt.Fprintf(e.stderr(), "%s %d saved, %d skipped, %d failed\n",
		RenderStatus(status), summary.Saved, summary.Skipped, summary.Failed)
	return nil
}
