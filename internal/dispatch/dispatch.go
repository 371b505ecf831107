// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nogoodai/msise-ise-5901/internal/llm"
	"github.com/nogoodai/msise-ise-5901/internal/util"
)

// TimestampLayout formats the second-precision local time in output names.
const TimestampLayout = "2006-01-02_15-04-05"

// ErrNegativeCalls is returned by Run for a call count below zero.
var ErrNegativeCalls = errors.New("call count must not be negative")

// Completer performs one chat completion. *llm.Client implements it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Failure describes why a dispatch produced no text.
type Failure struct {
	Kind    llm.ErrorKind
	Message string
	Err     error
}

// Result is the outcome of one dispatch: Text when Failure is nil.
type Result struct {
	Text    string
	Failure *Failure
}

// OK reports whether the dispatch succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Dispatcher sends prompts through a Completer and records the results.
type Dispatcher struct {
	client Completer
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithOutput sets the streams for status lines and error lines.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(d *Dispatcher) {
		if stdout != nil {
			d.stdout = stdout
		}
		if stderr != nil {
			d.stderr = stderr
		}
	}
}

// WithClock replaces time.Now for output naming.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a Dispatcher writing to os.Stdout and os.Stderr.
func New(client Completer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: client,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchOnce sends [system, user] to model and returns the trimmed
// completion. Any failure is written to the error stream as
// "Error: <message>" and returned as a Failure; it never panics and never
// retries.
func (d *Dispatcher) DispatchOnce(ctx context.Context, model string, temperature float64, system, user string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("completion panicked: %v", r)
			result = d.fail(err)
		}
	}()

	text, err := d.client.Complete(ctx, llm.Request{
		Model:       model,
		Messages:    []llm.Message{llm.SystemMessage(system), llm.UserMessage(user)},
		Temperature: temperature,
	})
	if err != nil {
		return d.fail(err)
	}
	return Result{Text: strings.TrimSpace(text)}
}

func (d *Dispatcher) fail(err error) Result {
	fmt.Fprintf(d.stderr, "Error: %v\n", err)
	return Result{Failure: &Failure{
		Kind:    llm.KindOf(err),
		Message: err.Error(),
		Err:     err,
	}}
}

// OutputPath returns the output file for model in dir at the current time.
func (d *Dispatcher) OutputPath(model, dir string) string {
	return OutputPathAt(model, dir, d.now())
}

// OutputPath returns the output file for model in dir at time.Now().
func OutputPath(model, dir string) string {
	return OutputPathAt(model, dir, time.Now())
}

// OutputPathAt returns "<dir>/<fragment>_response_<YYYY-MM-DD_HH-MM-SS>.txt"
// where fragment is the model reference after its first ":" (or the whole
// reference when it has none) and t is rendered in local time.
func OutputPathAt(model, dir string, t time.Time) string {
	_, fragment := llm.ParseModel(model)
	name := fragment + "_response_" + t.Local().Format(TimestampLayout) + ".txt"
	return filepath.Join(dir, name)
}

// RunParams are the inputs of one batch.
type RunParams struct {
	Prompts     PromptPair
	OutputDir   string
	Calls       int
	Model       string
	Temperature float64
}

// Run creates OutputDir and dispatches Calls times in sequence, writing each
// successful completion verbatim to a fresh OutputPath and printing
// "Response saved to <path>". Failed dispatches are skipped. The returned
// error is non-nil only for filesystem failures, cancellation or a negative
// call count.
func (d *Dispatcher) Run(ctx context.Context, p RunParams) error {
	if p.Calls < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCalls, p.Calls)
	}
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for i := 0; i < p.Calls; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		result := d.DispatchOnce(ctx, p.Model, p.Temperature, p.Prompts.System, p.Prompts.User)
		if !result.OK() || result.Text == "" {
			continue
		}

		path := d.OutputPath(p.Model, p.OutputDir)
		if err := Save(path, result.Text); err != nil {
			return err
		}
		fmt.Fprintf(d.stdout, "Response saved to %s\n", path)
	}
	return nil
}

// Save writes text to path, replacing any existing file. A model fragment
// containing "/" names a subdirectory, which is created.
func Save(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := util.AtomicWriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
