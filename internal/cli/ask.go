// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/nogoodai/msise-ise-5901/internal/dispatch"
	"github.com/nogoodai/msise-ise-5901/internal/llm"
)

// DefaultAskModel is used by ask when --model is not given.
const DefaultAskModel = "openai:gpt-4o"

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()-2),
	)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// HandleAsk handles "llmscan ask": one request, reply printed to stdout.
func (e *Env) HandleAsk(ctx context.Context, args Args) error {
	if len(args.Positional) != 2 {
		return newUsageError("ask", askUsage, 2, len(args.Positional))
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	model := args.Model
	if model == "" {
		model = DefaultAskModel
	}
	temperature, err := temperatureFor(args.Temperature, cfg)
	if err != nil {
		return err
	}
	maxTokens := cfg.Dispatch.MaxTokens
	if args.MaxTokens != "" {
		if maxTokens, err = ParseCount(args.MaxTokens, "max-tokens"); err != nil {
			return err
		}
	}

	prompts, err := dispatch.LoadPrompts(args.Positional[0], args.Positional[1])
	if err != nil {
		return NewCommandError("ask", "load prompts", err)
	}

	out := e.stdout()
	fmt.Fprintf(out, "%s %s\n", RenderConditional(LabelStyle, "Using model:"), model)
	if args.Verbose {
		fmt.Fprintf(e.stderr(), "%s temperature %g, max tokens %s\n",
			RenderConditional(DimStyle, "Settings:"), temperature, formatTokens(maxTokens))
	}

	text, err := e.completer(cfg, args.Verbose).Complete(ctx, llm.Request{
		Model:       model,
		Messages:    []llm.Message{llm.SystemMessage(prompts.System), llm.UserMessage(prompts.User)},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return NewCommandError("ask", "get a response ("+llm.KindOf(err).String()+")", err)
	}
	text = strings.TrimSpace(text)

	fmt.Fprintln(out)
	fmt.Fprintln(out, RenderConditional(SuccessStyle, "Response:"))
	if IsTerminalWriter(out) && ColorsEnabled() {
		fmt.Fprintln(out, renderMarkdown(text))
	} else {
		fmt.Fprintln(out, text)
	}
	return nil
}

// formatTokens renders a max-tokens setting.
func formatTokens(n int) string {
	if n <= 0 {
		return "provider default"
	}
	return strconv.Itoa(n)
}
