// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and dispatch for llmscan.

package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/nogoodai/msise-ise-5901/internal/config"
	"github.com/nogoodai/msise-ise-5901/internal/dispatch"
	"github.com/nogoodai/msise-ise-5901/internal/llm"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdNone Command = iota
	CmdRun
	CmdAsk
	CmdScan
	CmdRescan
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdRun:
		return "run"
	case CmdAsk:
		return "ask"
	case CmdScan:
		return "scan"
	case CmdRescan:
		return "rescan"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return ""
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Name is the command word as typed.
	Name string

	// Global flags
	ConfigPath string
	Verbose    bool

	// Command-specific
	Model       string
	Temperature string // raw; validated by the handler
	MaxTokens   string // raw; validated by the handler
	Dir         string

	// Positional holds the arguments after the command word.
	Positional []string
}

// Usage lines, one per command.
const (
	runUsage    = "llmscan run <system_prompt_path> <user_prompt_path> <output_dir> <call_count> <model>"
	askUsage    = "llmscan ask [--model M] [--temperature F] [--max-tokens N] <system_prompt_file> <user_prompt_file>"
	scanUsage   = "llmscan scan <input_terraform_file> <queries_path>"
	rescanUsage = "llmscan rescan <system_prompt_file> <output_dir> <model_file> <temperature> [--dir DIR]"
)

const usageBanner = "llmscan - batch LLM prompting and KICS scanning for Terraform experiments"

const usageText = `
Usage:
  %s
  %s
  %s
  %s
  llmscan version
  llmscan help

Commands:
  run       Send one prompt pair <call_count> times; save each reply as
            <output_dir>/<model>_response_<YYYY-MM-DD_HH-MM-SS>.txt
  ask       Send one prompt pair once and print the reply
  scan      Strip markdown from a generated .tf file, run KICS on it, and
            write severity counts plus logical lines to <file>.results
  rescan    Ask a model to fix every scanned .tf file in a directory,
            writing <output_dir>/<file>.rescanned.tf

Model references:
  provider:model   e.g. openai:gpt-4o, anthropic:claude-3-5-sonnet-20241022,
                   ollama:llama3:8b, xai:grok-2, groq:llama-3.1-70b-versatile
  model            uses default_provider from the config file

Flags:
  --temperature F  Sampling temperature (default from config, 0.7)
  --model M        Model for ask (default openai:gpt-4o)
  --max-tokens N   Completion limit for ask (default from config, 150)
  --dir DIR        Directory of .tf files for rescan (default .)
  --config PATH    Config file (default $LLMSCAN_CONFIG or ~/.llmscan/config.toml)
  -v, --verbose    Trace API requests on stderr

Environment:
  OPENAI_API_KEY, ANTHROPIC_API_KEY, XAI_API_KEY, OPENROUTER_API_KEY,
  GROQ_API_KEY, MISTRAL_API_KEY, GEMINI_API_KEY
  LLMSCAN_DEFAULT_PROVIDER, LLMSCAN_KICS_PATH, LLMSCAN_OLLAMA_URL

Examples:
  llmscan run system.txt s3.txt out/ 10 openai:gpt-4o
  llmscan run system.txt s3.txt out/ 5 ollama:llama3:8b --temperature 0.2
  llmscan ask --model anthropic:claude-3-5-sonnet-20241022 system.txt s3.txt
  llmscan scan out/gpt-4o_response_2025-01-01_12-00-00.tf ./assets/queries
  llmscan rescan fix_prompt.txt rescanned/ models.txt 0.7 --dir out/

Version: %s
`

// PrintUsage writes the usage/help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, RenderConditional(TitleStyle, usageBanner))
	fmt.Fprintf(w, usageText, runUsage, askUsage, scanUsage, rescanUsage, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "llmscan version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// boolFlagNames never consume the following argument.
var boolFlagNames = []string{"verbose", "v", "help", "h", "version"}

// Parse parses command-line arguments (without the program name).
func Parse(argv []string) (Command, Args) {
	parser := NewArgParser(argv, boolFlagNames...)

	args := Args{
		ConfigPath:  parser.Flag("config"),
		Verbose:     parser.BoolFlag("verbose") || parser.BoolFlag("v"),
		Model:       parser.Flag("model"),
		Temperature: parser.Flag("temperature"),
		MaxTokens:   parser.Flag("max-tokens"),
		Dir:         parser.Flag("dir"),
	}

	if parser.BoolFlag("version") {
		return CmdVersion, args
	}
	if parser.BoolFlag("help") || parser.BoolFlag("h") {
		return CmdHelp, args
	}
	if parser.PositionalCount() == 0 {
		return CmdNone, args
	}

	args.Name = parser.Positional(0)
	args.Positional = parser.PositionalFrom(1)

	switch strings.ToLower(args.Name) {
	case "run":
		return CmdRun, args
	case "ask":
		return CmdAsk, args
	case "scan":
		return CmdScan, args
	case "rescan":
		return CmdRescan, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		return CmdUnknown, args
	}
}

// =============================================================================
// EXECUTION ENVIRONMENT
// =============================================================================

// Env carries the output streams and collaborators used by handlers.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// NewCompleter builds the completion client; nil uses llm.NewClient.
	NewCompleter func(cfg *config.Config, logger *log.Logger) dispatch.Completer
}

// DefaultEnv returns an Env bound to the process streams.
func DefaultEnv() *Env {
	return &Env{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *Env) stdout() io.Writer {
	if e.Stdout == nil {
		return os.Stdout
	}
	return e.Stdout
}

func (e *Env) stderr() io.Writer {
	if e.Stderr == nil {
		return os.Stderr
	}
	return e.Stderr
}

// completer returns the client for cfg, tracing to stderr when verbose.
func (e *Env) completer(cfg *config.Config, verbose bool) dispatch.Completer {
	logger := log.New(io.Discard, "", 0)
	if verbose {
		logger = log.New(e.stderr(), "", log.LstdFlags)
	}
	if e.NewCompleter != nil {
		return e.NewCompleter(cfg, logger)
	}
	return llm.NewClient(cfg, llm.WithLogger(logger))
}

// loadConfig loads the config selected by --config or the environment.
func loadConfig(args Args) (*config.Config, error) {
	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}

// Execute runs cmd.
func (e *Env) Execute(ctx context.Context, cmd Command, args Args) error {
	switch cmd {
	case CmdRun:
		return e.HandleRun(ctx, args)
	case CmdAsk:
		return e.HandleAsk(ctx, args)
	case CmdScan:
		return e.HandleScan(ctx, args)
	case CmdRescan:
		return e.HandleRescan(ctx, args)
	case CmdVersion:
		PrintVersion(e.stdout())
		return nil
	case CmdHelp:
		PrintUsage(e.stdout())
		return nil
	case CmdUnknown:
		return &UsageError{Reason: fmt.Sprintf("unknown command %q", args.Name), Usage: "llmscan help"}
	default:
		PrintUsage(e.stderr())
		return &UsageError{Reason: "no command given"}
	}
}

// Main parses argv, runs the command and returns the process exit code.
// Errors are written to the Env's stderr.
func Main(ctx context.Context, argv []string, env *Env) int {
	if env == nil {
		env = DefaultEnv()
	}
	cmd, args := Parse(argv)
	err := env.Execute(ctx, cmd, args)
	DisplayError(env.stderr(), err)
	return GetExitCode(err)
}
