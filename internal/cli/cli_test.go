// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogoodai/msise-ise-5901/internal/config"
	"github.com/nogoodai/msise-ise-5901/internal/dispatch"
	"github.com/nogoodai/msise-ise-5901/internal/llm"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name: "positionals only",
			args: []string{"run", "a", "b"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, 3, p.PositionalCount())
				assert.Equal(t, "b", p.Positional(2))
			},
		},
		{
			name: "flag with space value",
			args: []string{"ask", "--model", "ollama:llama3:8b", "s.txt"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "ollama:llama3:8b", p.Flag("model"))
				assert.Equal(t, []string{"ask", "s.txt"}, p.PositionalFrom(0))
			},
		},
		{
			name: "flag with equals",
			args: []string{"--temperature=0.2", "x"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "0.2", p.Flag("temperature"))
				assert.Equal(t, "x", p.Positional(0))
			},
		},
		{
			name: "declared bool does not consume next arg",
			args: []string{"run", "--verbose", "sys.txt"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("verbose"))
				assert.Equal(t, "sys.txt", p.Positional(1))
			},
		},
		{
			name: "bool with explicit value",
			args: []string{"--verbose=false"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.False(t, p.BoolFlag("verbose"))
				assert.True(t, p.HasFlag("verbose"))
			},
		},
		{
			name: "negative numbers are values",
			args: []string{"run", "-1", "--temperature", "-0.5"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "-1", p.Positional(1))
				assert.Equal(t, "-0.5", p.Flag("temperature"))
			},
		},
		{
			name: "double dash ends flags",
			args: []string{"run", "--", "--weird-name.txt"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "--weird-name.txt", p.Positional(1))
				assert.Empty(t, p.Flags())
			},
		},
		{
			name: "trailing flag is boolean",
			args: []string{"run", "--dry"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("dry"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, NewArgParser(tt.args, "verbose"))
		})
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	parser := NewArgParser([]string{})
	assert.Equal(t, 0, parser.PositionalCount())
	assert.Equal(t, "", parser.Positional(0))
	assert.Empty(t, parser.PositionalFrom(1))
	assert.Equal(t, "fallback", parser.FlagOrDefault("missing", "fallback"))
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"10", 10, false},
		{" 3 ", 3, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"2.5", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCount(tt.in, "call_count")
			if tt.wantErr {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "call_count", ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "no", "N", "0", "off"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

// =============================================================================
// PARSE TESTS (cli.go)
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantCommand Command
		validate    func(*testing.T, Args)
	}{
		{
			name:        "run",
			args:        []string{"run", "s.txt", "u.txt", "out", "3", "openai:gpt-4o", "--temperature", "0.1"},
			wantCommand: CmdRun,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, []string{"s.txt", "u.txt", "out", "3", "openai:gpt-4o"}, a.Positional)
				assert.Equal(t, "0.1", a.Temperature)
			},
		},
		{
			name:        "ask with flags",
			args:        []string{"ask", "--model", "xai:grok-2", "--max-tokens", "99", "-v", "s", "u"},
			wantCommand: CmdAsk,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, "xai:grok-2", a.Model)
				assert.Equal(t, "99", a.MaxTokens)
				assert.True(t, a.Verbose)
				assert.Equal(t, []string{"s", "u"}, a.Positional)
			},
		},
		{
			name:        "rescan with dir and config",
			args:        []string{"--config", "c.toml", "rescan", "p", "o", "m", "0.7", "--dir", "tf"},
			wantCommand: CmdRescan,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, "c.toml", a.ConfigPath)
				assert.Equal(t, "tf", a.Dir)
				assert.Len(t, a.Positional, 4)
			},
		},
		{name: "scan", args: []string{"scan", "a.tf", "q"}, wantCommand: CmdScan},
		{name: "version word", args: []string{"version"}, wantCommand: CmdVersion},
		{name: "version flag", args: []string{"--version"}, wantCommand: CmdVersion},
		{name: "help word", args: []string{"help"}, wantCommand: CmdHelp},
		{name: "help flag", args: []string{"run", "-h"}, wantCommand: CmdHelp},
		{name: "nothing", args: nil, wantCommand: CmdNone},
		{
			name:        "unknown",
			args:        []string{"frobnicate"},
			wantCommand: CmdUnknown,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, "frobnicate", a.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.args)
			assert.Equal(t, tt.wantCommand, cmd)
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", newUsageError("run", runUsage, 5, 3), ExitGeneralError},
		{"validation", NewValidationErrorWithExample("call_count", "x", "bad", "5"), ExitGeneralError},
		{"filesystem", fmt.Errorf("write: %w", os.ErrPermission), ExitGeneralError},
		{"config", &ConfigError{Err: errors.New("bad toml")}, ExitConfigError},
		{"cancelled", fmt.Errorf("run: %w", context.Canceled), ExitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	ForceColorsEnabled(false)

	var buf bytes.Buffer
	DisplayError(&buf, newUsageError("run", runUsage, 5, 3))
	assert.Equal(t, "Error: run: expected 5 arguments, got 3\nUsage: "+runUsage+"\n", buf.String())

	buf.Reset()
	DisplayError(&buf, nil)
	assert.Empty(t, buf.String())
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

type fakeCompleter struct {
	reply string
	err   error
	calls []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

// testEnv isolates a test from the user's config and streams.
func testEnv(t *testing.T, c dispatch.Completer) (*Env, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	ForceColorsEnabled(false)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", t.TempDir())
	t.Setenv(config.EnvConfigPath, "")
	for _, name := range []string{"LLMSCAN_DEFAULT_PROVIDER", "LLMSCAN_KICS_PATH", "LLMSCAN_OLLAMA_URL", "NO_COLOR", "FORCE_COLOR"} {
		t.Setenv(name, "")
	}

	var stdout, stderr bytes.Buffer
	env := &Env{Stdout: &stdout, Stderr: &stderr}
	if c != nil {
		env.NewCompleter = func(*config.Config, *log.Logger) dispatch.Completer { return c }
	}
	return env, &stdout, &stderr
}

func writePrompts(t *testing.T) (dir, sys, usr string) {
	t.Helper()
	dir = t.TempDir()
	sys = filepath.Join(dir, "system.txt")
	usr = filepath.Join(dir, "user.txt")
	require.NoError(t, os.WriteFile(sys, []byte("You write Terraform."), 0o644))
	require.NoError(t, os.WriteFile(usr, []byte("An S3 bucket."), 0o644))
	return dir, sys, usr
}

func TestMain_RunWrongArgCount(t *testing.T) {
	fake := &fakeCompleter{reply: "x"}
	env, stdout, stderr := testEnv(t, fake)
	dir, sys, usr := writePrompts(t)
	out := filepath.Join(dir, "out")

	code := Main(context.Background(), []string{"run", sys, usr, out}, env)

	assert.Equal(t, 1, code)
	assert.Empty(t, fake.calls)
	assert.NoDirExists(t, out)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "expected 5 arguments, got 3")
	assert.Contains(t, stderr.String(), "Usage: "+runUsage)
}

func TestMain_RunBadCallCount(t *testing.T) {
	for _, count := range []string{"many", "-2", "1.5"} {
		t.Run(count, func(t *testing.T) {
			fake := &fakeCompleter{reply: "x"}
			env, _, stderr := testEnv(t, fake)
			dir, sys, usr := writePrompts(t)
			out := filepath.Join(dir, "out")

			code := Main(context.Background(), []string{"run", sys, usr, out, count, "openai:gpt-4o"}, env)

			assert.Equal(t, 1, code)
			assert.Empty(t, fake.calls)
			assert.NoDirExists(t, out)
			assert.Contains(t, stderr.String(), "call_count")
		})
	}
}

func TestMain_RunMissingPrompt(t *testing.T) {
	fake := &fakeCompleter{reply: "x"}
	env, _, stderr := testEnv(t, fake)
	dir := t.TempDir()

	code := Main(context.Background(), []string{"run", filepath.Join(dir, "nope"), filepath.Join(dir, "nope2"), dir, "1", "m"}, env)

	assert.Equal(t, 1, code)
	assert.Empty(t, fake.calls)
	assert.Contains(t, stderr.String(), "load prompts")
}

func TestMain_RunUsesFakeCompleter(t *testing.T) {
	fake := &fakeCompleter{reply: " resource {} \n"}
	env, stdout, _ := testEnv(t, fake)
	dir, sys, usr := writePrompts(t)
	out := filepath.Join(dir, "out")

	code := Main(context.Background(), []string{"run", sys, usr, out, "2", "anthropic:claude-3-5-sonnet", "--temperature", "0"}, env)

	require.Equal(t, 0, code)
	require.Len(t, fake.calls, 2)
	assert.Equal(t, 0.0, fake.calls[0].Temperature)
	assert.Equal(t, "You write Terraform.", fake.calls[0].Messages[0].Content)
	assert.Equal(t, "An S3 bucket.", fake.calls[0].Messages[1].Content)
	assert.Equal(t, 2, strings.Count(stdout.String(), "Response saved to "))
}

func TestMain_RunDefaultTemperature(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	env, _, _ := testEnv(t, fake)
	dir, sys, usr := writePrompts(t)

	require.Equal(t, 0, Main(context.Background(), []string{"run", sys, usr, filepath.Join(dir, "o"), "1", "m"}, env))
	require.Len(t, fake.calls, 1)
	assert.Equal(t, 0.7, fake.calls[0].Temperature)
}

func TestMain_RunZeroCalls(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	env, stdout, _ := testEnv(t, fake)
	dir, sys, usr := writePrompts(t)
	out := filepath.Join(dir, "o")

	require.Equal(t, 0, Main(context.Background(), []string{"run", sys, usr, out, "0", "m"}, env))
	assert.Empty(t, fake.calls)
	assert.DirExists(t, out)
	assert.Empty(t, stdout.String())
}

// TestMain_RunEndToEnd goes through config loading, the real llm client and
// a mocked OpenAI endpoint.
func TestMain_RunEndToEnd(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello!"}}]}`))
	}))
	defer server.Close()

	env, stdout, stderr := testEnv(t, nil)
	dir, sys, usr := writePrompts(t)
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(
		"[providers.openai]\nbase_url = %q\napi_key = \"sk-test\"\n", server.URL)), 0o600))
	out := filepath.Join(dir, "out")

	code := Main(context.Background(), []string{"run", sys, usr, out, "1", "openai:gpt-4o", "--config", cfgPath}, env)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, 1, hits)
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^gpt-4o_response_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.txt$`, entries[0].Name())
	content, err := os.ReadFile(filepath.Join(out, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "Hello!", string(content))
	assert.Equal(t, "Response saved to "+filepath.Join(out, entries[0].Name())+"\n", stdout.String())
}

func TestMain_RunProviderFailureStillExitsZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	env, stdout, stderr := testEnv(t, nil)
	dir, sys, usr := writePrompts(t)
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(
		"[providers.openai]\nbase_url = %q\napi_key = \"bad\"\n", server.URL)), 0o600))
	out := filepath.Join(dir, "out")

	code := Main(context.Background(), []string{"run", "--config", cfgPath, sys, usr, out, "2", "openai:gpt-4o"}, env)

	assert.Equal(t, 0, code)
	assert.Empty(t, stdout.String())
	assert.Equal(t, 2, strings.Count(stderr.String(), "Error: "))
	assert.Contains(t, stderr.String(), "Incorrect API key provided")
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMain_ConfigError(t *testing.T) {
	fake := &fakeCompleter{reply: "x"}
	env, _, stderr := testEnv(t, fake)
	dir, sys, usr := writePrompts(t)

	code := Main(context.Background(), []string{"run", sys, usr, dir, "1", "m", "--config", filepath.Join(dir, "missing.toml")}, env)

	assert.Equal(t, ExitConfigError, code)
	assert.Empty(t, fake.calls)
	assert.Contains(t, stderr.String(), "missing.toml")
}

func TestMain_Ask(t *testing.T) {
	fake := &fakeCompleter{reply: "\n  Hi there.  \n"}
	env, stdout, stderr := testEnv(t, fake)
	_, sys, usr := writePrompts(t)

	code := Main(context.Background(), []string{"ask", sys, usr}, env)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "Using model: openai:gpt-4o\n\nResponse:\nHi there.\n", stdout.String())
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "openai:gpt-4o", fake.calls[0].Model)
	assert.Equal(t, 0.7, fake.calls[0].Temperature)
	assert.Equal(t, 150, fake.calls[0].MaxTokens)
}

func TestMain_AskFlags(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	env, stdout, _ := testEnv(t, fake)
	_, sys, usr := writePrompts(t)

	code := Main(context.Background(), []string{"ask", "--model", "ollama:llama3:8b", "--temperature", "0.3", "--max-tokens", "500", sys, usr}, env)

	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout.String(), "Using model: ollama:llama3:8b\n"))
	assert.Equal(t, 0.3, fake.calls[0].Temperature)
	assert.Equal(t, 500, fake.calls[0].MaxTokens)
}

func TestMain_AskError(t *testing.T) {
	fake := &fakeCompleter{err: llm.ErrUnknownProvider}
	env, _, stderr := testEnv(t, fake)
	_, sys, usr := writePrompts(t)

	code := Main(context.Background(), []string{"ask", "--model", "nope:x", sys, usr}, env)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error: ask: failed to get a response (config)")
}

func TestMain_AskBadTemperature(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	env, _, stderr := testEnv(t, fake)
	_, sys, usr := writePrompts(t)

	code := Main(context.Background(), []string{"ask", "--temperature", "warm", sys, usr}, env)

	assert.Equal(t, 1, code)
	assert.Empty(t, fake.calls)
	assert.Contains(t, stderr.String(), "invalid temperature")
}

func TestMain_Rescan(t *testing.T) {
	fake := &fakeCompleter{reply: "fixed"}
	env, stdout, stderr := testEnv(t, fake)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gpt-4o_response_1.tf"), []byte("tf"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gpt-4o_response_1.tf.json"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gpt-4o_response_1.tf.json", "results.json"), []byte("{}"), 0o644))
	prompt := filepath.Join(dir, "fix.txt")
	require.NoError(t, os.WriteFile(prompt, []byte("Fix it."), 0o644))
	models := filepath.Join(dir, "models.txt")
	require.NoError(t, os.WriteFile(models, []byte("openai:gpt-4o\n"), 0o644))
	out := filepath.Join(dir, "rescanned")

	code := Main(context.Background(), []string{"rescan", prompt, out, models, "0.5", "--dir", dir}, env)

	require.Equal(t, 0, code, stderr.String())
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "openai:gpt-4o", fake.calls[0].Model)
	assert.Equal(t, 0.5, fake.calls[0].Temperature)
	assert.FileExists(t, filepath.Join(out, "gpt-4o_response_1.tf.rescanned.tf"))
	assert.Contains(t, stdout.String(), "Response saved to ")
	assert.Contains(t, stderr.String(), "[OK] 1 saved, 0 skipped, 0 failed")
}

func TestMain_ScanValidatesInputs(t *testing.T) {
	env, _, stderr := testEnv(t, nil)
	dir := t.TempDir()

	code := Main(context.Background(), []string{"scan", filepath.Join(dir, "missing.tf"), dir}, env)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "does not exist")
}

func TestMain_MetaCommands(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		env, stdout, _ := testEnv(t, nil)
		assert.Equal(t, 0, Main(context.Background(), []string{"help"}, env))
		assert.True(t, strings.HasPrefix(stdout.String(), usageBanner+"\n"))
		assert.Contains(t, stdout.String(), runUsage)
	})
	t.Run("version", func(t *testing.T) {
		env, stdout, _ := testEnv(t, nil)
		assert.Equal(t, 0, Main(context.Background(), []string{"version"}, env))
		assert.Contains(t, stdout.String(), "llmscan version "+Version)
	})
	t.Run("no command", func(t *testing.T) {
		env, _, stderr := testEnv(t, nil)
		assert.Equal(t, 1, Main(context.Background(), nil, env))
		assert.Contains(t, stderr.String(), "no command given")
	})
	t.Run("unknown", func(t *testing.T) {
		env, _, stderr := testEnv(t, nil)
		assert.Equal(t, 1, Main(context.Background(), []string{"chat"}, env))
		assert.Contains(t, stderr.String(), `unknown command "chat"`)
	})
}
