// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "openai", cfg.DefaultProvider)
	assert.Equal(t, 0.7, cfg.Dispatch.Temperature)
	assert.Equal(t, "kics", cfg.Scan.KICSPath)

	ollama, ok := cfg.Provider("ollama")
	require.True(t, ok)
	assert.Equal(t, 6000*time.Second, ollama.Timeout())

	xai, ok := cfg.Provider("XAI")
	require.True(t, ok, "provider lookup should be case-insensitive")
	assert.Equal(t, 600*time.Second, xai.Timeout())
}

func TestLoadFromPath_MergesBuiltinProviders(t *testing.T) {
	path := writeConfig(t, `
default_provider = "ollama"

[dispatch]
temperature = 0.2

[providers.ollama]
base_url = "http://gpu-box:11434"

[providers.Local]
base_url = "http://localhost:8000/v1"
timeout_secs = 30
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.DefaultProvider)
	assert.Equal(t, 0.2, cfg.Dispatch.Temperature)

	ollama, ok := cfg.Provider("ollama")
	require.True(t, ok)
	assert.Equal(t, "http://gpu-box:11434", ollama.BaseURL)
	assert.Equal(t, KindOllama, ollama.Kind, "kind inherited from built-in")
	assert.Equal(t, 6000, ollama.TimeoutSecs, "timeout inherited from built-in")

	local, ok := cfg.Provider("local")
	require.True(t, ok)
	assert.Equal(t, KindOpenAI, local.Kind, "custom providers default to the openai wire format")
	assert.Equal(t, 30*time.Second, local.Timeout())

	_, ok = cfg.Provider("anthropic")
	assert.True(t, ok, "unmentioned built-ins are kept")
}

func TestLoadFromPath_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "unknown default provider",
			content: `default_provider = "nope"`,
			field:   "default_provider",
		},
		{
			name:    "bad kind",
			content: "[providers.custom]\nkind = \"grpc\"\nbase_url = \"http://x\"",
			field:   "providers.custom.kind",
		},
		{
			name:    "bad url",
			content: "[providers.custom]\nbase_url = \"not a url\"",
			field:   "providers.custom.base_url",
		},
		{
			name:    "negative tokens",
			content: "[dispatch]\nmax_tokens = -1",
			field:   "dispatch.max_tokens",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromPath(writeConfig(t, tt.content))
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "expected ValidateErrors, got %T", err)
			found := false
			for _, v := range verrs {
				if v.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected a validation error for %s, got %v", tt.field, verrs)
		})
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoad_ExplicitAndEnvPath(t *testing.T) {
	path := writeConfig(t, `default_provider = "anthropic"`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.DefaultProvider)

	t.Setenv(EnvConfigPath, path)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.DefaultProvider)
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().DefaultProvider, cfg.DefaultProvider)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LLMSCAN_DEFAULT_PROVIDER", "Groq")
	t.Setenv("LLMSCAN_KICS_PATH", "/opt/kics/bin/kics")
	t.Setenv("LLMSCAN_OLLAMA_URL", "http://10.0.0.5:11434")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "groq", cfg.DefaultProvider)
	assert.Equal(t, "/opt/kics/bin/kics", cfg.Scan.KICSPath)
	assert.Equal(t, "http://10.0.0.5:11434", cfg.Providers["ollama"].BaseURL)
}

func TestProviderConfig_Key(t *testing.T) {
	t.Setenv("TEST_LLMSCAN_KEY", "  from-env  ")

	assert.Equal(t, "inline", ProviderConfig{APIKey: "inline", APIKeyEnv: "TEST_LLMSCAN_KEY"}.Key())
	assert.Equal(t, "from-env", ProviderConfig{APIKeyEnv: "TEST_LLMSCAN_KEY"}.Key())
	assert.Equal(t, "", ProviderConfig{}.Key())
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.DefaultProvider = "mistral"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm()&0077 != 0 && os.PathSeparator == '/' {
		t.Errorf("config file permissions too open: %o", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", loaded.DefaultProvider)
	assert.Equal(t, cfg.ProviderNames(), loaded.ProviderNames())
}
