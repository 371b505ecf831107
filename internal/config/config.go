// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Provider kinds understood by the llm package.
const (
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindOllama    = "ollama"
)

// EnvConfigPath names the environment variable holding a config file path.
const EnvConfigPath = "LLMSCAN_CONFIG"

// Config represents the complete llmscan configuration.
type Config struct {
	Version string `toml:"version"`

	// DefaultProvider handles model references without a "provider:" prefix.
	DefaultProvider string `toml:"default_provider"`

	Dispatch DispatchConfig `toml:"dispatch"`
	Scan     ScanConfig     `toml:"scan"`

	// Providers maps a provider name (the part before ":" in a model
	// reference) to its endpoint settings.
	Providers map[string]ProviderConfig `toml:"providers"`
}

// DispatchConfig contains defaults for the run and ask commands.
type DispatchConfig struct {
	// Temperature is the sampling temperature when none is given on the
	// command line. No range is enforced here; providers reject bad values.
	Temperature float64 `toml:"temperature"`
	// MaxTokens caps completion length for ask (0 = provider default)
	MaxTokens int `toml:"max_tokens"`
}

// ScanConfig contains KICS scanner settings.
type ScanConfig struct {
	// KICSPath is the scanner executable (looked up in PATH when relative)
	KICSPath string `toml:"kics_path"`
	// TimeoutSecs bounds one scanner run (0 = no limit)
	TimeoutSecs int `toml:"timeout_secs"`
}

// ProviderConfig describes one LLM endpoint.
type ProviderConfig struct {
	// Kind selects the wire protocol: "openai", "anthropic" or "ollama"
	Kind string `toml:"kind"`
	// BaseURL is the API root, e.g. https://api.openai.com/v1
	BaseURL string `toml:"base_url"`
	// APIKey is used verbatim when set
	APIKey string `toml:"api_key"`
	// APIKeyEnv names the environment variable read when APIKey is empty
	APIKeyEnv string `toml:"api_key_env"`
	// TimeoutSecs is the HTTP client timeout for this provider
	TimeoutSecs int `toml:"timeout_secs"`
}

// Key returns the API key, falling back to the APIKeyEnv variable.
func (p ProviderConfig) Key() string {
	if p.APIKey != "" {
		return strings.TrimSpace(p.APIKey)
	}
	if p.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
	}
	return ""
}

// Timeout returns TimeoutSecs as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with the built-in provider table.
func Default() *Config {
	return &Config{
		Version:         "1",
		DefaultProvider: "openai",

		Dispatch: DispatchConfig{
			Temperature: 0.7,
			MaxTokens:   150,
		},

		Scan: ScanConfig{
			KICSPath:    "kics",
			TimeoutSecs: 600,
		},

		Providers: DefaultProviders(),
	}
}

// DefaultProviders returns the built-in provider table. Ollama and xAI get
// long timeouts because large local models and grok can take minutes to
// answer a full Terraform remediation prompt.
func DefaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"openai": {
			Kind:        KindOpenAI,
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			TimeoutSecs: 120,
		},
		"anthropic": {
			Kind:        KindAnthropic,
			BaseURL:     "https://api.anthropic.com/v1",
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			TimeoutSecs: 120,
		},
		"ollama": {
			Kind:        KindOllama,
			BaseURL:     "http://127.0.0.1:11434",
			TimeoutSecs: 6000,
		},
		"xai": {
			Kind:        KindOpenAI,
			BaseURL:     "https://api.x.ai/v1",
			APIKeyEnv:   "XAI_API_KEY",
			TimeoutSecs: 600,
		},
		"openrouter": {
			Kind:        KindOpenAI,
			BaseURL:     "https://openrouter.ai/api/v1",
			APIKeyEnv:   "OPENROUTER_API_KEY",
			TimeoutSecs: 120,
		},
		"groq": {
			Kind:        KindOpenAI,
			BaseURL:     "https://api.groq.com/openai/v1",
			APIKeyEnv:   "GROQ_API_KEY",
			TimeoutSecs: 120,
		},
		"mistral": {
			Kind:        KindOpenAI,
			BaseURL:     "https://api.mistral.ai/v1",
			APIKeyEnv:   "MISTRAL_API_KEY",
			TimeoutSecs: 120,
		},
		"google": {
			Kind:        KindOpenAI,
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai",
			APIKeyEnv:   "GEMINI_API_KEY",
			TimeoutSecs: 120,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the llmscan configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".llmscan"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load resolves the config file (explicit path, $LLMSCAN_CONFIG, then the
// default location) and loads it. A missing default file is not an error:
// built-in defaults are returned. A missing explicit file is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		return LoadFromPath(path)
	}

	defaultPath, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(defaultPath); statErr == nil {
			return LoadFromPath(defaultPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg and fills anything left empty.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults fills in any missing values with defaults. Providers that
// share a name with a built-in inherit the built-in's unset fields, so a
// file only needs to mention what it changes.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = defaults.DefaultProvider
	}
	if cfg.Scan.KICSPath == "" {
		cfg.Scan.KICSPath = defaults.Scan.KICSPath
	}

	normalized := make(map[string]ProviderConfig, len(cfg.Providers))
	for name, p := range cfg.Providers {
		normalized[strings.ToLower(strings.TrimSpace(name))] = p
	}
	cfg.Providers = normalized

	for name, def := range defaults.Providers {
		p, ok := cfg.Providers[name]
		if !ok {
			cfg.Providers[name] = def
			continue
		}
		if p.Kind == "" {
			p.Kind = def.Kind
		}
		if p.BaseURL == "" {
			p.BaseURL = def.BaseURL
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = def.APIKeyEnv
		}
		if p.TimeoutSecs == 0 {
			p.TimeoutSecs = def.TimeoutSecs
		}
		cfg.Providers[name] = p
	}
	for name, p := range cfg.Providers {
		if p.Kind == "" {
			p.Kind = KindOpenAI
			cfg.Providers[name] = p
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration to path with 0600 permissions, since
// the file may hold API keys.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# llmscan configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ErrNoProviders is returned by Validate when the provider table is empty.
var ErrNoProviders = errors.New("no providers configured")

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return ErrNoProviders
	}

	var errs ValidateErrors

	if _, ok := c.Providers[c.DefaultProvider]; !ok {
		errs = append(errs, ValidationError{
			Field:   "default_provider",
			Message: fmt.Sprintf("unknown provider '%s'", c.DefaultProvider),
		})
	}

	if c.Dispatch.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "dispatch.max_tokens",
			Message: "must not be negative",
		})
	}

	if c.Scan.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "scan.timeout_secs",
			Message: "must not be negative",
		})
	}

	validKinds := map[string]bool{KindOpenAI: true, KindAnthropic: true, KindOllama: true}
	for _, name := range c.ProviderNames() {
		p := c.Providers[name]
		field := "providers." + name
		if strings.Contains(name, ":") {
			errs = append(errs, ValidationError{Field: field, Message: "provider name must not contain ':'"})
		}
		if !validKinds[p.Kind] {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("invalid kind '%s', must be one of: openai, anthropic, ollama", p.Kind),
			})
		}
		if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".base_url",
				Message: fmt.Sprintf("invalid URL '%s'", p.BaseURL),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   field + ".base_url",
				Message: fmt.Sprintf("unsupported scheme '%s'", u.Scheme),
			})
		}
		if p.TimeoutSecs < 0 {
			errs = append(errs, ValidationError{Field: field + ".timeout_secs", Message: "must not be negative"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Provider returns the settings for name (case-insensitive).
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	p, ok := c.Providers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ProviderNames returns the configured provider names, sorted.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScanTimeout returns the scanner timeout (0 = none).
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.Scan.TimeoutSecs) * time.Second
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - LLMSCAN_DEFAULT_PROVIDER: overrides default_provider
//   - LLMSCAN_KICS_PATH: overrides scan.kics_path
//   - LLMSCAN_OLLAMA_URL: overrides providers.ollama.base_url
func (c *Config) ApplyEnvOverrides() {
	if provider := os.Getenv("LLMSCAN_DEFAULT_PROVIDER"); provider != "" {
		c.DefaultProvider = strings.ToLower(provider)
	}

	if kics := os.Getenv("LLMSCAN_KICS_PATH"); kics != "" {
		c.Scan.KICSPath = kics
	}

	if ollamaURL := os.Getenv("LLMSCAN_OLLAMA_URL"); ollamaURL != "" {
		if p, ok := c.Providers["ollama"]; ok {
			p.BaseURL = ollamaURL
			c.Providers["ollama"] = p
		}
	}
}
