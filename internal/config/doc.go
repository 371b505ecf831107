// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for llmscan.
//
// Configuration is TOML. It names the LLM providers a model reference may
// select (base URL, API key source, transport timeout), the defaults used
// by the dispatch commands, and where the KICS scanner lives.
//
// # Key Types
//
//   - Config: complete configuration
//   - ProviderConfig: one LLM endpoint, keyed by provider name
//   - DispatchConfig: default sampling settings
//   - ScanConfig: KICS binary location and timeout
//
// # Configuration Precedence
//
// The configuration file is chosen in this order:
//   - an explicit path (the --config flag)
//   - $LLMSCAN_CONFIG
//   - ~/.llmscan/config.toml
//   - built-in defaults
//
// Environment overrides (LLMSCAN_*) are applied after the file is read.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, ok := cfg.Provider("ollama")
package config
