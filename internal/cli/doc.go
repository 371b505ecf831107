// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and command handlers for llmscan.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed command-line arguments
//   - Env: Output streams and collaborators shared by all handlers
//
// # Usage
//
//	os.Exit(cli.Main(ctx, os.Args[1:], cli.DefaultEnv()))
//
// # Commands
//
//   - run: repeated dispatch of one prompt pair, one file per reply
//   - ask: single dispatch printed to stdout
//   - scan: KICS scan of a generated Terraform file
//   - rescan: LLM remediation of scanned Terraform files
//
// Handlers return errors; Main prints them and maps them to exit codes.
package cli
