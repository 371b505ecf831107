// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the llmscan packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file replacement (temp file, fsync, rename)
//   - TruncateWidth: display-width aware truncation for diagnostics
//   - SplitLinesKeepEnds: line splitting that preserves terminators
//
// # Usage
//
//	// Write a response file, replacing any previous content
//	err := util.AtomicWriteFile(path, []byte(text), 0644)
//
//	// Shorten a provider error body for a one-line diagnostic
//	msg := util.TruncateWidth(body, 200)
package util
