// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kics wraps the KICS infrastructure-as-code scanner.
//
// A scan run cleans an LLM-generated Terraform file of markdown fences and
// commentary, runs "kics scan" on it, and condenses the findings into a
// one-row CSV: the severity counters in report order followed by the
// file's logical lines of code.
package kics
