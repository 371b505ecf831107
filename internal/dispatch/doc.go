// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch sends one system/user prompt pair to a model a fixed
// number of times and saves every successful completion to its own
// timestamped file.
//
// Calls are strictly sequential. A failed call is reported on the error
// stream and skipped; only filesystem failures stop a run.
package dispatch
