// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"fmt"
	"os"
)

// PromptPair is the system and user prompt sent on every call of a batch.
type PromptPair struct {
	System string
	User   string
}

// LoadPrompts reads both prompt files once, as UTF-8 text.
func LoadPrompts(systemPath, userPath string) (PromptPair, error) {
	system, err := os.ReadFile(systemPath)
	if err != nil {
		return PromptPair{}, fmt.Errorf("failed to read system prompt: %w", err)
	}
	user, err := os.ReadFile(userPath)
	if err != nil {
		return PromptPair{}, fmt.Errorf("failed to read user prompt: %w", err)
	}
	return PromptPair{System: string(system), User: string(user)}, nil
}
