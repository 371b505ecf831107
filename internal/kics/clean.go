// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kics

import (
	"fmt"
	"os"
	"strings"

	"github.com/nogoodai/msise-ise-5901/internal/util"
)

const fence = "```"

// commentaryMarkers identify prose lines models tend to leave in code.
var commentaryMarkers = []string{
	"Key security",
	"Based on the scan",
	"terraform_configuration",
}

// CleanLines drops fence lines and commentary lines. Output stops at the
// second fence line, so anything after a closing fence is discarded. Lines
// keep their original endings.
func CleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	fences := 0
	for _, line := range lines {
		if strings.Contains(line, fence) {
			fences++
			if fences == 2 {
				break
			}
			continue
		}
		if isCommentary(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isCommentary(line string) bool {
	for _, marker := range commentaryMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// CleanFile rewrites path in place with CleanLines applied.
func CleanFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cleaned := CleanLines(util.SplitLinesKeepEnds(string(data)))
	if err := util.AtomicWriteFile(path, []byte(strings.Join(cleaned, "")), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	return nil
}
