// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kics

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nogoodai/msise-ise-5901/internal/util"
)

// ErrNoCounters indicates a results.json without a severity_counters object.
var ErrNoCounters = errors.New("severity_counters not found")

// Counter is one severity bucket from a KICS report.
type Counter struct {
	Severity string
	Count    json.Number
}

// ReadSeverityCounters returns the severity_counters object of the KICS
// results.json at path, in document order.
func ReadSeverityCounters(path string) ([]Counter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	counters, err := ParseSeverityCounters(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return counters, nil
}

// ParseSeverityCounters extracts severity_counters from a KICS report.
// encoding/json maps lose key order, so the object is walked token by token.
func ParseSeverityCounters(data []byte) ([]Counter, error) {
	var report map[string]json.RawMessage
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("invalid results json: %w", err)
	}
	raw, ok := report["severity_counters"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrNoCounters
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: not an object", ErrNoCounters)
	}

	var counters []Counter
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		var value json.Number
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("severity %s: %w", key, err)
		}
		counters = append(counters, Counter{Severity: key, Count: value})
	}
	return counters, nil
}

// CountLogicalLines counts lines that are neither blank nor "#" comments.
func CountLogicalLines(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			count++
		}
	}
	return count, scanner.Err()
}

// WriteResults writes one CSV row to path: every counter value in order,
// then lloc.
func WriteResults(path string, counters []Counter, lloc int) error {
	row := make([]string, 0, len(counters)+1)
	for _, c := range counters {
		row = append(row, c.Count.String())
	}
	row = append(row, strconv.Itoa(lloc))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0o644)
}
