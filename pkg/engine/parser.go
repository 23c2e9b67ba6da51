package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// snippetLen bounds how much unparsed text an OutputParse error carries.
const snippetLen = 200

// ParseOutput extracts the local host's task counters from the tool's combined
// output. Warnings printed before the JSON document are skipped, including
// warnings that contain stray braces.
func ParseOutput(raw string) (*ExecutionStats, error) {
	var lastErr error
	for _, payload := range payloadCandidates(raw) {
		doc, err := decodeObject(payload)
		if err != nil {
			lastErr = err
			continue
		}
		return statsFromDocument(doc, TargetHost), nil
	}
	if lastErr == nil {
		lastErr = errors.New("empty output")
	}
	return nil, newOutputParseError(snippet(raw), lastErr)
}

// payloadCandidates returns the texts to try decoding, most specific first:
// the text from a line that is exactly "{", the text from the first "\n{",
// and the whole text. Duplicates are dropped.
func payloadCandidates(raw string) []string {
	var out []string
	add := func(s string, ok bool) {
		if !ok {
			return
		}
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}
	add(payloadFromBraceLine(raw))
	add(payloadFromNewlineBrace(raw))
	add(raw, strings.TrimSpace(raw) != "")
	return out
}

// payloadFromBraceLine returns the text starting at the first line whose
// trimmed content is exactly "{".
func payloadFromBraceLine(raw string) (string, bool) {
	offset := 0
	for {
		end := strings.IndexByte(raw[offset:], '\n')
		line := raw[offset:]
		if end >= 0 {
			line = raw[offset : offset+end]
		}
		if strings.TrimSpace(line) == "{" {
			return raw[offset:], true
		}
		if end < 0 {
			return "", false
		}
		offset += end + 1
	}
}

// payloadFromNewlineBrace returns the text starting at the "{" of the first
// newline immediately followed by "{".
func payloadFromNewlineBrace(raw string) (string, bool) {
	idx := strings.Index(raw, "\n{")
	if idx < 0 {
		return "", false
	}
	return raw[idx+1:], true
}

// decodeObject decodes the first JSON value in payload, which must be an
// object. Anything after the value is ignored.
func decodeObject(payload string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	doc, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", value)
	}
	return doc, nil
}

func statsFromDocument(doc map[string]interface{}, host string) *ExecutionStats {
	stats := &ExecutionStats{Host: host}
	all, _ := doc["stats"].(map[string]interface{})
	record, _ := all[host].(map[string]interface{})
	if record == nil {
		return stats
	}
	stats.Ok = intField(record, "ok")
	stats.Changed = intField(record, "changed")
	stats.Failed = intField(record, "failed")
	if _, ok := record["failed"]; !ok {
		// The json callback names the counter "failures".
		stats.Failed = intField(record, "failures")
	}
	stats.Skipped = intField(record, "skipped")
	stats.Unreachable = intField(record, "unreachable")
	stats.Rescued = intField(record, "rescued")
	stats.Ignored = intField(record, "ignored")
	return stats
}

// intField reads a counter, treating missing or non-numeric values as zero.
// Counts are clamped to [0, math.MaxInt] so an oversized count stays positive.
func intField(record map[string]interface{}, key string) int {
	num, ok := record[key].(json.Number)
	if !ok {
		return 0
	}
	if n, err := num.Int64(); err == nil && n >= 0 && n <= math.MaxInt {
		return int(n)
	}
	f, err := num.Float64()
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	}
	return int(f)
}

func snippet(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > snippetLen {
		return s[:snippetLen]
	}
	return s
}
