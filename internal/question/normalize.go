package question

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// StripFences removes a leading ```json (or bare ```) marker and a trailing
// ``` marker from generator output.
func StripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = leadingFence.ReplaceAllString(raw, "")
	raw = trailingFence.ReplaceAllString(raw, "")
	return strings.TrimSpace(raw)
}

// Normalize turns raw generator text into a validated question set.
func Normalize(raw string) (Set, error) {
	set, err := decodeSet([]byte(StripFences(raw)), "generator")
	if err != nil {
		return nil, err
	}
	if err := Validate(set); err != nil {
		return nil, err
	}
	return set, nil
}

// ParseUpload reads an uploaded JSON file of at most limit bytes
// (limit <= 0 disables the check) and validates it.
func ParseUpload(r io.Reader, limit int64) (Set, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Source: "upload", Err: err}
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, &ParseError{Source: "upload", Err: fmt.Errorf("file exceeds %d bytes", limit)}
	}
	set, err := decodeSet(data, "upload")
	if err != nil {
		return nil, err
	}
	if err := Validate(set); err != nil {
		return nil, err
	}
	return set, nil
}

func decodeSet(data []byte, source string) (Set, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &ParseError{Source: source, Err: errors.New("empty input")}
	}
	if data[0] != '[' {
		return nil, &ParseError{Source: source, Err: errors.New("expected a JSON array")}
	}
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	return set, nil
}
