// Package ai holds the structured-response parser and the prompt templates
// the agent roster feeds to the completion model.
//
// The target platform cannot combine JSON mode with tool use (web search),
// so models frequently reply with conversational preamble plus JSON. The
// parser tolerates that: it extracts the first balanced JSON value from the
// text instead of trusting the whole payload.
package ai

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"reelforge/internal/errors"
)

// ExtractJSON returns the first syntactically valid JSON value embedded in
// raw model output.
//
// Scan strategy: find the earliest '{' or '[', then advance with a
// balanced-brace scanner that ignores characters inside string literals and
// handles escape sequences. If the first pass yields invalid JSON, a second
// pass strips trailing commas immediately preceding '}' or ']'. If both
// fail, the error carries code MALFORMED_RESPONSE.
//
// If the parsed root is an array with exactly one element, the element is
// returned instead — models frequently wrap the requested object.
func ExtractJSON(raw string) (string, error) {
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return "", errors.MalformedResponse(raw)
	}

	candidate, ok := scanBalanced(raw[start:])
	if !ok {
		// Unbalanced to the end of input; take everything and hope the
		// repair pass can salvage it.
		candidate = raw[start:]
	}

	if !gjson.Valid(candidate) {
		candidate = stripTrailingCommas(candidate)
		if !gjson.Valid(candidate) {
			return "", errors.MalformedResponse(raw)
		}
	}

	return unwrapSingleton(candidate), nil
}

// Unmarshal applies ExtractJSON and decodes the result into T.
func Unmarshal[T any](raw string) (*T, error) {
	clean, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, errors.WithCode(errors.CodeMalformedResponse,
			errors.Wrapf(err, "structured response did not match expected shape: %s", errors.Preview(clean, 120)))
	}
	return &out, nil
}

// scanBalanced returns the prefix of s forming one balanced JSON value.
// String literals and escape sequences are skipped so braces inside quoted
// text never affect the depth count.
func scanBalanced(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
			if depth < 0 {
				return "", false
			}
		}
	}
	return "", false
}

// stripTrailingCommas removes commas that directly precede a closing brace
// or bracket, the most common model-side JSON defect.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			// Look ahead past whitespace for a closer.
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// unwrapSingleton unwraps a root array holding exactly one element.
func unwrapSingleton(s string) string {
	root := gjson.Parse(s)
	if root.IsArray() {
		arr := root.Array()
		if len(arr) == 1 {
			return arr[0].Raw
		}
	}
	return s
}
