package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// ErrDecode is matched by every DecodeError
var ErrDecode = errors.New("no valid JSON object in model response")

const snippetLen = 500

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\r?\\n?(.*?)```")

// DecodeError is returned when no extraction strategy yields a JSON object
type DecodeError struct {
	Snippet string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode model response: %v (response starts with %q)", e.Err, e.Snippet)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode extracts a JSON object from raw model output.
// It tries the whole text, then the first fenced block, then the
// outermost brace span, and returns the first candidate that parses as an object.
func Decode(raw string) (map[string]any, error) {
	b, err := extract(raw)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, newDecodeError(raw, err)
	}
	return out, nil
}

// DecodeInto extracts a JSON object from raw model output and unmarshals it into v.
// v is only touched once a candidate has been validated.
func DecodeInto(raw string, v any) error {
	b, err := extract(raw)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode into non-pointer %T", v)
	}

	// Unmarshal into a fresh value so a type mismatch never leaves v half-filled
	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(b, fresh.Interface()); err != nil {
		return newDecodeError(raw, err)
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}

func extract(raw string) ([]byte, error) {
	for _, candidate := range candidates(raw) {
		if isObject(candidate) {
			return []byte(candidate), nil
		}
	}
	return nil, newDecodeError(raw, ErrDecode)
}

func candidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	out := []string{trimmed}

	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		out = append(out, trimmed[start:end+1])
	}
	return out
}

func isObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}

func newDecodeError(raw string, err error) *DecodeError {
	if !errors.Is(err, ErrDecode) {
		err = fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &DecodeError{Snippet: truncateRunes(raw, snippetLen), Err: err}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
