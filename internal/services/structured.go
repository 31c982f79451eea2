package services

import (
	"encoding/json"
	"strings"
)

type StructuredKind int

const (
	StructuredArray StructuredKind = iota + 1
	StructuredObject
)

// StructuredValue is a JSON array or object recovered from model output.
type StructuredValue struct {
	Kind StructuredKind
	Raw  json.RawMessage
}

func (v *StructuredValue) Decode(target any) error {
	return json.Unmarshal(v.Raw, target)
}

// ParseStructured recovers a JSON value from free-form model output. An
// array span is tried first, then an object span, then the whole text.
func ParseStructured(text string) (*StructuredValue, bool) {
	return parseStructured(text, true)
}

// ParseStructuredObject is ParseStructured for callers expecting an
// object, so an object holding a single array is not read as that array.
func ParseStructuredObject(text string) (*StructuredValue, bool) {
	return parseStructured(text, false)
}

func parseStructured(text string, arrayFirst bool) (*StructuredValue, bool) {
	text = stripFences(text)

	spans := []func(string) (*StructuredValue, bool){arraySpan, objectSpan}
	if !arrayFirst {
		spans[0], spans[1] = spans[1], spans[0]
	}
	for _, span := range spans {
		if v, ok := span(text); ok {
			return v, true
		}
	}

	return decodeStructured(text)
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func arraySpan(text string) (*StructuredValue, bool) {
	v, ok := decodeSpan(text, "[", "]")
	if !ok || v.Kind != StructuredArray {
		return nil, false
	}
	return v, true
}

func objectSpan(text string) (*StructuredValue, bool) {
	v, ok := decodeSpan(text, "{", "}")
	if !ok || v.Kind != StructuredObject {
		return nil, false
	}
	return v, true
}

func decodeSpan(text, open, close string) (*StructuredValue, bool) {
	start := strings.Index(text, open)
	end := strings.LastIndex(text, close)
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}
	return decodeStructured(text[start : end+1])
}

func decodeStructured(text string) (*StructuredValue, bool) {
	if !json.Valid([]byte(text)) {
		return nil, false
	}

	raw := json.RawMessage(text)
	switch strings.TrimSpace(text)[0] {
	case '[':
		return &StructuredValue{Kind: StructuredArray, Raw: raw}, true
	case '{':
		return &StructuredValue{Kind: StructuredObject, Raw: raw}, true
	default:
		return nil, false
	}
}
