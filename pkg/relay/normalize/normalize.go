// Package normalize turns whatever JSON a webhook or relay sends back into a
// single reply string.
//
// Three shapes are recognised:
//   - a plain object carrying the reply in one of ReplyFields,
//   - an array whose first element is such an object,
//   - a relay envelope carrying the real payload as a JSON string under
//     EnvelopeField.
//
// Normalize never fails. Unrecognised values are rendered as JSON text.
package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// EmptyReply is returned when the response carries nothing to show.
const EmptyReply = "Empty response received from server."

// EnvelopeField is where the allorigins relay stores the wrapped body.
const EnvelopeField = "contents"

// ReplyFields are checked in order; the first non-empty one wins.
var ReplyFields = []string{"output", "message", "response", "text", "reply"}

// Decode parses a response body into a dynamically typed value. Bodies that
// are not JSON are returned as a string so they can still be shown.
func Decode(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(body)
	}
	if dec.More() {
		return string(body)
	}
	return v
}

func Normalize(raw any) string {
	if obj, ok := raw.(map[string]any); ok {
		if wrapped, ok := obj[EnvelopeField].(string); ok {
			var inner any
			dec := json.NewDecoder(strings.NewReader(wrapped))
			dec.UseNumber()
			if err := dec.Decode(&inner); err != nil || dec.More() {
				return wrapped
			}
			return Normalize(inner)
		}
	}

	item := raw
	if arr, ok := raw.([]any); ok {
		if len(arr) == 0 {
			return EmptyReply
		}
		item = arr[0]
	}
	if isEmpty(item) {
		return EmptyReply
	}

	if obj, ok := item.(map[string]any); ok {
		for _, field := range ReplyFields {
			if v, ok := obj[field]; ok && !isEmpty(v) {
				return stringify(v)
			}
		}
	}

	return stringify(item)
}

// isEmpty mirrors the falsy values a loosely typed receiver would skip.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return EmptyReply
	}
	return string(b)
}
