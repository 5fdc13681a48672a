package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"output field", `{"output": "hi"}`, "hi"},
		{"envelope with json", `{"contents": "{\"message\": \"hi\"}"}`, "hi"},
		{"envelope with plain text", `{"contents": "not json"}`, "not json"},
		{"array of objects", `[{"reply": "hi"}]`, "hi"},
		{"empty object", `{}`, EmptyReply},
		{"json string", `"raw string"`, "raw string"},
		{"output beats message", `{"message": "second", "output": "first"}`, "first"},
		{"empty field is skipped", `{"output": "", "text": "fallback"}`, "fallback"},
		{"empty array", `[]`, EmptyReply},
		{"null", `null`, EmptyReply},
		{"unknown fields are dumped", `{"foo": 1}`, `{"foo":1}`},
		{"envelope wrapping an array", `{"contents": "[{\"response\": \"deep\"}]"}`, "deep"},
		{"envelope wrapping an empty object", `{"contents": "{}"}`, EmptyReply},
		{"envelope with empty contents", `{"contents": ""}`, ""},
		{"envelope with blank contents", `{"contents": "  "}`, "  "},
		{"array of strings", `["first", "second"]`, "first"},
		{"non string reply field", `{"output": {"a": 1}}`, `{"a":1}`},
		{"numeric reply keeps precision", `{"output": 12345678901234567890}`, "12345678901234567890"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Normalize(Decode([]byte(tc.body))))
		})
	}
}

func TestNormalize_FieldPriorityOrder(t *testing.T) {
	obj := map[string]any{
		"reply":    "5",
		"text":     "4",
		"response": "3",
		"message":  "2",
	}
	require.Equal(t, "2", Normalize(obj))
	delete(obj, "message")
	require.Equal(t, "3", Normalize(obj))
	delete(obj, "response")
	require.Equal(t, "4", Normalize(obj))
	delete(obj, "text")
	require.Equal(t, "5", Normalize(obj))
}

func TestDecode(t *testing.T) {
	require.Nil(t, Decode(nil))
	require.Nil(t, Decode([]byte("   \n")))
	require.Equal(t, "plain text", Decode([]byte("plain text")))
	require.Equal(t, `{"a":1} trailing`, Decode([]byte(`{"a":1} trailing`)))
	require.Equal(t, map[string]any{"output": "x"}, Decode([]byte(`{"output":"x"}`)))
}

func TestNormalize_GoValues(t *testing.T) {
	require.Equal(t, "raw string", Normalize("raw string"))
	require.Equal(t, EmptyReply, Normalize(nil))
	require.Equal(t, "hi", Normalize([]any{map[string]any{"output": "hi"}, map[string]any{"output": "ignored"}}))
}
