package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array of ints", Array{Int(1), Int(2), Int(3)}, "[1,2,3]"},
		{"plain go map", map[string]any{"a": 1, "b": []any{"x", true}}, `{"a":1,"b":["x",true]}`},
		{"string slice", []string{"b", "a"}, `["b","a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Int(1),
		"alpha": Int(2),
		"beta":  Object{"d": Int(4), "c": Int(3)},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"c":3,"d":4},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting 0xD800, which sorts
	// before U+E000 in UTF-16 but after it in UTF-8.
	obj := Object{
		"\uE000":     Int(1),
		"\U00010000": Int(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"`+"\U00010000"+`":2,"`+"\uE000"+`":1}`, string(result))
}

func TestMarshalCanonicalEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"html is literal", "<a & b>", `"<a & b>"`},
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline and tab", "a\nb\tc", `"a\nb\tc"`},
		{"control", "\x01", `"\u0001"`},
		{"line separator is literal", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash before u2028 text", `\u2028`, `"\\u2028"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	a, err := MarshalCanonical(Object{composed: String(composed)})
	require.NoError(t, err)
	b, err := MarshalCanonical(Object{decomposed: String(decomposed)})
	require.NoError(t, err)

	assert.Equal(t, a, b, "NFC normalization applies to keys and values")
}

func TestMarshalCanonicalRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
		msg   string
	}{
		{"nil", nil, "null"},
		{"float64", 3.14, "float"},
		{"float in map", map[string]any{"x": float32(1)}, "float"},
		{"nil in array", Array{nil}, "null"},
		{"nil in object", Object{"x": nil}, "null"},
		{"struct", struct{}{}, "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestObjectJSONRoundTrip(t *testing.T) {
	obj := Object{"name": String("foo"), "n": Int(3), "tags": Array{Bool(true)}}

	data, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"n":3,"name":"foo","tags":[true]}`, string(data))

	var back Object
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, obj, back)
}

func TestUnmarshalValueRejectsFloatsAndNull(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"x":1.5}`))
	assert.Error(t, err)

	_, err = UnmarshalValue([]byte(`{"x":null}`))
	assert.Error(t, err)

	var obj Object
	assert.Error(t, obj.UnmarshalJSON([]byte(`[1]`)), "arrays are not objects")
}
