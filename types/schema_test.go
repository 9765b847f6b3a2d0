package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestJSONSchema_NilAcceptsEverything(t *testing.T) {
	var s *JSONSchema
	assert.NoError(t, s.Validate(map[string]any{"anything": true}))
	assert.NoError(t, s.Validate(nil))
}

func TestJSONSchema_TypeChecks(t *testing.T) {
	tests := []struct {
		name   string
		schema *JSONSchema
		value  any
		ok     bool
	}{
		{"string ok", &JSONSchema{Type: SchemaTypeString}, "x", true},
		{"string bad", &JSONSchema{Type: SchemaTypeString}, 1.0, false},
		{"number ok", &JSONSchema{Type: SchemaTypeNumber}, 3.14, true},
		{"number bad", &JSONSchema{Type: SchemaTypeNumber}, "3.14", false},
		{"boolean ok", &JSONSchema{Type: SchemaTypeBoolean}, true, true},
		{"object ok", &JSONSchema{Type: SchemaTypeObject}, map[string]any{}, true},
		{"object bad", &JSONSchema{Type: SchemaTypeObject}, []any{}, false},
		{"array ok", &JSONSchema{Type: SchemaTypeArray}, []any{1.0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate(tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestJSONSchema_RequiredProperties(t *testing.T) {
	s := &JSONSchema{
		Type: SchemaTypeObject,
		Properties: map[string]*JSONSchema{
			"name": {Type: SchemaTypeString},
			"age":  {Type: SchemaTypeNumber},
		},
		Required: []string{"name"},
	}

	assert.NoError(t, s.Validate(map[string]any{"name": "bob"}))

	err := s.Validate(map[string]any{"age": 30.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")

	// Wrong type on an optional property still fails.
	assert.Error(t, s.Validate(map[string]any{"name": "bob", "age": "thirty"}))
}

func TestJSONSchema_Bounds(t *testing.T) {
	str := &JSONSchema{Type: SchemaTypeString, MinLength: intPtr(2), MaxLength: intPtr(4)}
	assert.NoError(t, str.Validate("abc"))
	assert.Error(t, str.Validate("a"))
	assert.Error(t, str.Validate("abcde"))

	num := &JSONSchema{Type: SchemaTypeNumber, Minimum: floatPtr(0), Maximum: floatPtr(10)}
	assert.NoError(t, num.Validate(5.0))
	assert.Error(t, num.Validate(-1.0))
	assert.Error(t, num.Validate(11.0))
}

func TestJSONSchema_Enum(t *testing.T) {
	s := &JSONSchema{Type: SchemaTypeString, Enum: []any{"red", "green"}}
	assert.NoError(t, s.Validate("red"))
	assert.Error(t, s.Validate("blue"))
}

func TestJSONSchema_NestedArrayItems(t *testing.T) {
	s := &JSONSchema{
		Type: SchemaTypeObject,
		Properties: map[string]*JSONSchema{
			"tags": {
				Type:  SchemaTypeArray,
				Items: &JSONSchema{Type: SchemaTypeString},
			},
		},
	}
	assert.NoError(t, s.Validate(map[string]any{"tags": []any{"a", "b"}}))
	assert.Error(t, s.Validate(map[string]any{"tags": []any{"a", 1.0}}))
}
