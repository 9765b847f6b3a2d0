package types

import "fmt"

// SchemaType represents the JSON Schema types the structural validator
// understands.
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeInteger SchemaType = "integer"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// JSONSchema is the JSON-schema-shaped subset consumed by the engine for
// input/output shaping and declared by connectors for UI form generation.
// Validation is structural: type, required properties, enum membership, and
// basic string/number bounds. Anything beyond that is the UI layer's concern.
type JSONSchema struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type SchemaType `json:"type,omitempty"`

	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`

	Items *JSONSchema `json:"items,omitempty"`

	Enum []any `json:"enum,omitempty"`

	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`

	Default any `json:"default,omitempty"`
}

// Validate checks value against the schema and returns a ValidationError
// describing the first mismatch. A nil schema accepts everything.
func (s *JSONSchema) Validate(value any) error {
	if s == nil {
		return nil
	}
	return s.validate(value, "$")
}

func (s *JSONSchema) validate(value any, path string) error {
	if s.Type != "" {
		if err := checkType(s.Type, value, path); err != nil {
			return err
		}
	}

	if len(s.Enum) > 0 {
		found := false
		for _, allowed := range s.Enum {
			if allowed == value {
				found = true
				break
			}
		}
		if !found {
			return NewError(ErrValidation, fmt.Sprintf("%s: value not in enum", path))
		}
	}

	switch v := value.(type) {
	case string:
		if s.MinLength != nil && len(v) < *s.MinLength {
			return NewError(ErrValidation, fmt.Sprintf("%s: shorter than minLength %d", path, *s.MinLength))
		}
		if s.MaxLength != nil && len(v) > *s.MaxLength {
			return NewError(ErrValidation, fmt.Sprintf("%s: longer than maxLength %d", path, *s.MaxLength))
		}
	case float64:
		if s.Minimum != nil && v < *s.Minimum {
			return NewError(ErrValidation, fmt.Sprintf("%s: below minimum %v", path, *s.Minimum))
		}
		if s.Maximum != nil && v > *s.Maximum {
			return NewError(ErrValidation, fmt.Sprintf("%s: above maximum %v", path, *s.Maximum))
		}
	case map[string]any:
		for _, name := range s.Required {
			if _, ok := v[name]; !ok {
				return NewError(ErrValidation, fmt.Sprintf("%s: missing required property %q", path, name))
			}
		}
		for name, sub := range s.Properties {
			if child, ok := v[name]; ok {
				if err := sub.validate(child, path+"."+name); err != nil {
					return err
				}
			}
		}
	case []any:
		if s.Items != nil {
			for i, item := range v {
				if err := s.Items.validate(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func checkType(want SchemaType, value any, path string) error {
	ok := false
	switch want {
	case SchemaTypeString:
		_, ok = value.(string)
	case SchemaTypeNumber:
		switch value.(type) {
		case float64, float32, int, int64:
			ok = true
		}
	case SchemaTypeInteger:
		switch v := value.(type) {
		case int, int64:
			ok = true
		case float64:
			ok = v == float64(int64(v))
		}
	case SchemaTypeBoolean:
		_, ok = value.(bool)
	case SchemaTypeObject:
		_, ok = value.(map[string]any)
	case SchemaTypeArray:
		_, ok = value.([]any)
	default:
		ok = true
	}
	if !ok {
		return NewError(ErrValidation, fmt.Sprintf("%s: expected %s", path, want))
	}
	return nil
}
