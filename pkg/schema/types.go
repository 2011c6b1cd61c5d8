package schema

import (
	"fmt"
	"strings"

	"github.com/aretw0/weft/pkg/domain"
)

// Type defines the contract for input validation.
// Implementations determine which Values a port accepts.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "number", "?text").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value domain.Value) error
}

// --- Built-in Type Implementations ---

// TagType accepts values carrying one specific tag.
type TagType struct {
	kind domain.ValueKind
}

func (t *TagType) Name() string { return string(t.kind) }

func (t *TagType) Validate(value domain.Value) error {
	if value.Kind() != t.kind {
		return &domain.TypeMismatchError{Want: t.kind, Got: value.Kind()}
	}
	return nil
}

// AnyType accepts every value, Empty included.
type AnyType struct{}

func (t *AnyType) Name() string { return "any" }

func (t *AnyType) Validate(domain.Value) error { return nil }

// OptionalType accepts Empty or a value of the wrapped type.
type OptionalType struct {
	elemType Type
}

func (t *OptionalType) Name() string {
	return "?" + t.elemType.Name()
}

func (t *OptionalType) Validate(value domain.Value) error {
	if value.IsEmpty() {
		return nil
	}
	return t.elemType.Validate(value)
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(domain.Value) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value domain.Value) error {
	return t.validate(value)
}

// --- Factory Functions ---

// Number creates a number type validator.
func Number() Type { return &TagType{kind: domain.KindNumber} }

// Bool creates a boolean type validator.
func Bool() Type { return &TagType{kind: domain.KindBool} }

// Text creates a text type validator.
func Text() Type { return &TagType{kind: domain.KindText} }

// Tag creates a validator for a host-defined value kind.
func Tag(kind domain.ValueKind) Type { return &TagType{kind: kind} }

// Any creates a validator accepting everything.
func Any() Type { return &AnyType{} }

// Optional wraps t so that Empty is accepted too.
func Optional(t Type) Type {
	return &OptionalType{elemType: t}
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(domain.Value) error) Type {
	return &CustomType{name: name, validate: validate}
}

// ParseType converts a type name to a Type.
// Supports "number", "bool", "text", "any", "empty" and the optional form "?number".
// Any other identifier is treated as a host-defined tag.
func ParseType(typeStr string) (Type, error) {
	typeStr = strings.TrimSpace(typeStr)
	if strings.HasPrefix(typeStr, "?") {
		elemType, err := ParseType(typeStr[1:])
		if err != nil {
			return nil, err
		}
		return Optional(elemType), nil
	}

	switch typeStr {
	case "":
		return nil, fmt.Errorf("empty type name")
	case "number":
		return Number(), nil
	case "bool":
		return Bool(), nil
	case "text":
		return Text(), nil
	case "any":
		return Any(), nil
	default:
		return Tag(domain.ValueKind(typeStr)), nil
	}
}

// ParseTypeMap converts a map of input labels to type strings into a Schema.
// Example: {"a": "number", "label": "?text"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
