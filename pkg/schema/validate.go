package schema

import (
	"sort"

	"github.com/aretw0/weft/pkg/domain"
)

// Schema is a map of input labels to their expected types.
// Example: {"a": Number(), "b": Number(), "label": Optional(Text())}
type Schema map[string]Type

// Keys returns the labels of the schema in lexical order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if data conforms to the schema.
// Returns an error with all validation failures found, ordered by label.
// A label absent from data is checked as Empty.
func Validate(schema Schema, data map[string]domain.Value) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}
	return validate(schema, data, schema.Keys())
}

// ValidateFields validates only specific fields from data against the schema.
// Fields not defined in the schema are reported as errors.
func ValidateFields(schema Schema, data map[string]domain.Value, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return validate(schema, data, fields)
}

func validate(schema Schema, data map[string]domain.Value, fields []string) error {
	var errs []error

	for _, fieldName := range fields {
		fieldType, exists := schema[fieldName]
		if !exists {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: "not defined in schema",
				Err:    domain.ErrPortNotFound,
			})
			continue
		}

		value := data[fieldName]
		if err := fieldType.Validate(value); err != nil {
			reason := err.Error()
			if value.IsEmpty() {
				reason = "required " + fieldType.Name()
			}
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: reason,
				Value:  value,
				Err:    err,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
