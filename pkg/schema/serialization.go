package schema

import (
	"encoding/json"
	"fmt"
)

// Described is implemented by kinds that publish the input types they accept.
// Registry descriptors and the kind listings of the adapters carry it.
type Described interface {
	Schema() Schema
}

// Of returns the schema published by kind, if any.
func Of(kind any) (Schema, bool) {
	d, ok := kind.(Described)
	if !ok {
		return nil, false
	}
	s := d.Schema()
	return s, len(s) > 0
}

// TypeMap returns the type name of every input label.
// It is the inverse of ParseTypeMap.
func (s Schema) TypeMap() (map[string]string, error) {
	names := make(map[string]string, len(s))
	for label, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("input %q: type is nil", label)
		}
		names[label] = typ.Name()
	}
	return names, nil
}

// MarshalJSON writes the schema as an object of input labels to type names,
// e.g. {"a":"number","label":"?text"}.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	names, err := s.TypeMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(names)
}

// UnmarshalJSON reads the form written by MarshalJSON. Custom types cannot be
// recovered from their name and come back as host-defined tags.
func (s *Schema) UnmarshalJSON(data []byte) error {
	if s == nil {
		return fmt.Errorf("schema: UnmarshalJSON on nil pointer")
	}
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("schema: want an object of type names: %w", err)
	}
	parsed, err := ParseTypeMap(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
