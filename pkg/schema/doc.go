// Package schema provides type checks over domain.Value for node kinds.
//
// The graph engine itself enforces nothing beyond port labels: producers and
// consumers agree on value types out of band. Kinds that want a strict
// contract declare a Schema for their inputs and validate before computing.
//
// Basic usage:
//
//	inputs := schema.Schema{
//	    "a":     schema.Number(),
//	    "b":     schema.Number(),
//	    "label": schema.Optional(schema.Text()),
//	}
//
//	if err := schema.Validate(inputs, in); err != nil {
//	    // errors.Is(err, domain.ErrTypeMismatch) holds
//	}
//
// Schemas can be created programmatically or parsed from type strings:
//
//	inputs, err := schema.ParseTypeMap(map[string]string{
//	    "a":     "number",
//	    "label": "?text",
//	})
//
// Custom validators can be registered for domain-specific validation:
//
//	positive := schema.Custom("positive", func(v domain.Value) error {
//	    f, err := v.AsNumber()
//	    if err != nil {
//	        return err
//	    }
//	    if f <= 0 {
//	        return fmt.Errorf("must be positive")
//	    }
//	    return nil
//	})
package schema
