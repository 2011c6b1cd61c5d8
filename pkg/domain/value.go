package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// ValueKind is the tag of a Value.
type ValueKind string

const (
	KindEmpty  ValueKind = "empty"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindText   ValueKind = "text"
)

// Value is the data unit flowing along connections.
// The zero Value is Empty ("no value").
//
// Hosts may carry their own payloads with Custom; the engine never inspects them.
type Value struct {
	kind    ValueKind
	payload any
}

// Empty returns the "no value" Value.
func Empty() Value { return Value{} }

// Number wraps a float64.
func Number(f float64) Value { return Value{kind: KindNumber, payload: f} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, payload: b} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, payload: s} }

// Custom creates a host-defined variant. A KindEmpty or blank kind yields Empty.
func Custom(kind ValueKind, payload any) Value {
	if kind == "" || kind == KindEmpty {
		return Empty()
	}
	return Value{kind: kind, payload: payload}
}

// Kind returns the tag of the value.
func (v Value) Kind() ValueKind {
	if v.kind == "" {
		return KindEmpty
	}
	return v.kind
}

// IsEmpty reports whether v carries no value.
func (v Value) IsEmpty() bool { return v.Kind() == KindEmpty }

// Payload returns the raw payload (nil for Empty).
func (v Value) Payload() any { return v.payload }

// AsNumber converts v to a float64.
// It returns a *TypeMismatchError if v is not a Number.
func (v Value) AsNumber() (float64, error) {
	if f, ok := v.payload.(float64); ok && v.kind == KindNumber {
		return f, nil
	}
	return 0, &TypeMismatchError{Want: KindNumber, Got: v.Kind()}
}

// AsBool converts v to a bool.
func (v Value) AsBool() (bool, error) {
	if b, ok := v.payload.(bool); ok && v.kind == KindBool {
		return b, nil
	}
	return false, &TypeMismatchError{Want: KindBool, Got: v.Kind()}
}

// AsText converts v to a string.
func (v Value) AsText() (string, error) {
	if s, ok := v.payload.(string); ok && v.kind == KindText {
		return s, nil
	}
	return "", &TypeMismatchError{Want: KindText, Got: v.Kind()}
}

// MustNumber is like AsNumber but panics on a tag mismatch.
func (v Value) MustNumber() float64 {
	f, err := v.AsNumber()
	if err != nil {
		panic(err)
	}
	return f
}

// MustBool is like AsBool but panics on a tag mismatch.
func (v Value) MustBool() bool {
	b, err := v.AsBool()
	if err != nil {
		panic(err)
	}
	return b
}

// MustText is like AsText but panics on a tag mismatch.
func (v Value) MustText() string {
	s, err := v.AsText()
	if err != nil {
		panic(err)
	}
	return s
}

// NumberOr returns the number carried by v, or fallback if v is not a Number.
func (v Value) NumberOr(fallback float64) float64 {
	if f, err := v.AsNumber(); err == nil {
		return f
	}
	return fallback
}

// Equal reports whether two values have the same tag and payload.
func (v Value) Equal(other Value) bool {
	return v.Kind() == other.Kind() && reflect.DeepEqual(v.payload, other.payload)
}

func (v Value) String() string {
	switch v.Kind() {
	case KindEmpty:
		return "<empty>"
	case KindNumber:
		return strconv.FormatFloat(v.payload.(float64), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.payload.(bool))
	case KindText:
		return strconv.Quote(v.payload.(string))
	default:
		return fmt.Sprintf("%s(%v)", v.kind, v.payload)
	}
}

// FromAny converts a Go primitive into a Value.
// nil becomes Empty; integers and floats become Number.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Empty(), nil
	case Value:
		return t, nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Empty(), fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	default:
		return Empty(), fmt.Errorf("%w: unsupported type %T", ErrTypeMismatch, x)
	}
}

type valueJSON struct {
	Kind  ValueKind `json:"kind"`
	Value any       `json:"value,omitempty"`
}

// MarshalJSON encodes v as {"kind": ..., "value": ...}.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{Kind: v.Kind(), Value: v.payload})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
// Unknown kinds decode as Custom with the raw JSON payload.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind  ValueKind       `json:"kind"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case "", KindEmpty:
		*v = Empty()
	case KindNumber:
		var f float64
		if err := json.Unmarshal(raw.Value, &f); err != nil {
			return fmt.Errorf("value: decoding number: %w", err)
		}
		*v = Number(f)
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw.Value, &b); err != nil {
			return fmt.Errorf("value: decoding bool: %w", err)
		}
		*v = Bool(b)
	case KindText:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("value: decoding text: %w", err)
		}
		*v = Text(s)
	default:
		var payload any
		if len(raw.Value) > 0 {
			if err := json.Unmarshal(raw.Value, &payload); err != nil {
				return fmt.Errorf("value: decoding %s: %w", raw.Kind, err)
			}
		}
		*v = Custom(raw.Kind, payload)
	}
	return nil
}
