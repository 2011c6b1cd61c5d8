package domain

import (
	"context"
	"fmt"
	"sort"
)

// Kind is the behaviour of a node: its port layout and its computation.
//
// A Kind value is immutable once a node is created from it and may carry
// kind-specific constant data (e.g. the literal of a constant node).
// Compute must be pure, except for sink kinds (no outputs) whose side effect
// is expected to run on every resolution.
type Kind interface {
	// Name identifies the kind (e.g. "add").
	Name() string
	// Inputs declares the input slots, in resolution order.
	Inputs() []PortSpec
	// Outputs declares zero or one output slot. More than one requires MultiOutput.
	Outputs() []PortSpec
	// Compute produces the node's output from its resolved inputs.
	// Every declared input label is present in in.
	Compute(ctx context.Context, in Inputs) (Value, error)
}

// MultiOutput is implemented by kinds that expose several logical outputs.
// The resolver calls ComputeOutput with the label of the requested output.
type MultiOutput interface {
	ComputeOutput(ctx context.Context, label string, in Inputs) (Value, error)
}

// IsSink reports whether k exposes no output.
func IsSink(k Kind) bool { return len(k.Outputs()) == 0 }

// ValidateKind checks that k declares unique labels per direction and
// at most one output unless it implements MultiOutput.
func ValidateKind(k Kind) error {
	if k == nil {
		return fmt.Errorf("%w: nil kind", ErrInvalidKind)
	}
	if err := uniqueLabels(k.Inputs()); err != nil {
		return fmt.Errorf("%w: %s inputs: %v", ErrInvalidKind, k.Name(), err)
	}
	if err := uniqueLabels(k.Outputs()); err != nil {
		return fmt.Errorf("%w: %s outputs: %v", ErrInvalidKind, k.Name(), err)
	}
	if _, multi := k.(MultiOutput); len(k.Outputs()) > 1 && !multi {
		return fmt.Errorf("%w: %s declares %d outputs without MultiOutput", ErrInvalidKind, k.Name(), len(k.Outputs()))
	}
	return nil
}

func uniqueLabels(specs []PortSpec) error {
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.Label == "" {
			return fmt.Errorf("empty label")
		}
		if seen[s.Label] {
			return fmt.Errorf("duplicate label %q", s.Label)
		}
		seen[s.Label] = true
	}
	return nil
}

// Inputs maps input labels to their resolved values.
type Inputs map[string]Value

// Get returns the value for label, or Empty.
func (in Inputs) Get(label string) Value {
	return in[label]
}

// Number converts the value for label to a float64.
func (in Inputs) Number(label string) (float64, error) {
	f, err := in[label].AsNumber()
	if err != nil {
		return 0, fmt.Errorf("input %q: %w", label, err)
	}
	return f, nil
}

// NumberOr returns the number for label, or fallback if it is not a Number.
func (in Inputs) NumberOr(label string, fallback float64) float64 {
	return in[label].NumberOr(fallback)
}

// Labels returns the input labels in lexical order.
func (in Inputs) Labels() []string {
	labels := make([]string, 0, len(in))
	for l := range in {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
