package kinds

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/schema"
)

// binary is a two-input numeric kind with a single "result" output.
type binary struct {
	name string
	op   func(a, b float64) float64
}

func (k *binary) Name() string { return k.name }

func (k *binary) Inputs() []domain.PortSpec {
	return []domain.PortSpec{
		domain.In("a", domain.Number(0)),
		domain.In("b", domain.Number(0)),
	}
}

func (k *binary) Outputs() []domain.PortSpec {
	return []domain.PortSpec{domain.Out("result")}
}

func (k *binary) Compute(_ context.Context, in domain.Inputs) (domain.Value, error) {
	a, err := numberOrZero(in, "a")
	if err != nil {
		return domain.Empty(), err
	}
	b, err := numberOrZero(in, "b")
	if err != nil {
		return domain.Empty(), err
	}
	return domain.Number(k.op(a, b)), nil
}

// numberOrZero reads a numeric input. Unconnected ports carry their Number(0)
// default; an upstream producer emitting Empty also counts as 0.
func numberOrZero(in domain.Inputs, label string) (float64, error) {
	v := in.Get(label)
	if v.IsEmpty() {
		return 0, nil
	}
	return in.Number(label)
}

// NewAdd returns a kind computing a + b.
func NewAdd() domain.Kind {
	return &binary{name: "add", op: func(a, b float64) float64 { return a + b }}
}

// NewSubtract returns a kind computing a - b.
func NewSubtract() domain.Kind {
	return &binary{name: "subtract", op: func(a, b float64) float64 { return a - b }}
}

// NewMultiply returns a kind computing a * b.
func NewMultiply() domain.Kind {
	return &binary{name: "multiply", op: func(a, b float64) float64 { return a * b }}
}

// ErrDivisionByZero is returned by Divide when b is 0.
var ErrDivisionByZero = errors.New("division by zero")

var divideSchema = schema.Schema{
	"a": schema.Number(),
	"b": schema.Number(),
}

// Divide computes a / b. Both inputs must carry numbers.
type Divide struct{}

// NewDivide returns a Divide kind.
func NewDivide() domain.Kind { return Divide{} }

func (Divide) Name() string { return "divide" }

func (Divide) Inputs() []domain.PortSpec {
	return []domain.PortSpec{
		domain.In("a", domain.Empty()),
		domain.In("b", domain.Empty()),
	}
}

func (Divide) Outputs() []domain.PortSpec {
	return []domain.PortSpec{domain.Out("result")}
}

// Schema exposes the input contract of Divide.
func (Divide) Schema() schema.Schema { return divideSchema }

func (Divide) Compute(_ context.Context, in domain.Inputs) (domain.Value, error) {
	if err := schema.Validate(divideSchema, in); err != nil {
		return domain.Empty(), err
	}
	a, b := in.Get("a").MustNumber(), in.Get("b").MustNumber()
	if b == 0 {
		return domain.Empty(), ErrDivisionByZero
	}
	return domain.Number(a / b), nil
}

// Negate computes -value.
type Negate struct{}

// NewNegate returns a Negate kind.
func NewNegate() domain.Kind { return Negate{} }

func (Negate) Name() string { return "negate" }

func (Negate) Inputs() []domain.PortSpec {
	return []domain.PortSpec{domain.In("value", domain.Number(0))}
}

func (Negate) Outputs() []domain.PortSpec {
	return []domain.PortSpec{domain.Out("result")}
}

func (Negate) Compute(_ context.Context, in domain.Inputs) (domain.Value, error) {
	f, err := numberOrZero(in, "value")
	if err != nil {
		return domain.Empty(), err
	}
	return domain.Number(-f), nil
}

// Split breaks a number into its integer and fractional parts.
// It exposes two outputs, "integer" and "fraction".
type Split struct{}

// NewSplit returns a Split kind.
func NewSplit() domain.Kind { return Split{} }

func (Split) Name() string { return "split" }

func (Split) Inputs() []domain.PortSpec {
	return []domain.PortSpec{domain.In("value", domain.Number(0))}
}

func (Split) Outputs() []domain.PortSpec {
	return []domain.PortSpec{domain.Out("integer"), domain.Out("fraction")}
}

func (s Split) Compute(ctx context.Context, in domain.Inputs) (domain.Value, error) {
	return s.ComputeOutput(ctx, "integer", in)
}

func (Split) ComputeOutput(_ context.Context, label string, in domain.Inputs) (domain.Value, error) {
	f, err := numberOrZero(in, "value")
	if err != nil {
		return domain.Empty(), err
	}
	whole, frac := math.Modf(f)
	switch label {
	case "integer":
		return domain.Number(whole), nil
	case "fraction":
		return domain.Number(frac), nil
	default:
		return domain.Empty(), fmt.Errorf("split: %w: %q", domain.ErrPortNotFound, label)
	}
}
