package kinds

import (
	"context"

	"github.com/aretw0/weft/pkg/domain"
)

// Constant emits a fixed value on its "value" output.
type Constant struct {
	Value domain.Value
}

// NewConstant returns a Constant kind emitting v.
func NewConstant(v domain.Value) *Constant { return &Constant{Value: v} }

func (k *Constant) Name() string { return "constant" }

func (k *Constant) Inputs() []domain.PortSpec { return nil }

func (k *Constant) Outputs() []domain.PortSpec {
	return []domain.PortSpec{domain.Out("value")}
}

func (k *Constant) Compute(context.Context, domain.Inputs) (domain.Value, error) {
	return k.Value, nil
}
