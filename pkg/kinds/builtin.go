package kinds

import (
	"io"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/registry"
)

type constantParams struct {
	Value domain.Value `mapstructure:"value"`
}

type printParams struct {
	Prefix string `mapstructure:"prefix"`
}

// Register adds every builtin kind to r. Print nodes write to out.
func Register(r *registry.Registry, out io.Writer) {
	r.Register("constant", func(params map[string]any) (domain.Kind, error) {
		var p constantParams
		if err := registry.Decode(params, &p); err != nil {
			return nil, err
		}
		return NewConstant(p.Value), nil
	}, registry.WithDescription("Emits a fixed value (param: value)"))

	r.Register("add", noParams(NewAdd), registry.WithDescription("a + b, empty inputs count as 0"))
	r.Register("subtract", noParams(NewSubtract), registry.WithDescription("a - b, empty inputs count as 0"))
	r.Register("multiply", noParams(NewMultiply), registry.WithDescription("a * b, empty inputs count as 0"))
	r.Register("divide", noParams(NewDivide), registry.WithDescription("a / b, both inputs required"))
	r.Register("negate", noParams(NewNegate), registry.WithDescription("-value"))
	r.Register("split", noParams(NewSplit), registry.WithDescription("Integer and fractional parts of value"))

	r.Register("print", func(params map[string]any) (domain.Kind, error) {
		var p printParams
		if err := registry.Decode(params, &p); err != nil {
			return nil, err
		}
		k := NewPrint(out)
		k.Prefix = p.Prefix
		return k, nil
	}, registry.WithDescription("Writes its input, one line per resolution (param: prefix)"))
}

// NewRegistry returns a registry holding the builtin kinds.
func NewRegistry(out io.Writer) *registry.Registry {
	r := registry.NewRegistry()
	Register(r, out)
	return r
}

func noParams(ctor func() domain.Kind) registry.Factory {
	return func(params map[string]any) (domain.Kind, error) {
		if err := registry.Decode(params, &struct{}{}); err != nil {
			return nil, err
		}
		return ctor(), nil
	}
}
