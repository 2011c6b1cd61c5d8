package testutils

import (
	"context"
	"testing"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/stretchr/testify/require"
)

// ComputeFunc is the body of a FuncKind.
type ComputeFunc func(ctx context.Context, in domain.Inputs) (domain.Value, error)

// FuncKind is a configurable domain.Kind for tests.
type FuncKind struct {
	KindName string
	In       []domain.PortSpec
	Out      []domain.PortSpec
	Fn       ComputeFunc

	// Calls counts Compute invocations.
	Calls int
}

func (k *FuncKind) Name() string { return k.KindName }
func (k *FuncKind) Inputs() []domain.PortSpec { return k.In }
func (k *FuncKind) Outputs() []domain.PortSpec { return k.Out }

func (k *FuncKind) Compute(ctx context.Context, in domain.Inputs) (domain.Value, error) {
	k.Calls++
	if k.Fn == nil {
		return domain.Empty(), nil
	}
	return k.Fn(ctx, in)
}

// Source returns a kind with no inputs and one output "out" emitting v.
func Source(v domain.Value) *FuncKind {
	return &FuncKind{
		KindName: "source",
		Out:      []domain.PortSpec{domain.Out("out")},
		Fn: func(context.Context, domain.Inputs) (domain.Value, error) {
			return v, nil
		},
	}
}

// Sum returns a kind adding the numeric inputs labelled labels, treating Empty as 0.
func Sum(labels ...string) *FuncKind {
	k := &FuncKind{KindName: "sum", Out: []domain.PortSpec{domain.Out("out")}}
	for _, l := range labels {
		k.In = append(k.In, domain.In(l, domain.Empty()))
	}
	k.Fn = func(_ context.Context, in domain.Inputs) (domain.Value, error) {
		var total float64
		for _, l := range labels {
			total += in.NumberOr(l, 0)
		}
		return domain.Number(total), nil
	}
	return k
}

// Sink returns a kind with one input "in" and no output, recording what it sees.
func Sink(seen *[]domain.Value) *FuncKind {
	return &FuncKind{
		KindName: "sink",
		In:       []domain.PortSpec{domain.In("in", domain.Empty())},
		Fn: func(_ context.Context, in domain.Inputs) (domain.Value, error) {
			*seen = append(*seen, in.Get("in"))
			return domain.Empty(), nil
		},
	}
}

// MustAdd adds a node and fails the test on error.
func MustAdd(t *testing.T, s *graph.Store, k domain.Kind) domain.NodeID {
	t.Helper()
	id, err := s.AddNode(k)
	require.NoError(t, err)
	return id
}

// MustWire connects the output of from to the input labelled label on to.
func MustWire(t *testing.T, s *graph.Store, from domain.NodeID, to domain.NodeID, label string) {
	t.Helper()
	out, err := s.OutputPort(from, "")
	require.NoError(t, err)
	in, err := s.InputPort(to, label)
	require.NoError(t, err)
	require.NoError(t, s.Connect(out, in))
}
