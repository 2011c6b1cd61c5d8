package ports_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

type publishFunc func(ctx context.Context, graph string, ev domain.GraphEvent) error

func (f publishFunc) Publish(ctx context.Context, graph string, ev domain.GraphEvent) error {
	return f(ctx, graph, ev)
}

func TestFanout(t *testing.T) {
	var a, b []uint64
	boom := errors.New("boom")

	pub := ports.Fanout(
		publishFunc(func(_ context.Context, _ string, ev domain.GraphEvent) error {
			a = append(a, ev.Seq)
			return boom
		}),
		nil,
		publishFunc(func(_ context.Context, _ string, ev domain.GraphEvent) error {
			b = append(b, ev.Seq)
			return nil
		}),
	)

	err := pub.Publish(context.Background(), "g", domain.GraphEvent{Seq: 1})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []uint64{1}, a)
	assert.Equal(t, []uint64{1}, b, "a failing publisher does not stop the others")

	assert.NoError(t, ports.Fanout().Publish(context.Background(), "g", domain.GraphEvent{}))
}
