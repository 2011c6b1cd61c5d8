package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEventBusContract runs a suite of tests to verify that an EventBus
// implementation adheres to the defined interface contract.
func RunEventBusContract(t *testing.T, bus EventBus) {
	graph := "contract-test-graph-" + time.Now().Format("20060102150405")

	receive := func(t *testing.T, ch <-chan domain.GraphEvent) domain.GraphEvent {
		t.Helper()
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "channel closed before event arrived")
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
			return domain.GraphEvent{}
		}
	}

	t.Run("Publish and Receive In Order", func(t *testing.T) {
		ctx, cancelCtx := context.WithCancel(context.Background())
		defer cancelCtx()

		events, cancel, err := bus.Subscribe(ctx, graph)
		require.NoError(t, err)
		defer cancel()

		sent := []domain.GraphEvent{
			{Seq: 1, Type: domain.EventNodeAdded, Node: 1, Kind: "constant"},
			{Seq: 2, Type: domain.EventConnectionAdded, Output: 1, Input: 3, OutputNode: 1, InputNode: 2},
			{Seq: 3, Type: domain.EventNodeRemoved, Node: 1, Kind: "constant"},
		}
		for _, ev := range sent {
			require.NoError(t, bus.Publish(ctx, graph, ev))
		}
		for _, want := range sent {
			assert.Equal(t, want, receive(t, events))
		}
	})

	t.Run("Graphs Are Isolated", func(t *testing.T) {
		ctx, cancelCtx := context.WithCancel(context.Background())
		defer cancelCtx()

		other, cancelOther, err := bus.Subscribe(ctx, graph+"-other")
		require.NoError(t, err)
		defer cancelOther()
		mine, cancelMine, err := bus.Subscribe(ctx, graph)
		require.NoError(t, err)
		defer cancelMine()

		require.NoError(t, bus.Publish(ctx, graph, domain.GraphEvent{Seq: 10, Type: domain.EventNodeAdded, Node: 7}))
		require.NoError(t, bus.Publish(ctx, graph+"-other", domain.GraphEvent{Seq: 11, Type: domain.EventNodeAdded, Node: 8}))

		assert.Equal(t, domain.NodeID(7), receive(t, mine).Node)
		assert.Equal(t, domain.NodeID(8), receive(t, other).Node)
	})

	t.Run("Cancel Closes Channel", func(t *testing.T) {
		events, cancel, err := bus.Subscribe(context.Background(), graph)
		require.NoError(t, err)
		cancel()

		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("channel not closed after cancel")
			}
		}
	})
}
