package graph_test

import (
	"errors"
	"testing"

	"github.com/aretw0/weft/internal/testutils"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ports(t *testing.T, s *graph.Store, from, to domain.NodeID, label string) (domain.PortID, domain.PortID) {
	t.Helper()
	out, err := s.OutputPort(from, "")
	require.NoError(t, err)
	in, err := s.InputPort(to, label)
	require.NoError(t, err)
	return out, in
}

func TestStore_AddNode(t *testing.T) {
	s := graph.New()
	id := testutils.MustAdd(t, s, testutils.Sum("a", "b"))

	n, err := s.Node(id)
	require.NoError(t, err)
	assert.Equal(t, "sum", n.Kind.Name())
	assert.Len(t, n.Inputs, 2)
	assert.Len(t, n.Outputs, 1)

	p, err := s.Port(n.Inputs[1])
	require.NoError(t, err)
	assert.Equal(t, "b", p.Label)
	assert.Equal(t, domain.DirectionInput, p.Direction)
	assert.Equal(t, id, p.Node)

	t.Run("HandlesAreNeverReused", func(t *testing.T) {
		require.NoError(t, s.RemoveNode(id))
		next := testutils.MustAdd(t, s, testutils.Sum("a"))
		assert.Greater(t, uint64(next), uint64(id))
	})

	t.Run("InvalidKind", func(t *testing.T) {
		_, err := s.AddNode(&testutils.FuncKind{KindName: "dup", In: []domain.PortSpec{domain.In("x", domain.Empty()), domain.In("x", domain.Empty())}})
		assert.ErrorIs(t, err, domain.ErrInvalidKind)
	})
}

func TestStore_Connect(t *testing.T) {
	s := graph.New()
	v1 := testutils.MustAdd(t, s, testutils.Source(domain.Number(5)))
	v2 := testutils.MustAdd(t, s, testutils.Source(domain.Number(7)))
	add := testutils.MustAdd(t, s, testutils.Sum("a", "b"))

	out1, inA := ports(t, s, v1, add, "a")
	out2, inB := ports(t, s, v2, add, "b")

	require.NoError(t, s.Connect(out1, inA))
	require.NoError(t, s.Connect(out2, inB))

	got, ok := s.ProducerOf(inA)
	require.True(t, ok)
	assert.Equal(t, out1, got)

	t.Run("AlreadyConnected", func(t *testing.T) {
		err := s.Connect(out2, inA)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAlreadyConnected)

		var cerr *domain.ConnectionError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, inA, cerr.Input)

		got, _ := s.ProducerOf(inA)
		assert.Equal(t, out1, got, "failed connect must not replace the producer")
	})

	t.Run("FanOut", func(t *testing.T) {
		other := testutils.MustAdd(t, s, testutils.Sum("x"))
		_, inX := ports(t, s, v1, other, "x")
		require.NoError(t, s.Connect(out1, inX))
		assert.Equal(t, []domain.PortID{inA, inX}, s.ConsumersOf(out1))
	})

	t.Run("SelfLoop", func(t *testing.T) {
		loop := testutils.MustAdd(t, s, testutils.Sum("x"))
		out, in := ports(t, s, loop, loop, "x")
		err := s.Connect(out, in)
		assert.ErrorIs(t, err, domain.ErrIncompatibleEndpoint)
		_, ok := s.ProducerOf(in)
		assert.False(t, ok)
	})

	t.Run("WrongDirection", func(t *testing.T) {
		assert.ErrorIs(t, s.Connect(inA, out2), domain.ErrIncompatibleEndpoint)
		assert.ErrorIs(t, s.Connect(inA, inB), domain.ErrIncompatibleEndpoint)
	})

	t.Run("UnknownPort", func(t *testing.T) {
		assert.ErrorIs(t, s.Connect(out1, 9999), domain.ErrPortNotFound)
	})
}

func TestStore_Reconnect(t *testing.T) {
	s := graph.New()
	v1 := testutils.MustAdd(t, s, testutils.Source(domain.Number(1)))
	v2 := testutils.MustAdd(t, s, testutils.Source(domain.Number(2)))
	sink := testutils.MustAdd(t, s, testutils.Sum("a"))

	out1, in := ports(t, s, v1, sink, "a")
	out2, _ := ports(t, s, v2, sink, "a")

	require.NoError(t, s.Connect(out1, in))
	s.Drain()

	require.NoError(t, s.Reconnect(out2, in))
	got, _ := s.ProducerOf(in)
	assert.Equal(t, out2, got)
	assert.Empty(t, s.ConsumersOf(out1))

	events := s.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventConnectionRemoved, events[0].Type)
	assert.Equal(t, out1, events[0].Output)
	assert.Equal(t, domain.EventConnectionAdded, events[1].Type)
	assert.Equal(t, out2, events[1].Output)

	t.Run("FailureKeepsPrevious", func(t *testing.T) {
		sinkOut, err := s.OutputPort(sink, "")
		require.NoError(t, err)
		assert.ErrorIs(t, s.Reconnect(sinkOut, in), domain.ErrIncompatibleEndpoint)
		got, _ := s.ProducerOf(in)
		assert.Equal(t, out2, got)
	})

	t.Run("SameProducerIsNoop", func(t *testing.T) {
		s.Drain()
		require.NoError(t, s.Reconnect(out2, in))
		assert.Empty(t, s.Drain())
	})
}

func TestStore_Disconnect(t *testing.T) {
	s := graph.New()
	v := testutils.MustAdd(t, s, testutils.Source(domain.Number(1)))
	sum := testutils.MustAdd(t, s, testutils.Sum("a"))
	out, in := ports(t, s, v, sum, "a")
	require.NoError(t, s.Connect(out, in))

	require.NoError(t, s.Disconnect(in))
	_, ok := s.ProducerOf(in)
	assert.False(t, ok)
	assert.Empty(t, s.ConsumersOf(out))

	// Disconnecting again is a no-op.
	require.NoError(t, s.Disconnect(in))

	assert.ErrorIs(t, s.Disconnect(4242), domain.ErrPortNotFound)
	assert.ErrorIs(t, s.Disconnect(out), domain.ErrIncompatibleEndpoint)
}

func TestStore_RemoveNodeCascades(t *testing.T) {
	s := graph.New()
	v1 := testutils.MustAdd(t, s, testutils.Source(domain.Number(5)))
	mid := testutils.MustAdd(t, s, testutils.Sum("a"))
	d1 := testutils.MustAdd(t, s, testutils.Sum("x"))
	d2 := testutils.MustAdd(t, s, testutils.Sum("y"))

	testutils.MustWire(t, s, v1, mid, "a")
	testutils.MustWire(t, s, mid, d1, "x")
	testutils.MustWire(t, s, mid, d2, "y")
	inA, _ := s.InputPort(mid, "a")
	inX, _ := s.InputPort(d1, "x")
	inY, _ := s.InputPort(d2, "y")
	out1, _ := s.OutputPort(v1, "")
	s.Drain()

	require.NoError(t, s.RemoveNode(mid))

	for _, in := range []domain.PortID{inX, inY} {
		_, ok := s.ProducerOf(in)
		assert.False(t, ok)
	}
	assert.Empty(t, s.ConsumersOf(out1))
	assert.Empty(t, s.Connections())
	_, err := s.Node(mid)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	_, err = s.Port(inA)
	assert.ErrorIs(t, err, domain.ErrPortNotFound)

	events := s.Drain()
	require.Len(t, events, 4)
	for _, ev := range events[:3] {
		assert.Equal(t, domain.EventConnectionRemoved, ev.Type)
		assert.True(t, ev.Touches(mid))
	}
	assert.Equal(t, domain.EventNodeRemoved, events[3].Type)
	assert.Equal(t, mid, events[3].Node)

	assert.ErrorIs(t, s.RemoveNode(mid), domain.ErrNodeNotFound)
}

func TestStore_Busy(t *testing.T) {
	s := graph.New()
	v := testutils.MustAdd(t, s, testutils.Source(domain.Number(1)))
	sum := testutils.MustAdd(t, s, testutils.Sum("a"))
	out, in := ports(t, s, v, sum, "a")

	release := s.Hold()
	assert.True(t, s.Busy())

	_, err := s.AddNode(testutils.Sum())
	assert.ErrorIs(t, err, domain.ErrGraphBusy)
	assert.ErrorIs(t, s.Connect(out, in), domain.ErrGraphBusy)
	assert.ErrorIs(t, s.Reconnect(out, in), domain.ErrGraphBusy)
	assert.ErrorIs(t, s.Disconnect(in), domain.ErrGraphBusy)
	assert.ErrorIs(t, s.RemoveNode(v), domain.ErrGraphBusy)

	release()
	release()
	assert.False(t, s.Busy())
	assert.NoError(t, s.Connect(out, in))
}

func TestStore_SingleProducerInvariant(t *testing.T) {
	s := graph.New()
	var sources []domain.NodeID
	for i := 0; i < 4; i++ {
		sources = append(sources, testutils.MustAdd(t, s, testutils.Source(domain.Number(float64(i)))))
	}
	target := testutils.MustAdd(t, s, testutils.Sum("a", "b"))
	inA, _ := s.InputPort(target, "a")
	inB, _ := s.InputPort(target, "b")

	for i, src := range sources {
		out, _ := s.OutputPort(src, "")
		_, occupied := s.ProducerOf(inA)
		switch i % 3 {
		case 0:
			err := s.Connect(out, inA)
			if occupied {
				assert.ErrorIs(t, err, domain.ErrAlreadyConnected)
			} else {
				assert.NoError(t, err)
			}
		case 1:
			require.NoError(t, s.Reconnect(out, inA))
			producer, ok := s.ProducerOf(inA)
			require.True(t, ok)
			assert.Equal(t, out, producer, "reconnect replaces the producer")
		case 2:
			require.NoError(t, s.Disconnect(inA))
			_, ok := s.ProducerOf(inA)
			assert.False(t, ok)
		}
		require.NoError(t, s.Reconnect(out, inB))

		counts := map[domain.PortID]int{}
		for _, c := range s.Connections() {
			counts[c.Input]++
			assert.Contains(t, s.ConsumersOf(c.Output), c.Input)
		}
		for in, n := range counts {
			assert.Equal(t, 1, n, "input %s has %d producers", in, n)
		}
	}
}

func TestStore_Snapshot(t *testing.T) {
	s := graph.New()
	v := testutils.MustAdd(t, s, testutils.Source(domain.Number(5)))
	sum := testutils.MustAdd(t, s, testutils.Sum("a", "b"))
	testutils.MustWire(t, s, v, sum, "a")

	snap := s.Snapshot()
	require.Len(t, snap.Nodes, 2)
	require.Len(t, snap.Connections, 1)

	ns, ok := snap.Node(sum)
	require.True(t, ok)
	assert.Equal(t, "sum", ns.Kind)
	require.Len(t, ns.Inputs, 2)
	assert.Equal(t, snap.Connections[0].Output, ns.Inputs[0].Producer)
	assert.Equal(t, domain.NoPort, ns.Inputs[1].Producer)
}
