package weft_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditor_EndToEnd(t *testing.T) {
	var out bytes.Buffer
	ed := weft.New(weft.WithOutput(&out))
	ctx := context.Background()

	v1, err := ed.AddNodeByName("constant", map[string]any{"value": 5})
	require.NoError(t, err)
	v2, err := ed.AddNodeByName("constant", map[string]any{"value": 7})
	require.NoError(t, err)
	add, err := ed.AddNodeByName("add", nil)
	require.NoError(t, err)
	sink, err := ed.AddNodeByName("print", nil)
	require.NoError(t, err)

	require.NoError(t, ed.Wire(v1, "value", add, "a", false))
	require.NoError(t, ed.Wire(v2, "value", add, "b", false))
	require.NoError(t, ed.Wire(add, "result", sink, "value", false))

	v, err := ed.Resolve(ctx, add)
	require.NoError(t, err)
	assert.Equal(t, 12.0, v.MustNumber())

	v, err = ed.Resolve(ctx, sink)
	require.NoError(t, err)
	assert.True(t, v.IsEmpty())
	assert.Equal(t, "12\n", out.String())

	inA, err := ed.InputPort(add, "a")
	require.NoError(t, err)
	port, err := ed.Port(inA)
	require.NoError(t, err)
	assert.True(t, port.Default.Equal(domain.Number(0)), "add.a defaults to 0, got %s", port.Default)

	require.NoError(t, ed.Disconnect(inA))

	v, err = ed.Resolve(ctx, add)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v.MustNumber())
}

func TestEditor_ConnectionRules(t *testing.T) {
	ed := weft.New()
	v1, _ := ed.AddNodeByName("constant", map[string]any{"value": 1})
	v2, _ := ed.AddNodeByName("constant", map[string]any{"value": 2})
	add, _ := ed.AddNodeByName("add", nil)

	require.NoError(t, ed.Wire(v1, "", add, "a", false))
	assert.ErrorIs(t, ed.Wire(v2, "", add, "a", false), domain.ErrAlreadyConnected)
	require.NoError(t, ed.Wire(v2, "", add, "a", true))

	inA, _ := ed.InputPort(add, "a")
	out2, _ := ed.OutputPort(v2, "")
	producer, ok := ed.ProducerOf(inA)
	require.True(t, ok)
	assert.Equal(t, out2, producer)
	assert.Equal(t, []domain.PortID{inA}, ed.ConsumersOf(out2))

	assert.ErrorIs(t, ed.Wire(add, "", add, "b", false), domain.ErrIncompatibleEndpoint)

	require.NoError(t, ed.RemoveNode(v2))
	_, ok = ed.ProducerOf(inA)
	assert.False(t, ok)

	_, err := ed.AddNodeByName("nope", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
}

func TestEditor_Events(t *testing.T) {
	bus := memory.NewEventBus()
	ed := weft.New(weft.WithName("g1"), weft.WithPublisher(bus))

	var seen []domain.EventType
	cancel := ed.Subscribe(func(ev domain.GraphEvent) { seen = append(seen, ev.Type) })
	defer cancel()

	v, _ := ed.AddNodeByName("constant", nil)
	n, _ := ed.AddNodeByName("negate", nil)
	require.NoError(t, ed.Wire(v, "", n, "value", false))
	require.NoError(t, ed.RemoveNode(v))

	want := []domain.EventType{
		domain.EventNodeAdded,
		domain.EventNodeAdded,
		domain.EventConnectionAdded,
		domain.EventConnectionRemoved,
		domain.EventNodeRemoved,
	}
	assert.Equal(t, want, seen)
	assert.Len(t, ed.Drain(), len(want))
	assert.Empty(t, ed.Drain())

	published := bus.Recorded("g1")
	require.Len(t, published, len(want))
	assert.Equal(t, domain.EventNodeRemoved, published[4].Type)
}

func TestEditor_LifecycleHooks(t *testing.T) {
	var entered int
	ed := weft.New(weft.WithLifecycleHooks(domain.LifecycleHooks{
		OnResolveEnter: func(context.Context, *domain.ResolveEvent) { entered++ },
	}))
	c, _ := ed.AddNodeByName("constant", map[string]any{"value": 3})
	n, _ := ed.AddNodeByName("negate", nil)
	require.NoError(t, ed.Wire(c, "", n, "value", false))

	v, err := ed.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, -3.0, v.MustNumber())
	assert.Equal(t, 2, entered)
}

func TestEditor_ResolvePort(t *testing.T) {
	ed := weft.New()
	c, _ := ed.AddNodeByName("constant", map[string]any{"value": 2.5})
	s, _ := ed.AddNodeByName("split", nil)
	require.NoError(t, ed.Wire(c, "", s, "value", false))

	frac, err := ed.OutputPort(s, "fraction")
	require.NoError(t, err)
	v, err := ed.ResolvePort(context.Background(), frac)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v.MustNumber())

	_, err = ed.OutputPort(s, "")
	assert.ErrorIs(t, err, domain.ErrPortNotFound, "split has two outputs, a label is required")

	snap := ed.Snapshot()
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Connections, 1)
}
