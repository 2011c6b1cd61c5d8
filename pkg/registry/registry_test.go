package registry_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/weft/internal/testutils"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/registry"
	"github.com/aretw0/weft/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("source", func(params map[string]any) (domain.Kind, error) {
		var p struct {
			Value domain.Value `mapstructure:"value"`
		}
		if err := registry.Decode(params, &p); err != nil {
			return nil, err
		}
		return testutils.Source(p.Value), nil
	}, registry.WithDescription("test source"))

	assert.True(t, reg.Has("source"))
	assert.Equal(t, []string{"source"}, reg.Names())

	k, err := reg.New("source", map[string]any{"value": 2.5})
	require.NoError(t, err)
	v, err := k.Compute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.MustNumber())

	_, err = reg.New("missing", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
	_, err = reg.Describe("missing")
	assert.ErrorIs(t, err, domain.ErrUnknownKind)

	d, err := reg.Describe("source")
	require.NoError(t, err)
	assert.Equal(t, "test source", d.Description)
	assert.Equal(t, "out", d.Outputs[0].Label)

	assert.Nil(t, d.Schema)

	all, err := reg.DescribeAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

type typedKind struct {
	*testutils.FuncKind
}

func (typedKind) Schema() schema.Schema {
	return schema.Schema{"x": schema.Optional(schema.Number())}
}

func TestRegistry_DescribeSchema(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("typed", func(map[string]any) (domain.Kind, error) {
		return typedKind{&testutils.FuncKind{
			KindName: "typed",
			In:       []domain.PortSpec{domain.In("x", domain.Empty())},
			Out:      []domain.PortSpec{domain.Out("out")},
		}}, nil
	})
	reg.Register("untyped", func(map[string]any) (domain.Kind, error) {
		return testutils.Source(domain.Number(1)), nil
	})

	d, err := reg.Describe("typed")
	require.NoError(t, err)
	require.Contains(t, d.Schema, "x")
	assert.Equal(t, "?number", d.Schema["x"].Name())

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"schema":{"x":"?number"}`)

	d, err = reg.Describe("untyped")
	require.NoError(t, err)
	raw, err = json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"schema"`)
}

func TestRegistry_RejectsInvalidKinds(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("broken", func(map[string]any) (domain.Kind, error) {
		return &testutils.FuncKind{KindName: "broken", Out: []domain.PortSpec{domain.Out("x"), domain.Out("x")}}, nil
	})
	_, err := reg.New("broken", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestDecode(t *testing.T) {
	var p struct {
		Value  domain.Value `mapstructure:"value"`
		Prefix string       `mapstructure:"prefix"`
		Count  int          `mapstructure:"count"`
	}
	err := registry.Decode(map[string]any{"value": true, "prefix": "x", "count": "3"}, &p)
	require.NoError(t, err)
	assert.True(t, p.Value.MustBool())
	assert.Equal(t, "x", p.Prefix)
	assert.Equal(t, 3, p.Count)

	err = registry.Decode(map[string]any{"extra": 1}, &p)
	assert.Error(t, err)

	err = registry.Decode(map[string]any{"value": []int{1}}, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}
