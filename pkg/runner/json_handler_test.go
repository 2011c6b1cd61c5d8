package runner_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandler_Input(t *testing.T) {
	h := runner.NewJSONHandler(strings.NewReader("\"eval n1\"\nls\n"), io.Discard)

	line, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eval n1", line)

	line, err = h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ls", line)

	_, err = h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONHandler_InputCancelled(t *testing.T) {
	h := runner.NewJSONHandler(strings.NewReader("ls\n"), io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONHandler_Output(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewJSONHandler(strings.NewReader(""), &out)

	require.NoError(t, h.Output(context.Background(), runner.Reply{
		Command: "eval",
		Samples: []runner.Sample{{Node: 3, Kind: "add", Value: domain.Number(12)}},
	}))
	assert.JSONEq(t,
		`{"command":"eval","samples":[{"node":3,"kind":"add","value":{"kind":"number","value":12}}]}`,
		out.String())

	out.Reset()
	require.NoError(t, h.SystemOutput(context.Background(), "ready"))
	assert.JSONEq(t, `{"system":"ready"}`, out.String())
}
