package runner_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Input(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(strings.NewReader("  eval n1  \nls"), &out, runner.WithPrompt("weft> "))

	line, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eval n1", line)

	line, err = h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ls", line, "a final line without newline is still read")

	_, err = h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "weft> weft> weft> ", out.String())
}

func TestTextHandler_InputRetriesInvalidUTF8(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(strings.NewReader("bad\xffline\nls\n"), &out)

	line, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ls", line)
	assert.Contains(t, out.String(), "Please try again")
}

func TestTextHandler_Output(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(nil, &out,
		runner.WithTextHandlerRenderer(func(s string) (string, error) { return strings.ToUpper(s), nil }),
		runner.WithTextHandlerFormatter(func(v domain.Value) string { return "<" + v.String() + ">" }),
	)

	err := h.Output(context.Background(), runner.Reply{
		Text:     "# done",
		Markdown: true,
		Samples: []runner.Sample{
			{Node: 3, Kind: "add", Value: domain.Number(12)},
			{Node: 4, Kind: "split", Output: "fraction", Value: domain.Empty(), Err: "boom"},
		},
		Error: "partial",
	})
	require.NoError(t, err)
	assert.Equal(t, "# DONE\nn3 (add) = <12>\nn4.fraction (split) = <<empty>>  ! boom\nError: partial\n", out.String())
}

func TestTextHandler_RendererFailureFallsBack(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(nil, &out,
		runner.WithTextHandlerRenderer(func(string) (string, error) { return "", errors.New("no tty") }),
	)
	require.NoError(t, h.Output(context.Background(), runner.Reply{Text: "**plain**", Markdown: true}))
	assert.Equal(t, "**plain**\n", out.String())
}

func TestTextHandler_SystemOutput(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewTextHandler(nil, &out)
	require.NoError(t, h.SystemOutput(context.Background(), "hello"))
	assert.Equal(t, "[System] hello\n", out.String())
}
