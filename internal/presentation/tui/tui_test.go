package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/internal/presentation/tui"
	"github.com/aretw0/weft/pkg/domain"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Equal(t, 7, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "\\_/\\_/")
}

func TestFormatValue(t *testing.T) {
	for _, v := range []domain.Value{domain.Empty(), domain.Number(12), domain.Bool(true), domain.Text("hi")} {
		assert.Contains(t, tui.FormatValue(v), v.String())
	}
}

func TestNewRenderer(t *testing.T) {
	render := tui.NewRenderer()
	out, err := render("# Kinds\n\n- `add`")
	require.NoError(t, err)
	assert.Contains(t, out, "add")
}
