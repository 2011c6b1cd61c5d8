package cli_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/cli"
	wefthttp "github.com/aretw0/weft/pkg/adapters/http"
	"github.com/aretw0/weft/pkg/domain"
)

func setup(t *testing.T, yaml string) *cli.Env {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	env, err := cli.Setup(context.Background(), cli.Options{ConfigPath: path, Quiet: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close(context.Background()) })
	return env
}

func TestSetup(t *testing.T) {
	env := setup(t, "log_level: warn\nmetrics:\n  enabled: false\n")
	assert.Equal(t, "warn", env.Config.LogLevel)
	assert.Nil(t, env.Metrics)
	assert.NotNil(t, env.Logger)

	_, err := cli.Setup(context.Background(), cli.Options{
		ConfigPath: filepath.Join(t.TempDir(), "none.yaml"),
		LogLevel:   "shouty",
	})
	assert.ErrorContains(t, err, "invalid log level")
}

func TestRunDemo(t *testing.T) {
	env := setup(t, "")
	var out bytes.Buffer
	require.NoError(t, cli.RunDemo(context.Background(), env, &out))

	got := out.String()
	assert.Contains(t, got, "graph LR")
	assert.Contains(t, got, "sum = 12\n")
	assert.Contains(t, got, "print: 12\n")
	assert.True(t, strings.HasSuffix(got, "disconnected v1 -> sum.a\nsum = 7\n"), got)
}

func TestRunRepl_JSON(t *testing.T) {
	env := setup(t, "")
	in := strings.NewReader("add constant value=3\nadd negate\nconnect n1 n2\neval n2\n")
	var out bytes.Buffer

	err := cli.RunRepl(context.Background(), env, cli.ReplOptions{JSON: true, Stdin: in, Stdout: &out})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[3], `"value":{"kind":"number","value":-3}`)
}

func TestRunRepl_TextHeadless(t *testing.T) {
	env := setup(t, "")
	in := strings.NewReader("add constant value=1\nadd print\nconnect n1 n2\neval n2\nquit\n")
	var out bytes.Buffer

	err := cli.RunRepl(context.Background(), env, cli.ReplOptions{Headless: true, Stdin: in, Stdout: &out})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1\nn2 (print) = <empty>\n", "print nodes write to the console output")
	assert.NotContains(t, out.String(), "[System]")
}

func TestPrintKinds(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, cli.PrintKinds(&out))
	got := out.String()
	assert.True(t, strings.HasPrefix(got, "KIND"))
	assert.Regexp(t, `split\s+value\s+integer,fraction`, got)
	assert.Regexp(t, `constant\s+-\s+value`, got)
}

func TestServeHandler(t *testing.T) {
	env := setup(t, "")
	streams := wefthttp.NewStreamManager()
	mgr, closeBus, err := env.NewSessionManager(streams)
	require.NoError(t, err)
	defer closeBus()

	srv := httptest.NewServer(env.NewServeHandler(mgr, streams))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sessions", "application/json", strings.NewReader(`{"id":"s1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/sessions/s1/nodes", "application/json", strings.NewReader(`{"kind":"negate"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `weft_graph_events_total{type="node_added"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServeHandler_MetricsDisabled(t *testing.T) {
	env := setup(t, "metrics:\n  enabled: false\n")
	mgr, _, err := env.NewSessionManager()
	require.NoError(t, err)

	srv := httptest.NewServer(env.NewServeHandler(mgr, wefthttp.NewStreamManager()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewSessionManager_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	env := setup(t, "redis:\n  url: redis://"+mr.Addr()+"\n  prefix: test:\n")

	mgr, closeBus, err := env.NewSessionManager()
	require.NoError(t, err)

	ctx := context.Background()
	_, err = mgr.Create(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, mgr.Do(ctx, "s1", func(ctx context.Context, ed *weft.Editor) error {
		_, err := ed.AddNodeByName("negate", nil)
		return err
	}))
	require.NoError(t, closeBus(), "close writes the queued events")

	keys := mr.Keys()
	assert.NotEmpty(t, keys)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "test:"), k)
	}
}

func TestEditorOptions_Debug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.yaml")
	env, err := cli.Setup(context.Background(), cli.Options{ConfigPath: path, Debug: true})
	require.NoError(t, err)
	defer env.Close(context.Background())

	ed := weft.New(env.EditorOptions()...)
	id, err := ed.AddNodeByName("constant", map[string]any{"value": 2.0})
	require.NoError(t, err)
	v, err := ed.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, v.Equal(domain.Number(2)))
}
