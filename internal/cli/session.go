package cli

import (
	"context"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/presentation/tui"
	"github.com/aretw0/weft/pkg/runner"
)

// ReplOptions configures the interactive console.
type ReplOptions struct {
	JSON     bool
	Headless bool
	AutoTick bool

	// Stdin and Stdout default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
}

// RunRepl runs the console on a fresh graph until quit or interrupt.
func RunRepl(ctx context.Context, env *Env, opts ReplOptions) error {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	tty := isTerminal(opts.Stdout)

	editorOpts := append(env.EditorOptions(), weft.WithOutput(opts.Stdout))
	if env.Metrics != nil {
		editorOpts = append(editorOpts, weft.WithPublisher(env.Metrics))
	}
	ed := weft.New(editorOpts...)

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.Stdin, opts.Stdout)
	} else {
		var textOpts []runner.TextHandlerOption
		if tty {
			textOpts = append(textOpts,
				runner.WithTextHandlerRenderer(tui.NewRenderer()),
				runner.WithTextHandlerFormatter(tui.FormatValue),
			)
		}
		if opts.Headless {
			textOpts = append(textOpts, runner.WithPrompt(""))
		}
		handler = runner.NewTextHandler(opts.Stdin, opts.Stdout, textOpts...)
	}

	if tty && !opts.Headless && !opts.JSON {
		tui.PrintBanner(opts.Stdout)
	}

	r := runner.NewRunner(
		runner.WithEditor(ed),
		runner.WithLogger(env.Logger),
		runner.WithInputHandler(handler),
		runner.WithHeadless(opts.Headless || opts.JSON),
		runner.WithAutoTick(opts.AutoTick),
	)
	defer r.Close()

	env.Logger.Debug("Console started", "json", opts.JSON, "headless", opts.Headless, "auto_tick", opts.AutoTick)
	return handleExecutionError(r.Run(ctx))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
