package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/logging"
)

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// Runner is the interactive console over one graph editor.
// It reads commands through an IOHandler strategy, which abstracts the
// interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	Headless bool
	AutoTick bool

	editor  *weft.Editor
	watcher *Watcher
}

// NewRunner creates a console. Call Close when done with it.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	if r.editor == nil {
		r.editor = weft.New(weft.WithLogger(r.Logger))
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	r.watcher = NewWatcher(r.editor)
	return r
}

// Editor returns the graph being edited.
func (r *Runner) Editor() *weft.Editor {
	return r.editor
}

// Watcher returns the dirty tracker of watched nodes.
func (r *Runner) Watcher() *Watcher {
	return r.watcher
}

// Close detaches the runner from the editor.
func (r *Runner) Close() {
	r.watcher.Close()
}

// Run reads and executes commands until quit, end of input, or an interrupt.
func (r *Runner) Run(ctx context.Context) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	if !r.Headless {
		if err := r.Handler.SystemOutput(ctx, "weft console, type 'help' for commands"); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	for {
		line, err := r.Handler.Input(signals.Context())
		if err != nil {
			// Check if error is due to signal cancellation
			signals.CheckRace()
			if signals.Context().Err() != nil {
				r.Logger.Debug("Runner input: Context cancelled", "err", signals.Context().Err())
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		if line == "" {
			continue
		}

		reply, err := r.Execute(signals.Context(), line)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := r.Handler.Output(ctx, reply); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
}
