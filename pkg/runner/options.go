package runner

import (
	"log/slog"

	"github.com/aretw0/weft"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithEditor sets the graph the console edits. Without it a fresh editor is created.
func WithEditor(ed *weft.Editor) Option {
	return func(r *Runner) {
		r.editor = ed
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithHeadless sets the runner to headless mode: no greeting is printed.
func WithHeadless(headless bool) Option {
	return func(r *Runner) {
		r.Headless = headless
	}
}

// WithAutoTick runs a frame after every command that changed the graph.
func WithAutoTick(auto bool) Option {
	return func(r *Runner) {
		r.AutoTick = auto
	}
}
