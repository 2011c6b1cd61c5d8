package runner

import (
	"context"

	"github.com/aretw0/weft/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads one command line from the user.
	Input(ctx context.Context) (string, error)

	// Output presents the outcome of one command.
	Output(ctx context.Context, reply Reply) error

	// SystemOutput presents a meta-message to the user (e.g. banners, status updates).
	// This is distinct from command output.
	SystemOutput(ctx context.Context, msg string) error
}

// Reply is the outcome of one console command.
type Reply struct {
	Command string `json:"command"`
	// Text is free-form output: tables, help, diagrams.
	Text string `json:"text,omitempty"`
	// Markdown marks Text as markdown for handlers that can render it.
	Markdown bool     `json:"markdown,omitempty"`
	Samples  []Sample `json:"samples,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Sample is one resolved node value.
type Sample struct {
	Node   domain.NodeID `json:"node"`
	Kind   string        `json:"kind"`
	Output string        `json:"output,omitempty"`
	Value  domain.Value  `json:"value"`
	// Err is set when resolution failed or broke cycles; Value is still
	// meaningful in the latter case.
	Err string `json:"error,omitempty"`
}

// ContentRenderer is a function that transforms markdown before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// ValueFormatter renders a value for display.
type ValueFormatter func(domain.Value) string
