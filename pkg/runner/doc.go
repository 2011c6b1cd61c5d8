/*
Package runner implements the interactive console over a weft graph.

The console reads one command per line, applies it to a weft.Editor and
prints the reply through a pluggable IOHandler (plain text for terminals,
JSON Lines for scripts and pipes).

# Watching and ticks

Nodes named with `watch` are tracked by a Watcher. Any graph event touching
a watched node, or a node upstream of it, marks it dirty. The `tick` command
drains the editor's event queue and resolves each dirty node once, which
gives a frame-by-frame view of a changing graph. With AutoTick enabled every
mutating command is followed by a tick.

# Usage

	r := runner.NewRunner(
		runner.WithEditor(weft.New()),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	defer r.Close()

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
