package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	mermaid "github.com/aretw0/weft/internal/presentation/graph"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/aretw0/weft/pkg/graph"
)

type command struct {
	usage   string
	summary string
	mutates bool
	run     func(r *Runner, ctx context.Context, args []string) (Reply, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"add":        {"add <kind> [key=value ...]", "Add a node of a registered kind", true, (*Runner).cmdAdd},
		"connect":    {"connect <node[.output]> <node[.input]>", "Feed an input that has no producer yet", true, (*Runner).cmdConnect},
		"reconnect":  {"reconnect <node[.output]> <node[.input]>", "Feed an input, replacing its producer", true, (*Runner).cmdReconnect},
		"disconnect": {"disconnect <node.input>", "Remove the connection feeding an input", true, (*Runner).cmdDisconnect},
		"rm":         {"rm <node>", "Remove a node and its connections", true, (*Runner).cmdRemove},
		"eval":       {"eval <node[.output]>", "Resolve a node now", false, (*Runner).cmdEval},
		"watch":      {"watch <node> ...", "Recompute nodes on tick when they or their inputs change", false, (*Runner).cmdWatch},
		"unwatch":    {"unwatch <node> ...", "Stop watching nodes", false, (*Runner).cmdUnwatch},
		"tick":       {"tick", "Resolve every dirty watched node once", false, (*Runner).cmdTick},
		"ls":         {"ls", "List nodes and their ports", false, (*Runner).cmdList},
		"graph":      {"graph [mermaid|json]", "Print the graph", false, (*Runner).cmdGraph},
		"kinds":      {"kinds", "List the available node kinds", false, (*Runner).cmdKinds},
		"help":       {"help", "Show this help", false, (*Runner).cmdHelp},
		"quit":       {"quit", "Leave the console", false, (*Runner).cmdQuit},
	}
	commands["exit"] = commands["quit"]
}

// Execute runs one command line. Command failures are reported in the
// Reply; the error is ErrQuit for quit and nil otherwise.
func (r *Runner) Execute(ctx context.Context, line string) (Reply, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Reply{}, nil
	}
	name, args := fields[0], fields[1:]

	cmd, ok := commands[name]
	if !ok {
		return Reply{Command: name, Error: fmt.Sprintf("unknown command %q, try 'help'", name)}, nil
	}

	reply, err := cmd.run(r, ctx, args)
	reply.Command = name
	if errors.Is(err, ErrQuit) {
		return reply, err
	}
	if err != nil {
		r.Logger.Debug("command failed", "command", name, "err", err)
		reply.Error = err.Error()
		return reply, nil
	}

	if cmd.mutates && r.AutoTick {
		reply.Samples = append(reply.Samples, r.watcher.Tick(ctx)...)
	}
	return reply, nil
}

func (r *Runner) cmdAdd(ctx context.Context, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{}, usageError("add")
	}
	params := make(map[string]any)
	for _, kv := range args[1:] {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return Reply{}, fmt.Errorf("parameter %q: expected key=value", kv)
		}
		params[key] = parseParam(raw)
	}

	id, err := r.editor.AddNodeByName(args[0], params)
	if err != nil {
		return Reply{}, err
	}
	node, _ := r.editor.Snapshot().Node(id)
	return Reply{Text: describeNode(node)}, nil
}

func (r *Runner) cmdConnect(ctx context.Context, args []string) (Reply, error) {
	return r.wire(args, false, "connect")
}

func (r *Runner) cmdReconnect(ctx context.Context, args []string) (Reply, error) {
	return r.wire(args, true, "reconnect")
}

func (r *Runner) wire(args []string, replace bool, name string) (Reply, error) {
	if len(args) != 2 {
		return Reply{}, usageError(name)
	}
	from, fromLabel, err := parseAddress(args[0])
	if err != nil {
		return Reply{}, err
	}
	to, toLabel, err := parseAddress(args[1])
	if err != nil {
		return Reply{}, err
	}
	if toLabel == "" {
		if toLabel, err = r.onlyInput(to); err != nil {
			return Reply{}, err
		}
	}
	if err := r.editor.Wire(from, fromLabel, to, toLabel, replace); err != nil {
		return Reply{}, err
	}
	return Reply{Text: fmt.Sprintf("%s -> %s.%s", args[0], to, toLabel)}, nil
}

func (r *Runner) cmdDisconnect(ctx context.Context, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{}, usageError("disconnect")
	}
	id, label, err := parseAddress(args[0])
	if err != nil {
		return Reply{}, err
	}
	if label == "" {
		if label, err = r.onlyInput(id); err != nil {
			return Reply{}, err
		}
	}
	in, err := r.editor.InputPort(id, label)
	if err != nil {
		return Reply{}, err
	}
	if err := r.editor.Disconnect(in); err != nil {
		return Reply{}, err
	}
	return Reply{Text: fmt.Sprintf("%s.%s disconnected", id, label)}, nil
}

func (r *Runner) cmdRemove(ctx context.Context, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{}, usageError("rm")
	}
	id, err := domain.ParseNodeID(args[0])
	if err != nil {
		return Reply{}, err
	}
	if err := r.editor.RemoveNode(id); err != nil {
		return Reply{}, err
	}
	return Reply{Text: fmt.Sprintf("%s removed", id)}, nil
}

func (r *Runner) cmdEval(ctx context.Context, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{}, usageError("eval")
	}
	id, label, err := parseAddress(args[0])
	if err != nil {
		return Reply{}, err
	}
	if _, err := r.editor.Node(id); err != nil {
		return Reply{}, err
	}
	return Reply{Samples: []Sample{sample(ctx, r.editor, id, label)}}, nil
}

func (r *Runner) cmdWatch(ctx context.Context, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{}, usageError("watch")
	}
	for _, a := range args {
		id, err := domain.ParseNodeID(a)
		if err != nil {
			return Reply{}, err
		}
		if err := r.watcher.Watch(id); err != nil {
			return Reply{}, err
		}
	}
	return Reply{Text: "watching " + joinIDs(r.watcher.Watched())}, nil
}

func (r *Runner) cmdUnwatch(ctx context.Context, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{}, usageError("unwatch")
	}
	for _, a := range args {
		id, err := domain.ParseNodeID(a)
		if err != nil {
			return Reply{}, err
		}
		if !r.watcher.Unwatch(id) {
			return Reply{}, fmt.Errorf("%s is not watched", id)
		}
	}
	return Reply{Text: "watching " + joinIDs(r.watcher.Watched())}, nil
}

func (r *Runner) cmdTick(ctx context.Context, args []string) (Reply, error) {
	events := r.editor.Drain()
	samples := r.watcher.Tick(ctx)
	return Reply{
		Text:    fmt.Sprintf("frame: %d events, %d recomputed", len(events), len(samples)),
		Samples: samples,
	}, nil
}

func (r *Runner) cmdList(ctx context.Context, args []string) (Reply, error) {
	snap := r.editor.Snapshot()
	if len(snap.Nodes) == 0 {
		return Reply{Text: "(empty graph)"}, nil
	}
	lines := make([]string, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		lines = append(lines, describeNode(n))
	}
	return Reply{Text: strings.Join(lines, "\n")}, nil
}

func (r *Runner) cmdGraph(ctx context.Context, args []string) (Reply, error) {
	format := "mermaid"
	if len(args) > 0 {
		format = args[0]
	}
	snap := r.editor.Snapshot()
	switch format {
	case "mermaid":
		overlay := &mermaid.GraphOverlay{Watched: r.watcher.Watched(), Dirty: r.watcher.Dirty()}
		return Reply{Text: mermaid.GenerateMermaid(snap, overlay)}, nil
	case "json":
		raw, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: string(raw)}, nil
	default:
		return Reply{}, usageError("graph")
	}
}

func (r *Runner) cmdKinds(ctx context.Context, args []string) (Reply, error) {
	kinds, err := r.editor.Registry().DescribeAll()
	if err != nil {
		return Reply{}, err
	}
	var sb strings.Builder
	sb.WriteString("# Kinds\n\n")
	for _, k := range kinds {
		fmt.Fprintf(&sb, "- `%s`", k.Name)
		if len(k.Inputs) > 0 {
			labels := make([]string, len(k.Inputs))
			for i, p := range k.Inputs {
				labels[i] = p.Label
			}
			fmt.Fprintf(&sb, " (%s)", strings.Join(labels, ", "))
		}
		if len(k.Outputs) > 1 {
			labels := make([]string, len(k.Outputs))
			for i, p := range k.Outputs {
				labels[i] = p.Label
			}
			fmt.Fprintf(&sb, " -> %s", strings.Join(labels, ", "))
		}
		if k.Description != "" {
			sb.WriteString(": " + k.Description)
		}
		sb.WriteString("\n")
	}
	return Reply{Text: sb.String(), Markdown: true}, nil
}

func (r *Runner) cmdHelp(ctx context.Context, args []string) (Reply, error) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		if name != "exit" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("# Commands\n\n")
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(&sb, "- `%s`: %s\n", c.usage, c.summary)
	}
	sb.WriteString("\nNodes are addressed by handle (`n3` or `3`), ports by `node.label`.\n")
	return Reply{Text: sb.String(), Markdown: true}, nil
}

func (r *Runner) cmdQuit(ctx context.Context, args []string) (Reply, error) {
	return Reply{}, ErrQuit
}

func (r *Runner) onlyInput(id domain.NodeID) (string, error) {
	node, err := r.editor.Node(id)
	if err != nil {
		return "", err
	}
	if len(node.Inputs) != 1 {
		return "", fmt.Errorf("%s has %d inputs, name one: %w", id, len(node.Inputs), domain.ErrPortNotFound)
	}
	p, err := r.editor.Port(node.Inputs[0])
	if err != nil {
		return "", err
	}
	return p.Label, nil
}

func usageError(name string) error {
	return fmt.Errorf("usage: %s", commands[name].usage)
}

// parseAddress reads "n3" or "n3.label".
func parseAddress(addr string) (domain.NodeID, string, error) {
	node, label := dsl.SplitAddress(addr)
	id, err := domain.ParseNodeID(node)
	return id, label, err
}

// parseParam reads numbers and booleans; anything else is text.
func parseParam(raw string) any {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if unq, err := strconv.Unquote(raw); err == nil {
		return unq
	}
	return raw
}

func describeNode(n graph.NodeSnapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", n.ID, n.Kind)
	for _, p := range n.Inputs {
		fmt.Fprintf(&sb, "  %s:%s", p.Label, p.ID)
		if p.Producer != domain.NoPort {
			fmt.Fprintf(&sb, "<-%s", p.Producer)
		}
	}
	for _, p := range n.Outputs {
		fmt.Fprintf(&sb, "  ->%s:%s", p.Label, p.ID)
	}
	return sb.String()
}

func joinIDs(ids []domain.NodeID) string {
	if len(ids) == 0 {
		return "nothing"
	}
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = id.String()
	}
	return strings.Join(s, " ")
}
