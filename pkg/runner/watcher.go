package runner

import (
	"context"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/domain"
)

// Watcher tracks which watched nodes need to be recomputed.
//
// A watched node becomes dirty when a graph event touches it or any node
// upstream of it. Tick resolves every dirty node once and clears the marks.
type Watcher struct {
	editor *weft.Editor
	order  []domain.NodeID
	dirty  map[domain.NodeID]bool
	cancel func()
}

// NewWatcher subscribes to the editor's graph events.
func NewWatcher(ed *weft.Editor) *Watcher {
	w := &Watcher{
		editor: ed,
		dirty:  make(map[domain.NodeID]bool),
	}
	w.cancel = ed.Subscribe(w.observe)
	return w
}

// Close stops observing the editor.
func (w *Watcher) Close() {
	w.cancel()
}

// Watch adds id to the watch list and marks it dirty.
func (w *Watcher) Watch(id domain.NodeID) error {
	if _, err := w.editor.Node(id); err != nil {
		return err
	}
	if _, ok := w.dirty[id]; !ok {
		w.order = append(w.order, id)
	}
	w.dirty[id] = true
	return nil
}

// Unwatch removes id from the watch list. It reports whether id was watched.
func (w *Watcher) Unwatch(id domain.NodeID) bool {
	if _, ok := w.dirty[id]; !ok {
		return false
	}
	delete(w.dirty, id)
	for i, n := range w.order {
		if n == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

// Watched returns the watched nodes in the order they were added.
func (w *Watcher) Watched() []domain.NodeID {
	return append([]domain.NodeID(nil), w.order...)
}

// Dirty returns the watched nodes awaiting recomputation.
func (w *Watcher) Dirty() []domain.NodeID {
	var out []domain.NodeID
	for _, id := range w.order {
		if w.dirty[id] {
			out = append(out, id)
		}
	}
	return out
}

// Tick resolves each dirty node once and clears its mark.
func (w *Watcher) Tick(ctx context.Context) []Sample {
	var samples []Sample
	for _, id := range w.Dirty() {
		samples = append(samples, sample(ctx, w.editor, id, ""))
		w.dirty[id] = false
	}
	return samples
}

func (w *Watcher) observe(ev domain.GraphEvent) {
	if ev.Type == domain.EventNodeRemoved {
		w.Unwatch(ev.Node)
	}
	for _, id := range w.order {
		if w.dirty[id] {
			continue
		}
		for n := range w.upstream(id) {
			if ev.Touches(n) {
				w.dirty[id] = true
				break
			}
		}
	}
}

// upstream returns id and every node feeding it, directly or not.
func (w *Watcher) upstream(id domain.NodeID) map[domain.NodeID]bool {
	seen := map[domain.NodeID]bool{id: true}
	queue := []domain.NodeID{id}
	for len(queue) > 0 {
		node, err := w.editor.Node(queue[0])
		queue = queue[1:]
		if err != nil {
			continue
		}
		for _, in := range node.Inputs {
			out, ok := w.editor.ProducerOf(in)
			if !ok {
				continue
			}
			p, err := w.editor.Port(out)
			if err != nil || seen[p.Node] {
				continue
			}
			seen[p.Node] = true
			queue = append(queue, p.Node)
		}
	}
	return seen
}

// sample resolves a node, or one of its outputs when label is set.
func sample(ctx context.Context, ed *weft.Editor, id domain.NodeID, label string) Sample {
	s := Sample{Node: id, Output: label}
	node, err := ed.Node(id)
	if err != nil {
		s.Err = err.Error()
		return s
	}
	s.Kind = node.Kind.Name()

	var v domain.Value
	if label == "" {
		v, err = ed.Resolve(ctx, id)
	} else {
		var out domain.PortID
		if out, err = ed.OutputPort(id, label); err == nil {
			v, err = ed.ResolvePort(ctx, out)
		}
	}
	s.Value = v
	if err != nil {
		s.Err = err.Error()
	}
	return s
}
