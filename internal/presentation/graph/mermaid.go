package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/graph"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	Watched []domain.NodeID
	Dirty   []domain.NodeID
	// Values annotates nodes with their last resolved value.
	Values map[domain.NodeID]domain.Value
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a snapshot.
// It applies semantic styling:
// - Source (no inputs): ((Circle))
// - Sink (no outputs): [/Parallelogram/]
// - Several outputs: [[Subroutine]]
// - Default: [Rectangle]
// Edges are labelled "output -> input" with the port labels.
// It also applies overlay styles (Watched/Dirty) if provided.
func GenerateMermaid(snap graph.Snapshot, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	outputs := make(map[domain.PortID]string)
	for _, node := range snap.Nodes {
		for _, p := range node.Outputs {
			outputs[p.ID] = p.Label
		}
	}

	for _, node := range snap.Nodes {
		opener, closer := "[", "]"

		switch {
		case len(node.Inputs) == 0 && len(node.Outputs) > 0:
			opener, closer = "((", "))"
		case len(node.Outputs) == 0:
			opener, closer = "[/", "/]"
		case len(node.Outputs) > 1:
			opener, closer = "[[", "]]"
		}

		text := fmt.Sprintf("%s: %s", node.ID, escapeLabel(node.Kind))
		if overlay != nil {
			if v, ok := overlay.Values[node.ID]; ok {
				text += " <br/> = " + escapeLabel(v.String())
			}
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", node.ID, opener, text, closer))
	}

	for _, c := range snap.Connections {
		from, to := ownerOf(snap, c.Output), ownerOf(snap, c.Input)
		if from == domain.NoNode || to == domain.NoNode {
			continue
		}
		label := fmt.Sprintf("%s -> %s", outputs[c.Output], inputLabel(snap, to, c.Input))
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, escapeLabel(label), to))
	}

	// Apply Overlay Styles
	if overlay != nil && (len(overlay.Watched) > 0 || len(overlay.Dirty) > 0) {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef watched fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef dirty fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.NodeID]bool)
		for _, id := range overlay.Watched {
			if _, ok := snap.Node(id); ok && !seen[id] {
				seen[id] = true
				sb.WriteString(fmt.Sprintf("    class %s watched;\n", id))
			}
		}
		// Dirty wins over watched: Mermaid applies the last class statement.
		for _, id := range overlay.Dirty {
			if _, ok := snap.Node(id); ok {
				sb.WriteString(fmt.Sprintf("    class %s dirty;\n", id))
			}
		}
	}

	return sb.String()
}

func ownerOf(snap graph.Snapshot, p domain.PortID) domain.NodeID {
	for _, n := range snap.Nodes {
		for _, port := range n.Inputs {
			if port.ID == p {
				return n.ID
			}
		}
		for _, port := range n.Outputs {
			if port.ID == p {
				return n.ID
			}
		}
	}
	return domain.NoNode
}

func inputLabel(snap graph.Snapshot, node domain.NodeID, p domain.PortID) string {
	n, _ := snap.Node(node)
	for _, port := range n.Inputs {
		if port.ID == p {
			return port.Label
		}
	}
	return p.String()
}

// escapeLabel replaces double quotes, which would end a Mermaid label.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
