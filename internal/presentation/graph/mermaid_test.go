package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/weft/internal/presentation/graph"
	"github.com/aretw0/weft/internal/testutils"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/kinds"
	store "github.com/aretw0/weft/pkg/graph"
)

func buildSnapshot(t *testing.T) (store.Snapshot, []domain.NodeID) {
	t.Helper()
	var seen []domain.Value
	s := store.New()
	v := testutils.MustAdd(t, s, testutils.Source(domain.Number(5)))
	sum := testutils.MustAdd(t, s, testutils.Sum("a", "b"))
	sink := testutils.MustAdd(t, s, testutils.Sink(&seen))
	split := testutils.MustAdd(t, s, kinds.NewSplit())
	quoted := testutils.MustAdd(t, s, &testutils.FuncKind{
		KindName: `quo"ted`,
		In:       []domain.PortSpec{domain.In("x", domain.Empty())},
		Out:      []domain.PortSpec{domain.Out("out")},
	})
	testutils.MustWire(t, s, v, sum, "a")
	testutils.MustWire(t, s, sum, sink, "in")
	return s.Snapshot(), []domain.NodeID{v, sum, sink, split, quoted}
}

func TestGenerateMermaid(t *testing.T) {
	snap, ids := buildSnapshot(t)
	v, sum, sink, split, quoted := ids[0], ids[1], ids[2], ids[3], ids[4]

	tests := []struct {
		name     string
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes",
			contains: []string{
				v.String() + `(("` + v.String() + `: source"))`,
				sum.String() + `["` + sum.String() + `: sum"]`,
				sink.String() + `[/"` + sink.String() + `: sink"/]`,
				split.String() + `[["` + split.String() + `: split"]]`,
				quoted.String() + `["` + quoted.String() + `: quo'ted"]`,
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Edges",
			contains: []string{
				v.String() + ` -- "out -> a" --> ` + sum.String(),
				sum.String() + ` -- "out -> in" --> ` + sink.String(),
			},
		},
		{
			name: "Overlay",
			overlay: &graph.GraphOverlay{
				Watched: []domain.NodeID{sum, sum, 99},
				Dirty:   []domain.NodeID{sink},
				Values:  map[domain.NodeID]domain.Value{sum: domain.Number(5)},
			},
			contains: []string{
				"class " + sum.String() + " watched;",
				"class " + sink.String() + " dirty;",
				": sum <br/> = 5",
			},
			excludes: []string{"class n99"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(snap, tt.overlay)
			if !strings.HasPrefix(got, "graph LR\n") {
				t.Errorf("GenerateMermaid() missing header:\n%v", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnwanted substring: %v", got, unwanted)
				}
			}
			if strings.Count(got, "class "+sum.String()+" watched;") > 1 {
				t.Errorf("watched class applied more than once:\n%v", got)
			}
		})
	}
}
