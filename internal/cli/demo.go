package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/weft"
	mermaid "github.com/aretw0/weft/internal/presentation/graph"
	"github.com/aretw0/weft/pkg/dsl"
)

// RunDemo builds the two-constant adder, prints its diagram, resolves it,
// then disconnects one constant and resolves again.
func RunDemo(ctx context.Context, env *Env, w io.Writer) error {
	b := dsl.New(append(env.EditorOptions(), weft.WithOutput(w))...)
	b.Constant("v1", 5.0).To("sum.a")
	b.Constant("v2", 7.0).To("sum.b")
	b.Add("sum", "add").To("out")
	b.Add("out", "print").Param("prefix", "print: ")

	g, err := b.Build()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "```mermaid")
	fmt.Fprint(w, mermaid.GenerateMermaid(g.Snapshot(), nil))
	fmt.Fprintln(w, "```")

	sum, err := g.Value(ctx, "sum")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "sum = %s\n", sum)

	if _, err := g.Value(ctx, "out"); err != nil {
		return err
	}

	sumID, _ := g.ID("sum")
	in, err := g.InputPort(sumID, "a")
	if err != nil {
		return err
	}
	if err := g.Disconnect(in); err != nil {
		return err
	}
	fmt.Fprintln(w, "disconnected v1 -> sum.a")

	sum, err = g.Value(ctx, "sum")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "sum = %s\n", sum)
	return nil
}
