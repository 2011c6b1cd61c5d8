/*
Package dsl provides a Go DSL for programmatically constructing weft graphs.

Nodes are declared by name and wired with "node.port" addresses instead of
port handles. A bare "node" address selects the node's only output, or its
only input on the receiving side.

Example usage:

	b := dsl.New()
	b.Constant("v1", 5).To("add.a")
	b.Constant("v2", 7).To("add.b")
	b.Add("add", "add")
	b.Add("show", "print").From("value", "add")

	g, err := b.Build()
	if err != nil {
		return err
	}
	v, err := g.Value(ctx, "add") // Number(12)

Build applies the declarations in order and reports every failed one at once.
*/
package dsl
