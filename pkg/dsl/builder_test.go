package dsl

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/testutils"
	"github.com/aretw0/weft/pkg/domain"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	var out bytes.Buffer

	// 1. Build the graph using DSL
	b := New(weft.WithOutput(&out))
	b.Constant("v1", 5).To("add.a")
	b.Constant("v2", 7).To("add.b")
	b.Add("add", "add")
	b.Add("show", "print").From("value", "add")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// 2. Verify values
	v, err := g.Value(context.Background(), "add")
	if err != nil {
		t.Fatalf("Value('add') failed: %v", err)
	}
	if n, _ := v.AsNumber(); n != 12 {
		t.Errorf("Expected 12, got %s", v)
	}

	v, err = g.Value(context.Background(), "show")
	if err != nil {
		t.Fatalf("Value('show') failed: %v", err)
	}
	if !v.IsEmpty() {
		t.Errorf("Expected print to return empty, got %s", v)
	}
	if out.String() != "12\n" {
		t.Errorf("Expected print output '12\\n', got %q", out.String())
	}

	// 3. Verify bookkeeping
	if names := g.Names(); len(names) != 4 || names[0] != "v1" || names[3] != "show" {
		t.Errorf("Unexpected names %v", names)
	}
	add, ok := g.ID("add")
	if !ok {
		t.Fatal("Expected 'add' to have a handle")
	}
	in, err := g.InputPort(add, "a")
	if err != nil {
		t.Fatalf("InputPort failed: %v", err)
	}
	if _, connected := g.ProducerOf(in); !connected {
		t.Error("Expected add.a to be connected")
	}
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New()
	first := b.Add("x", "constant")
	second := b.Add("x", "negate")
	if first != second {
		t.Error("Expected Add to return the existing builder")
	}
}

func TestBuilder_BareInputAddress(t *testing.T) {
	b := New()
	b.Constant("c", 3).To("neg")
	b.Add("neg", "negate")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	v, err := g.Value(context.Background(), "neg")
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if n, _ := v.AsNumber(); n != -3 {
		t.Errorf("Expected -3, got %s", v)
	}
}

func TestBuilder_OutputAddress(t *testing.T) {
	b := New()
	b.Constant("c", 2.75).To("s")
	b.Add("s", "split")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	v, err := g.Value(context.Background(), "s.fraction")
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if n, _ := v.AsNumber(); n != 0.75 {
		t.Errorf("Expected 0.75, got %s", v)
	}
}

func TestBuilder_Reconnect(t *testing.T) {
	b := New()
	b.Constant("one", 1).To("neg")
	b.Constant("two", 2)
	b.Add("neg", "negate")
	b.Reconnect("two", "neg.value")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	v, _ := g.Value(context.Background(), "neg")
	if n, _ := v.AsNumber(); n != -2 {
		t.Errorf("Expected -2, got %s", v)
	}
}

func TestBuilder_ExplicitKind(t *testing.T) {
	b := New()
	b.Add("src", "").Kind(testutils.Source(domain.Number(4))).To("neg")
	b.Add("neg", "negate")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	v, _ := g.Value(context.Background(), "neg")
	if n, _ := v.AsNumber(); n != -4 {
		t.Errorf("Expected -4, got %s", v)
	}
}

func TestBuilder_Errors(t *testing.T) {
	b := New()
	b.Add("a", "nope")
	b.Add("bad.name", "constant")
	b.Constant("c", 1).To("add.a")
	b.Constant("d", 1).To("add.a")
	b.Constant("e", 1).To("add")
	b.Add("add", "add")
	b.Connect("c", "ghost.a")

	_, err := b.Build()
	if err == nil {
		t.Fatal("Expected Build() to fail")
	}
	for _, want := range []error{
		domain.ErrUnknownKind,
		domain.ErrPortNotFound,
		domain.ErrNodeNotFound,
		domain.ErrAlreadyConnected,
	} {
		if !errors.Is(err, want) {
			t.Errorf("Expected error to match %v, got: %v", want, err)
		}
	}
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		addr, node, port string
	}{
		{"add.a", "add", "a"},
		{"add", "add", ""},
		{"s.fraction", "s", "fraction"},
		{"", "", ""},
	}
	for _, tt := range tests {
		node, port := SplitAddress(tt.addr)
		if node != tt.node || port != tt.port {
			t.Errorf("SplitAddress(%q) = %q, %q; want %q, %q", tt.addr, node, port, tt.node, tt.port)
		}
	}
}
