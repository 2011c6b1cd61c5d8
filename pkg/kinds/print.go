package kinds

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/weft/pkg/domain"
)

// Print is a sink writing every value it receives, one per line.
type Print struct {
	Out    io.Writer
	Prefix string
}

// NewPrint returns a Print kind writing to w (stdout when nil).
func NewPrint(w io.Writer) *Print {
	if w == nil {
		w = os.Stdout
	}
	return &Print{Out: w}
}

func (k *Print) Name() string { return "print" }

func (k *Print) Inputs() []domain.PortSpec {
	return []domain.PortSpec{domain.In("value", domain.Empty())}
}

func (k *Print) Outputs() []domain.PortSpec { return nil }

func (k *Print) Compute(_ context.Context, in domain.Inputs) (domain.Value, error) {
	v := in.Get("value")
	text := v.String()
	if s, err := v.AsText(); err == nil {
		text = s
	}
	if _, err := fmt.Fprintf(k.Out, "%s%s\n", k.Prefix, text); err != nil {
		return domain.Empty(), fmt.Errorf("print: %w", err)
	}
	return domain.Empty(), nil
}
