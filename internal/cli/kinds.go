package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/weft/pkg/kinds"
)

// PrintKinds writes a table of the builtin kinds and their ports.
func PrintKinds(w io.Writer) error {
	descs, err := kinds.NewRegistry(io.Discard).DescribeAll()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tINPUTS\tOUTPUTS\tDESCRIPTION")
	for _, d := range descs {
		in := make([]string, len(d.Inputs))
		for i, p := range d.Inputs {
			in[i] = p.Label
		}
		out := make([]string, len(d.Outputs))
		for i, p := range d.Outputs {
			out[i] = p.Label
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, dash(in), dash(out), d.Description)
	}
	return tw.Flush()
}

func dash(labels []string) string {
	if len(labels) == 0 {
		return "-"
	}
	return strings.Join(labels, ",")
}
