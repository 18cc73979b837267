package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rawbytedev/astrophe"
)

func newDemoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the append/prepend/split/pop walkthrough",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.leaks()
			return runDemo(a.heap, cmd.OutOrStdout())
		},
	}
}

// runDemo builds "spl yeeat spl" from pieces, splits it two ways and pops
// both ends, releasing everything it created.
func runDemo(h *astrophe.Heap, w io.Writer) error {
	var owned []*astrophe.Object
	defer func() {
		for _, o := range owned {
			o.Release()
		}
	}()
	str := func(s string) (*astrophe.Object, error) {
		o, err := h.NewString(s)
		if err == nil {
			owned = append(owned, o)
		}
		return o, err
	}

	yeeat, err := str("yeeat")
	if err != nil {
		return err
	}
	space, err := str(" ")
	if err != nil {
		return err
	}
	ee, err := str("ee")
	if err != nil {
		return err
	}
	spl, err := str("spl")
	if err != nil {
		return err
	}

	steps := []struct {
		op    func(*astrophe.Object) error
		other *astrophe.Object
	}{
		{yeeat.Append, space},
		{yeeat.Append, spl},
		{yeeat.Prepend, space},
		{yeeat.Prepend, spl},
	}
	for _, s := range steps {
		if err := s.op(s.other); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "buffer: %q (%d bytes)\n", yeeat.String(), yeeat.Len())

	for _, delim := range []*astrophe.Object{space, ee} {
		parts, err := yeeat.SplitOn(delim)
		if err != nil {
			return err
		}
		owned = append(owned, parts)
		fmt.Fprintf(w, "split on %q:", delim.String())
		for _, seg := range parts.Children() {
			fmt.Fprintf(w, " %q", seg.String())
		}
		fmt.Fprintln(w)
	}

	front, err := yeeat.PopFront()
	if err != nil {
		return err
	}
	owned = append(owned, front)
	back, err := yeeat.PopBack()
	if err != nil {
		return err
	}
	owned = append(owned, back)
	fmt.Fprintf(w, "popped: %q %q\n", front.String(), back.String())
	fmt.Fprintf(w, "remaining: %q (%d bytes)\n", yeeat.String(), yeeat.Len())
	return nil
}
