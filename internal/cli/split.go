package cli

import (
	"github.com/spf13/cobra"

	"github.com/rawbytedev/astrophe"
	"github.com/rawbytedev/astrophe/pkg/inspect"
)

func newSplitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "split <text> <delim>",
		Short: "Split text on a delimiter and describe the segments",
		Example: `  astrophe split "spl yeeat spl" " "
  astrophe split "a,b,,c" , -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.leaks()
			parts, err := splitText(a.heap, args[0], args[1])
			if err != nil {
				return err
			}
			defer parts.Release()
			return inspect.Format(cmd.OutOrStdout(), inspect.Describe(parts), a.cfg.Output)
		},
	}
}

// splitText builds a string object for text and splits it on delim.
func splitText(h *astrophe.Heap, text, delim string) (*astrophe.Object, error) {
	src, err := h.NewString(text)
	if err != nil {
		return nil, err
	}
	defer src.Release()
	return src.Split([]byte(delim), len(delim))
}
