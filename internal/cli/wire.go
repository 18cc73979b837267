package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rawbytedev/astrophe"
	"github.com/rawbytedev/astrophe/pkg/inspect"
	"github.com/rawbytedev/astrophe/pkg/objwire"
)

func newEncodeCommand(a *app) *cobra.Command {
	var (
		delim string
		out   string
	)
	cmd := &cobra.Command{
		Use:   "encode <text>",
		Short: "Serialize text (optionally split) into an object frame",
		Example: `  astrophe encode "spl yeeat spl" --delim " " --out parts.as
  astrophe encode hello --zstd > hello.as`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.leaks()
			var (
				obj *astrophe.Object
				err error
			)
			if delim != "" {
				obj, err = splitText(a.heap, args[0], delim)
			} else {
				obj, err = a.heap.NewString(args[0])
			}
			if err != nil {
				return err
			}
			defer obj.Release()

			frame, err := objwire.Encode(obj, objwire.Options{Compress: a.cfg.Compress})
			if err != nil {
				return err
			}
			hdr, _, err := objwire.ParseFrame(frame)
			if err != nil {
				return err
			}
			a.log.Info("encoded frame", "cat", "wire", "id", hdr.ID, "bytes", len(frame), "zstd", a.cfg.Compress)

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(frame)
				return err
			}
			if err := os.WriteFile(out, frame, 0o644); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s (id %s)\n", len(frame), out, hdr.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&delim, "delim", "d", "", "split the text on this delimiter before encoding")
	cmd.Flags().Bool("zstd", false, "compress the frame body with zstd")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func newDecodeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode [file]",
		Short: "Read an object frame and describe its tree",
		Long:  "Read an object frame from file, or stdin when file is omitted or -, and print its tree.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.leaks()
			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read frame: %w", err)
			}
			obj, hdr, err := objwire.Decode(a.heap, data)
			if err != nil {
				return fmt.Errorf("decode frame: %w", err)
			}
			defer obj.Release()
			a.log.Info("decoded frame", "cat", "wire", "id", hdr.ID, "version", hdr.Version, "flags", hdr.Flags)
			return inspect.Format(cmd.OutOrStdout(), inspect.Describe(obj), a.cfg.Output)
		},
	}
}
