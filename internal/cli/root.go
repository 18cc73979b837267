package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rawbytedev/astrophe"
	"github.com/rawbytedev/astrophe/internal/config"
	"github.com/rawbytedev/astrophe/internal/logging"
)

// app carries what every subcommand needs once flags and config are merged.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	log     *slog.Logger
	heap    *astrophe.Heap
	prof    profiler
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "astrophe",
		Short: "Reference-counted byte containers: build, split, encode and inspect",
		Long: `astrophe drives a reference-counted container engine from the command line.

Commands:
  demo     Run the append/prepend/split/pop walkthrough
  split    Split text on a delimiter and describe the segments
  encode   Serialize text (optionally split) into an object frame
  decode   Read an object frame and describe its tree
  repl     Interactive shell over named objects`,
		Version:       "0.1.0-dev",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.init(cmd); err != nil {
				return err
			}
			return a.prof.start()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.prof.stop()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./astrophe.yaml)")
	pf.StringP("output", "o", "table", "output format (table, json, yaml)")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringSlice("log-categories", nil, "debug categories to show (memory, list, split, wire, cli)")
	pf.Int("max-bytes", 0, "limit on bytes held by live buffers (0 = unlimited)")
	pf.StringVar(&a.prof.cpu, "cpuprofile", "", "write a CPU profile to this file")
	pf.StringVar(&a.prof.mem, "memprofile", "", "write a heap profile to this file")

	root.AddCommand(
		newDemoCommand(a),
		newSplitCommand(a),
		newEncodeCommand(a),
		newDecodeCommand(a),
		newReplCommand(a),
	)
	return root
}

// Execute runs the command tree and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	a.v = config.New(a.cfgFile)
	binds := map[string]string{
		"output":         "output",
		"log_level":      "log-level",
		"log_categories": "log-categories",
		"max_bytes":      "max-bytes",
		"compress":       "zstd",
	}
	for key, flag := range binds {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log, err = logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		Categories: cfg.LogCategories,
		Out:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.heap = astrophe.NewHeap(astrophe.Options{MaxBytes: cfg.MaxBytes, Logger: a.log})
	a.log.Debug("configured", "cat", "cli", "config", a.v.ConfigFileUsed(), "output", cfg.Output)
	return nil
}

// leaks logs objects still alive when a command finishes.
func (a *app) leaks() {
	if s := a.heap.Stats(); s.Live > 0 {
		a.log.Warn("objects still alive", "cat", "memory", "live", s.Live, "bytes", s.Bytes)
	}
}
