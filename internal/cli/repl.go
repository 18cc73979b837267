package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/rawbytedev/astrophe"
	"github.com/rawbytedev/astrophe/pkg/inspect"
)

const (
	historyFile = ".astrophe_history"
	promptMain  = "astrophe> "
)

var (
	errUsage   = errors.New("usage")
	errUnbound = errors.New("no such object")

	replHelp = `Commands (names bind objects; quote text with "..."):
  new NAME TEXT         bind a string
  list NAME             bind an empty reference list
  append DST SRC        copy SRC's elements after DST's
  prepend DST SRC       copy SRC's elements before DST's
  split DST SRC DELIM   bind DST to SRC split on DELIM
  popf DST SRC          pop SRC's front element into DST
  popb DST SRC          pop SRC's back element into DST
  push LIST SRC         push SRC onto the back of LIST
  pushf LIST SRC        push SRC onto the front of LIST
  retain NAME           add a reference
  release NAME          drop a reference (unbinds once NAME holds none)
  show [NAME]           describe one object or list all bindings
  stats                 heap counters
  help                  this text
  quit                  release everything and exit`
)

func newReplCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell over named objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(a.heap, cmd.OutOrStdout(), a.cfg.Output)
			defer a.leaks()
			defer s.close()
			return runLiner(s)
		},
	}
}

func runLiner(s *session) error {
	fmt.Fprintln(s.out, "astrophe shell. Ctrl+C cancels input, Ctrl+D exits. Type help for commands.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(s.complete)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		quit, err := s.exec(line)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// session binds names to objects. A binding owns one reference plus one per
// retain; releasing the last of them unbinds the name.
type session struct {
	heap   *astrophe.Heap
	out    io.Writer
	format string
	objs   map[string]*astrophe.Object
	held   map[string]int // references each binding owns
}

func newSession(h *astrophe.Heap, out io.Writer, format string) *session {
	return &session{
		heap:   h,
		out:    out,
		format: format,
		objs:   make(map[string]*astrophe.Object),
		held:   make(map[string]int),
	}
}

// close releases every binding.
func (s *session) close() {
	for name := range s.objs {
		s.unbind(name)
	}
}

// exec runs one command line and reports whether the session should end.
func (s *session) exec(line string) (bool, error) {
	args, err := tokenize(line)
	if err != nil {
		return false, err
	}
	if len(args) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "quit", "exit", ":quit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(s.out, replHelp)
		return false, nil
	case "stats":
		st := s.heap.Stats()
		fmt.Fprintf(s.out, "allocs=%d frees=%d live=%d bytes=%d\n", st.Allocs, st.Frees, st.Live, st.Bytes)
		return false, nil
	case "show":
		return false, s.show(args)
	}

	switch cmd {
	case "new":
		if len(args) < 1 {
			return false, fmt.Errorf("%w: new NAME TEXT", errUsage)
		}
		o, err := s.heap.NewString(strings.Join(args[1:], " "))
		if err != nil {
			return false, err
		}
		s.bind(args[0], o)
	case "list":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: list NAME", errUsage)
		}
		s.bind(args[0], s.heap.NewRefList())
	case "append", "prepend", "push", "pushf":
		dst, src, err := s.pair(cmd, args)
		if err != nil {
			return false, err
		}
		op := map[string]func(*astrophe.Object) error{
			"append":  dst.Append,
			"prepend": dst.Prepend,
			"push":    dst.PushBack,
			"pushf":   dst.PushFront,
		}[cmd]
		if err := op(src); err != nil {
			return false, err
		}
	case "split":
		if len(args) != 3 {
			return false, fmt.Errorf("%w: split DST SRC DELIM", errUsage)
		}
		src, err := s.lookup(args[1])
		if err != nil {
			return false, err
		}
		parts, err := src.Split([]byte(args[2]), len(args[2])/max(src.ElemSize(), 1))
		if err != nil {
			return false, err
		}
		s.bind(args[0], parts)
	case "popf", "popb":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: %s DST SRC", errUsage, cmd)
		}
		src, err := s.lookup(args[1])
		if err != nil {
			return false, err
		}
		pop := src.PopBack
		if cmd == "popf" {
			pop = src.PopFront
		}
		v, err := pop()
		if err != nil {
			return false, err
		}
		s.bind(args[0], v)
	case "retain", "release":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: %s NAME", errUsage, cmd)
		}
		o, err := s.lookup(args[0])
		if err != nil {
			return false, err
		}
		if cmd == "retain" {
			if err := o.Retain(); err != nil {
				return false, err
			}
			s.held[args[0]]++
			return false, nil
		}
		if err := o.Release(); err != nil {
			return false, err
		}
		s.held[args[0]]--
		if s.held[args[0]] == 0 {
			delete(s.objs, args[0])
			delete(s.held, args[0])
		}
		fmt.Fprintf(s.out, "%s refcount %d\n", args[0], o.RefCount())
	default:
		return false, fmt.Errorf("unknown command %q, type help", cmd)
	}
	return false, nil
}

// bind names o, releasing every reference the name held before.
func (s *session) bind(name string, o *astrophe.Object) {
	s.unbind(name)
	s.objs[name] = o
	s.held[name] = 1
}

// unbind drops every reference the name holds and forgets it.
func (s *session) unbind(name string) {
	o, ok := s.objs[name]
	if !ok {
		return
	}
	for range s.held[name] {
		o.Release()
	}
	delete(s.objs, name)
	delete(s.held, name)
}

func (s *session) lookup(name string) (*astrophe.Object, error) {
	o, ok := s.objs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnbound, name)
	}
	return o, nil
}

func (s *session) pair(cmd string, args []string) (*astrophe.Object, *astrophe.Object, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%w: %s DST SRC", errUsage, cmd)
	}
	dst, err := s.lookup(args[0])
	if err != nil {
		return nil, nil, err
	}
	src, err := s.lookup(args[1])
	if err != nil {
		return nil, nil, err
	}
	return dst, src, nil
}

func (s *session) show(args []string) error {
	if len(args) == 1 {
		o, err := s.lookup(args[0])
		if err != nil {
			return err
		}
		return inspect.Format(s.out, inspect.Describe(o), s.format)
	}
	for _, name := range s.names() {
		o := s.objs[name]
		fmt.Fprintf(s.out, "%-12s %-7s len=%d cap=%d refs=%d %q\n",
			name, o.Shape(), o.Len(), o.Cap(), o.RefCount(), o.String())
	}
	return nil
}

func (s *session) names() []string {
	names := make([]string, 0, len(s.objs))
	for name := range s.objs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// complete offers command words first, then bound names.
func (s *session) complete(line string) []string {
	words := []string{"new", "list", "append", "prepend", "split", "popf", "popb",
		"push", "pushf", "retain", "release", "show", "stats", "help", "quit"}
	head, last := "", line
	if i := strings.LastIndexByte(line, ' '); i >= 0 {
		head, last = line[:i+1], line[i+1:]
		words = s.names()
	}
	var out []string
	for _, w := range words {
		if strings.HasPrefix(w, last) {
			out = append(out, head+w)
		}
	}
	return out
}

// tokenize splits on whitespace, treating Go-quoted strings as one token.
func tokenize(line string) ([]string, error) {
	var out []string
	for {
		line = strings.TrimLeft(line, " \t")
		if line == "" {
			return out, nil
		}
		if line[0] == '"' || line[0] == '`' {
			q, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, fmt.Errorf("bad quoted text: %w", err)
			}
			v, err := strconv.Unquote(q)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			line = line[len(q):]
			continue
		}
		end := strings.IndexAny(line, " \t")
		if end < 0 {
			end = len(line)
		}
		out = append(out, line[:end])
		line = line[end:]
	}
}
