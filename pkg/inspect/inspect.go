package inspect

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/astrophe"
)

// Node is a serializable description of an object and what it holds.
type Node struct {
	Shape    string  `json:"shape" yaml:"shape"`
	ElemSize int     `json:"elem_size" yaml:"elem_size"`
	Count    int     `json:"count" yaml:"count"`
	Capacity int     `json:"capacity" yaml:"capacity"`
	RefCount int     `json:"refcount" yaml:"refcount"`
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	Hex      string  `json:"hex,omitempty" yaml:"hex,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
	// Seen marks a child already described higher up (shared or cyclic).
	Seen bool `json:"seen,omitempty" yaml:"seen,omitempty"`
}

// Describe walks o. Objects reached twice are described once; later
// occurrences are marked Seen and not expanded.
func Describe(o *astrophe.Object) *Node {
	return describe(o, make(map[*astrophe.Object]bool))
}

func describe(o *astrophe.Object, seen map[*astrophe.Object]bool) *Node {
	if o.Released() {
		return &Node{Shape: "released"}
	}
	n := &Node{
		Shape:    o.Shape().String(),
		ElemSize: o.ElemSize(),
		Count:    o.Len(),
		Capacity: o.Cap(),
		RefCount: o.RefCount(),
	}
	if seen[o] {
		n.Seen = true
		return n
	}
	seen[o] = true
	if o.OwnsChildren() {
		n.Children = make([]*Node, 0, o.Len())
		for _, child := range o.Children() {
			n.Children = append(n.Children, describe(child, seen))
		}
		return n
	}
	b := o.Bytes()
	if o.ElemSize() == 1 && utf8.Valid(b) && printable(b) {
		n.Text = string(b)
	} else {
		n.Hex = hex.EncodeToString(b)
	}
	return n
}

func printable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 && c != '\t' && c != '\n' || c == 0x7f {
			return false
		}
	}
	return true
}

// Format writes n to w as table, json or yaml.
func Format(w io.Writer, n *Node, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(n)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(n); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		return formatTable(w, n)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatTable(w io.Writer, n *Node) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "PATH\tSHAPE\tSIZE\tCOUNT\tCAP\tREFS\tVALUE\n")
	fmt.Fprintf(tw, "----\t-----\t----\t-----\t---\t----\t-----\n")
	writeRows(tw, n, "/")
	return tw.Flush()
}

func writeRows(w io.Writer, n *Node, path string) {
	var value string
	switch {
	case n.Seen:
		value = "(seen)"
	case n.Hex != "":
		value = "0x" + n.Hex
	case n.Children != nil:
		value = fmt.Sprintf("%d children", len(n.Children))
	case n.ElemSize == 1:
		value = fmt.Sprintf("%q", n.Text)
	}
	fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
		path, n.Shape, n.ElemSize, n.Count, n.Capacity, n.RefCount, value)
	for i, c := range n.Children {
		writeRows(w, c, strings.TrimSuffix(path, "/")+fmt.Sprintf("/%d", i))
	}
}
