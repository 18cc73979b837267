package inspect

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/astrophe"
)

func sample(t *testing.T) (*astrophe.Heap, *astrophe.Object) {
	t.Helper()
	h := astrophe.NewHeap(astrophe.Options{})
	src, err := h.NewString("spl yeeat")
	require.NoError(t, err)
	defer src.Release()
	parts, err := src.Split([]byte(" "), 1)
	require.NoError(t, err)
	bin, err := h.NewString("\x00\x01")
	require.NoError(t, err)
	require.NoError(t, parts.PushBack(bin))
	require.NoError(t, bin.Release())
	first, err := parts.Child(0)
	require.NoError(t, err)
	require.NoError(t, parts.PushBack(first))
	return h, parts
}

func TestDescribe(t *testing.T) {
	_, parts := sample(t)
	defer parts.Release()
	n := Describe(parts)
	assert.Equal(t, "list", n.Shape)
	assert.Equal(t, 4, n.Count)
	require.Len(t, n.Children, 4)
	assert.Equal(t, "spl", n.Children[0].Text)
	assert.Equal(t, 2, n.Children[0].RefCount)
	assert.Equal(t, "yeeat", n.Children[1].Text)
	assert.Equal(t, "0001", n.Children[2].Hex)
	assert.Empty(t, n.Children[2].Text)
	assert.True(t, n.Children[3].Seen)
	assert.Empty(t, n.Children[3].Text)
}

func TestDescribeReleased(t *testing.T) {
	h := astrophe.NewHeap(astrophe.Options{})
	o, err := h.NewString("x")
	require.NoError(t, err)
	require.NoError(t, o.Release())
	assert.Equal(t, "released", Describe(o).Shape)
}

func TestFormatYAMLDecodes(t *testing.T) {
	_, parts := sample(t)
	defer parts.Release()
	want := Describe(parts)

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, want, "yaml"))
	var got Node
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, *want, got)
}

func TestFormatJSONDecodes(t *testing.T) {
	_, parts := sample(t)
	defer parts.Release()
	want := Describe(parts)

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, want, "json"))
	var got Node
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, *want, got)
}

func TestFormatTable(t *testing.T) {
	_, parts := sample(t)
	defer parts.Release()

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, Describe(parts), "table"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2+5)
	assert.Equal(t, []string{"PATH", "SHAPE", "SIZE", "COUNT", "CAP", "REFS", "VALUE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"/", "list"}, strings.Fields(lines[2])[:2])
	assert.Contains(t, lines[2], "4 children")
	assert.True(t, strings.HasPrefix(lines[3], "/0 "))
	assert.Contains(t, lines[3], `"spl"`)
	assert.Contains(t, lines[5], "0x0001")
	assert.Contains(t, lines[6], "(seen)")
}

func TestFormatUnknown(t *testing.T) {
	require.ErrorContains(t, Format(&bytes.Buffer{}, &Node{}, "xml"), "unsupported output format")
}
