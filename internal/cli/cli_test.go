package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/astrophe"
	"github.com/rawbytedev/astrophe/pkg/inspect"
)

// run executes the command tree with args and returns stdout and stderr.
func run(t *testing.T, stdin []byte, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(bytes.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestDemo(t *testing.T) {
	out, stderr, err := run(t, nil, "demo")
	require.NoError(t, err)
	assert.Equal(t, `buffer: "spl yeeat spl" (13 bytes)
split on " ": "spl" "yeeat" "spl"
split on "ee": "spl y" "at spl"
popped: "s" "l"
remaining: "pl yeeat sp" (11 bytes)
`, out)
	assert.NotContains(t, stderr, "still alive")
}

func TestRunDemoReleasesEverything(t *testing.T) {
	h := astrophe.NewHeap(astrophe.Options{})
	require.NoError(t, runDemo(h, &bytes.Buffer{}))
	assert.Zero(t, h.Stats().Live)
	assert.Zero(t, h.Stats().Bytes)
}

func TestDemoUnderMemoryLimit(t *testing.T) {
	_, _, err := run(t, nil, "demo", "--max-bytes", "16")
	require.ErrorIs(t, err, astrophe.ErrAlloc)
}

func TestSplitJSON(t *testing.T) {
	out, _, err := run(t, nil, "split", "a,b,,c", ",", "-o", "json")
	require.NoError(t, err)
	var n inspect.Node
	require.NoError(t, json.Unmarshal([]byte(out), &n))
	require.Len(t, n.Children, 4)
	var got []string
	for _, c := range n.Children {
		got = append(got, c.Text)
	}
	assert.Equal(t, []string{"a", "b", "", "c"}, got)
}

func TestSplitEmptyDelimiter(t *testing.T) {
	_, _, err := run(t, nil, "split", "abc", "")
	require.ErrorIs(t, err, astrophe.ErrDelimiter)
}

func TestBadOutputFlag(t *testing.T) {
	_, _, err := run(t, nil, "split", "abc", "b", "-o", "xml")
	require.ErrorContains(t, err, "unsupported output format")
}

func TestEncodeDecode(t *testing.T) {
	for _, zstd := range []string{"--zstd=false", "--zstd"} {
		path := filepath.Join(t.TempDir(), "parts.as")
		_, stderr, err := run(t, nil, "encode", "spl yeeat spl", "--delim", " ", zstd, "--out", path)
		require.NoError(t, err)
		assert.Contains(t, stderr, "wrote")

		out, _, err := run(t, nil, "decode", path, "-o", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "text: spl")
		assert.Contains(t, out, "text: yeeat")
		assert.Equal(t, 3, strings.Count(out, "shape: list")-1)
	}
}

func TestEncodeToStdoutDecodeFromStdin(t *testing.T) {
	frame, _, err := run(t, nil, "encode", "hello")
	require.NoError(t, err)
	out, _, err := run(t, []byte(frame), "decode", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"hello"`)
}

func TestDecodeGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a frame"), 0o644))
	_, _, err := run(t, nil, "decode", path)
	require.ErrorContains(t, err, "decode frame")
}

func TestConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "astrophe.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("output: json\nlog_level: debug\nlog_categories: [split]\n"), 0o644))
	out, stderr, err := run(t, nil, "--config", cfg, "split", "x y", " ")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
	assert.Contains(t, stderr, "cat=split")
	assert.NotContains(t, stderr, "cat=memory")
}

func TestProfiles(t *testing.T) {
	dir := t.TempDir()
	cpu, mem := filepath.Join(dir, "cpu.prof"), filepath.Join(dir, "mem.prof")
	_, _, err := run(t, nil, "demo", "--cpuprofile", cpu, "--memprofile", mem)
	require.NoError(t, err)
	for _, p := range []string{cpu, mem} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), p)
	}
}
