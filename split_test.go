package astrophe

import (
	"bytes"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segments(t testing.TB, parts *Object) []string {
	t.Helper()
	var out []string
	for _, seg := range parts.Children() {
		require.Equal(t, ShapeList, seg.Shape())
		out = append(out, seg.String())
	}
	return out
}

func TestSplit(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		delim string
		want  []string
	}{
		{"space", "spl yeeat spl", " ", []string{"spl", "yeeat", "spl"}},
		{"multi element", "spl yeeat spl", "ee", []string{"spl y", "at spl"}},
		{"no match", "abc", ",", []string{"abc"}},
		{"whole", "ab", "ab", []string{"", ""}},
		{"adjacent", "a,,b", ",", []string{"a", "", "b"}},
		{"leading and trailing", ",a,", ",", []string{"", "a", ""}},
		{"empty source", "", ",", []string{""}},
		{"delimiter longer than source", "a", "abc", []string{"a"}},
		{"non-overlapping", "aaa", "aa", []string{"", "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHeap()
			src := mustString(t, h, tc.src)
			delim := mustString(t, h, tc.delim)
			parts, err := src.SplitOn(delim)
			require.NoError(t, err)
			assert.Equal(t, tc.want, segments(t, parts))
			assert.True(t, parts.OwnsChildren())
			assert.Equal(t, tc.src, src.String(), "source is not modified")

			require.NoError(t, parts.Release())
			require.NoError(t, src.Release())
			require.NoError(t, delim.Release())
			assert.Zero(t, h.Stats().Live)
		})
	}
}

func TestSplitWideElements(t *testing.T) {
	h := newTestHeap()
	src, err := FromSlice(h, []uint16{1, 0, 2, 3, 0, 4})
	require.NoError(t, err)
	defer src.Release()
	parts, err := src.Split([]byte{0, 0}, 1)
	require.NoError(t, err)
	defer parts.Release()
	require.Equal(t, 3, parts.Len())

	var got [][]uint16
	for _, seg := range parts.Children() {
		var vals []uint16
		for _, v := range Values[uint16](seg) {
			vals = append(vals, v)
		}
		got = append(got, vals)
	}
	assert.Equal(t, [][]uint16{{1}, {2, 3}, {4}}, got)
}

func TestSplitErrors(t *testing.T) {
	h := newTestHeap()
	src := mustString(t, h, "a b")
	defer src.Release()

	_, err := src.Split(nil, 0)
	require.ErrorIs(t, err, ErrDelimiter)
	empty := mustString(t, h, "")
	defer empty.Release()
	_, err = src.SplitOn(empty)
	require.ErrorIs(t, err, ErrDelimiter)
	_, err = src.Split([]byte("ab"), 1)
	require.ErrorIs(t, err, ErrElemSize)

	wide, err := FromSlice(h, []int32{7})
	require.NoError(t, err)
	defer wide.Release()
	_, err = src.SplitOn(wide)
	require.ErrorIs(t, err, ErrElemSize)

	refs := h.NewRefList()
	defer refs.Release()
	_, err = refs.Split([]byte{0}, 1)
	require.ErrorIs(t, err, ErrRefList)
	_, err = src.SplitOn(refs)
	require.ErrorIs(t, err, ErrRefList)

	blank := h.New(ShapeEmpty)
	defer blank.Release()
	_, err = blank.Split([]byte{0}, 1)
	require.ErrorIs(t, err, ErrElemSize)
}

func TestSplitMaxBytes(t *testing.T) {
	h := NewHeap(Options{MaxBytes: 64})
	src := mustString(t, h, "a,b,c,d,e,f,g,h,i")
	defer src.Release()
	_, err := src.Split([]byte(","), 1)
	require.ErrorIs(t, err, ErrAlloc)
	assert.Equal(t, 1, h.Stats().Live, "partial result is released")
}

func TestSplitJoinRoundTrip(t *testing.T) {
	h := newTestHeap()
	condition := func(data []byte, d byte) bool {
		src, err := h.NewList(data, len(data), 1)
		require.NoError(t, err)
		defer src.Release()
		parts, err := src.Split([]byte{d}, 1)
		require.NoError(t, err)
		defer parts.Release()

		pieces := make([][]byte, 0, parts.Len())
		for _, seg := range parts.Children() {
			if bytes.IndexByte(seg.Bytes(), d) >= 0 {
				return false
			}
			pieces = append(pieces, seg.Bytes())
		}
		return parts.Len() == bytes.Count(data, []byte{d})+1 &&
			bytes.Equal(bytes.Join(pieces, []byte{d}), data)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{MaxCount: 500}))
	assert.Zero(t, h.Stats().Live)
}

func FuzzSplit(f *testing.F) {
	f.Add([]byte("spl yeeat spl"), []byte("ee"))
	f.Add([]byte("aaaa"), []byte("aa"))
	f.Add([]byte(""), []byte(","))
	f.Fuzz(func(t *testing.T, data, delim []byte) {
		if len(delim) == 0 {
			return
		}
		h := newTestHeap()
		src, err := h.NewList(data, len(data), 1)
		require.NoError(t, err)
		parts, err := src.Split(delim, len(delim))
		require.NoError(t, err)

		want := bytes.Split(data, delim)
		require.Equal(t, len(want), parts.Len())
		for i, seg := range parts.Children() {
			require.Equal(t, want[i], seg.Bytes())
		}
		require.NoError(t, parts.Release())
		require.NoError(t, src.Release())
		require.Zero(t, h.Stats().Live)
	})
}
