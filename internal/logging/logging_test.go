package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
	l, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	require.Error(t, err)
}

func TestCategoryFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "debug", Format: "json", Categories: []string{"split"}, Out: &buf})
	require.NoError(t, err)

	log.Debug("kept", CategoryKey, "split")
	log.Debug("dropped", CategoryKey, "memory")
	log.Debug("uncategorized")
	log.Warn("always", CategoryKey, "memory")
	log.With(CategoryKey, "split").Info("bound")
	log.With(CategoryKey, "list").Info("bound elsewhere")

	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		msgs = append(msgs, rec["msg"].(string))
	}
	assert.Equal(t, []string{"kept", "always", "bound"}, msgs)
}

func TestNoCategoriesKeepsEverything(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "debug", Out: &buf})
	require.NoError(t, err)
	log.Debug("one", CategoryKey, "memory")
	log.Debug("two")
	assert.Contains(t, buf.String(), "msg=one")
	assert.Contains(t, buf.String(), "msg=two")
	assert.NotContains(t, buf.String(), "\x1b[", "no colour outside a terminal")
}

func TestLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "error", Out: &buf})
	require.NoError(t, err)
	log.Warn("quiet")
	assert.Empty(t, buf.String())
	log.Error("loud")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestColorLevel(t *testing.T) {
	a := colorLevel(nil, slog.Any(slog.LevelKey, slog.LevelWarn))
	assert.Equal(t, colorYellow+"WARN"+colorReset, a.Value.String())
	a = colorLevel(nil, slog.Any(slog.LevelKey, slog.LevelInfo))
	assert.Equal(t, "INFO", a.Value.Any().(slog.Level).String())
	a = colorLevel([]string{"g"}, slog.Any(slog.LevelKey, slog.LevelError))
	assert.Equal(t, slog.LevelError, a.Value.Any())
}
