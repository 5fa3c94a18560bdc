package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutputCarriesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, FormatJSON, LevelInfo)
	t.Cleanup(func() { Setup(os.Stderr, FormatConsole, LevelInfo) })

	Info("fetch done", "endpoint", "/api/speakers", "count", 3, 42, "ignored", "dangling")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fetch done", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "/api/speakers", line["endpoint"])
	assert.EqualValues(t, 3, line["count"])
	assert.NotContains(t, line, "dangling")
}

func TestErrorIncludesErr(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, FormatJSON, LevelInfo)
	t.Cleanup(func() { Setup(os.Stderr, FormatConsole, LevelInfo) })

	Error("decode failed", errors.New("unexpected EOF"), "endpoint", "/api/event")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "unexpected EOF", line["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, FormatConsole, LevelError)
	t.Cleanup(func() { Setup(os.Stderr, FormatConsole, LevelInfo) })

	Debug("hidden")
	Info("hidden too")
	assert.Empty(t, buf.String())

	Error("shown", errors.New("boom"))
	assert.True(t, strings.Contains(buf.String(), "shown"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
