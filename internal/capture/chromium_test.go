package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureOptionsDefaults(t *testing.T) {
	_, err := CaptureOptions{OutputPath: "/tmp/x.png"}.withDefaults()
	assert.Error(t, err)

	_, err = CaptureOptions{URL: "http://127.0.0.1:8080/"}.withDefaults()
	assert.Error(t, err)

	o, err := CaptureOptions{URL: "http://127.0.0.1:8080/", OutputPath: "/tmp/x.png", Width: 800}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, time.Duration(DefaultTimeoutSec)*time.Second, o.Timeout)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "preview.png")
	require.NoError(t, writeFileAtomic(path, []byte("first")))
	require.NoError(t, writeFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
