package download

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{ after string }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after != "" {
		n := copy(p, r.after)
		r.after = r.after[n:]
		return n, nil
	}
	return 0, errors.New("connection reset")
}

func TestFileHook_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ep.mp3")
	hook := NewFileHook(path)
	assert.Equal(t, path, hook.Path())
	require.NoError(t, hook.Open())

	require.NoError(t, hook.Success(strings.NewReader("audio bytes")))
	assert.Equal(t, int64(11), hook.Written())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", string(data))

	hook.Abandon() // no-op after success, file stays
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileHook_OpenTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ep.mp3")
	require.NoError(t, os.WriteFile(path, []byte("old and longer content"), 0o600))

	hook := NewFileHook(path)
	require.NoError(t, hook.Open())
	require.NoError(t, hook.Success(strings.NewReader("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFileHook_MovedResetsOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ep.mp3")
	hook := NewFileHook(path)
	require.NoError(t, hook.Open())

	// simulate a partial write from the first location
	_, err := hook.file.WriteString("partial data from old location")
	require.NoError(t, err)

	require.NoError(t, hook.Moved("http://example.com/new"))
	require.NoError(t, hook.Success(strings.NewReader("fresh")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestFileHook_Failures(t *testing.T) {
	t.Run("write failure removes partial file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ep.mp3")
		hook := NewFileHook(path)
		require.NoError(t, hook.Open())

		err := hook.Success(&failingReader{after: "some bytes"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("abandon removes partial file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ep.mp3")
		hook := NewFileHook(path)
		require.NoError(t, hook.Open())
		hook.Abandon()
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("open in missing directory", func(t *testing.T) {
		hook := NewFileHook(filepath.Join(t.TempDir(), "missing", "ep.mp3"))
		err := hook.Open()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "for writing")
	})

	t.Run("success without open", func(t *testing.T) {
		hook := NewFileHook(filepath.Join(t.TempDir(), "ep.mp3"))
		require.Error(t, hook.Success(strings.NewReader("x")))
		require.Error(t, hook.Moved("http://example.com"))
	})
}
