package upload

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "temp_uploads"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestAllowed(t *testing.T) {
	for _, name := range []string{"leaf.png", "leaf.JPG", "a.b.jpeg"} {
		require.True(t, Allowed(name), name)
	}
	for _, name := range []string{"leaf.gif", "leaf", "png", "leaf.png.exe", ""} {
		require.False(t, Allowed(name), name)
	}
}

func TestStore_SaveAndRemove(t *testing.T) {
	s := newStore(t)

	path, err := s.Save(fileHeader(t, "../../Leaf.JPG", []byte("jpeg bytes")))
	require.NoError(t, err)
	require.Equal(t, s.Dir(), filepath.Dir(path))
	require.True(t, strings.HasSuffix(path, ".jpg"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "jpeg bytes", string(data))

	s.Remove(path)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// removing twice is a no-op
	s.Remove(path)
}

func TestStore_RejectsExtension(t *testing.T) {
	s := newStore(t)

	_, err := s.Save(fileHeader(t, "notes.txt", []byte("hi")))
	require.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}
