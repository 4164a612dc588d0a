package storage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveAndRemove(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root, "/media/")
	require.NoError(t, err)

	rel, err := s.Save(PropertyImages, "property_3", fileHeader(t, "Cabane.JPG", []byte("jpeg-bytes")))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rel, "properties/property_3_"))
	require.True(t, strings.HasSuffix(rel, ".jpg"))
	require.Equal(t, "/media/"+rel, s.URL(rel))

	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(got))

	require.NoError(t, s.Remove(rel))
	require.NoError(t, s.Remove(rel))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	require.True(t, os.IsNotExist(err))
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	s, err := NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	_, err = s.Save(PropertyImages, "p", fileHeader(t, "doc.pdf", []byte("%PDF")))
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Save(Verification, "verification_1", fileHeader(t, "doc.pdf", []byte("%PDF")))
	require.NoError(t, err)
}

func TestSaveRejectsLargeFile(t *testing.T) {
	s, err := NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)
	fh := fileHeader(t, "big.png", []byte("x"))
	fh.Size = MaxUploadBytes + 1
	_, err = s.Save(UserImages, "user_1", fh)
	require.ErrorIs(t, err, ErrTooLarge)
}
