// Package storage keeps uploaded files (property images, profile
// pictures and owner verification documents) on the local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload kinds, each stored in its own sub-directory.
const (
	PropertyImages = "properties"
	UserImages     = "users"
	Verification   = "users/verification"
)

// MaxUploadBytes bounds a single upload.
const MaxUploadBytes = 5 << 20

var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var imageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// Local writes files under Root and serves them from URLPrefix.
type Local struct {
	Root      string
	URLPrefix string
}

// NewLocal creates the upload directories.
func NewLocal(root, urlPrefix string) (*Local, error) {
	for _, sub := range []string{PropertyImages, UserImages, Verification} {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(sub)), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &Local{Root: root, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save copies fh under kind with a name of the form
// "<prefix>_<uuid><ext>" and returns the path relative to Root using
// forward slashes.  Verification documents may also be PDFs.
func (s *Local) Save(kind, prefix string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxUploadBytes {
		return "", ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExt[ext] && !(kind == Verification && ext == ".pdf") {
		return "", ErrUnsupportedType
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	rel := path.Join(kind, fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext))
	dst, err := os.Create(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	// the limit guards against a lying Size header
	n, err := io.Copy(dst, io.LimitReader(src, MaxUploadBytes+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxUploadBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return rel, nil
}

// Remove deletes a file previously returned by Save.  Missing files
// are not an error.
func (s *Local) Remove(rel string) error {
	clean := path.Clean("/" + rel)
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// URL returns the public URL of rel.
func (s *Local) URL(rel string) string { return s.URLPrefix + "/" + rel }
