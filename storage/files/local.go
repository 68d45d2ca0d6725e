package files

import (
	"bytes"
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/admission"
)

var (
	// <slot>-<uuid>.<ext>; anything else (eg: "../x") never reaches the filesystem
	filenameRegex = regexp.MustCompile(`^[a-z_]+-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z0-9]{1,5}$`)
	extRegex      = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)
)

// LocalStore keeps the application documents in a directory of the local disk.
type LocalStore struct {
	root        string
	photoMaxDim int
}

var _ admission.DocumentStore = (*LocalStore)(nil) // interface compliance check

// NewLocalStore creates `root` if needed. Photos larger than photoMaxDim (in px) are scaled down; 0 disables it.
func NewLocalStore(root string, photoMaxDim int) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.Wrap(err, "creating media root")
	}
	return &LocalStore{root: root, photoMaxDim: photoMaxDim}, nil
}

func extension(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if extRegex.MatchString(ext) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		if ext = strings.ToLower(exts[0]); extRegex.MatchString(ext) {
			return ext
		}
	}
	return ".bin"
}

// normalizePhoto fits the photo within max*max px and re-encodes it as JPEG.
// Data that cannot be decoded as an image is kept as is.
func normalizePhoto(data []byte, max int, ext string) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, ext
	}
	img = imaging.Fit(img, max, max, imaging.Lanczos)
	var buf bytes.Buffer
	if err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return data, ext
	}
	return buf.Bytes(), ".jpg"
}

func (s *LocalStore) path(filename string) (string, error) {
	if !filenameRegex.MatchString(filename) {
		return "", admission.ErrDocNotFound
	}
	return filepath.Join(s.root, filename), nil
}

func (s *LocalStore) Save(_ context.Context, slot admission.DocumentSlot, up admission.Upload) (string, error) {
	if _, err := admission.ParseDocumentSlot(string(slot)); err != nil {
		return "", err
	}
	data := up.Data
	ext := extension(up.Filename, up.ContentType)
	if slot == admission.SlotPhoto && s.photoMaxDim > 0 {
		data, ext = normalizePhoto(data, s.photoMaxDim, ext)
	}

	filename := string(slot) + "-" + uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.root, filename), data, 0o640); err != nil {
		return "", errors.Wrap(err, "writing document")
	}
	return filename, nil
}

func (s *LocalStore) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	p, err := s.path(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, admission.ErrDocNotFound
		}
		return nil, errors.Wrap(err, "opening document")
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, filename string) error {
	p, err := s.path(filename)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting document")
	}
	return nil
}

// ContentType guesses the MIME type of a stored document from its extension.
func ContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
