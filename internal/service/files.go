package service

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// UploadedFile is a file saved for use as a claim attachment.
type UploadedFile struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// SaveUpload writes an attachment into the upload directory. The returned
// path can be passed as a supporting image of a claim.
func (s *Service) SaveUpload(filename string, body io.Reader) (*UploadedFile, error) {
	name := filepath.Base(filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, errors.New("missing file name")
	}
	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create upload directory")
	}

	path := filepath.Join(s.config.UploadDir, uuid.New().String()[:8]+"_"+strings.ReplaceAll(name, " ", "_"))
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create upload file")
	}
	size, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "failed to write upload")
	}
	return &UploadedFile{Filename: name, Path: path, Size: size}, nil
}
