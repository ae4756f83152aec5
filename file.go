package foundry

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// FileUpload describes a file sent to the Files API.
// Exactly one of Path or Reader must be provided.
type FileUpload struct {
	Path     string
	Reader   io.Reader
	Filename string
	MimeType string

	// Optional validation; when set to >0, paths larger than this are rejected.
	MaxBytes int64
}

// filename returns the effective filename.
func (f FileUpload) filename() string {
	if f.Filename != "" {
		return f.Filename
	}
	if f.Path != "" {
		return filepath.Base(f.Path)
	}
	return "upload"
}

// mimeType returns mime type or guesses from filename.
func (f FileUpload) mimeType() string {
	if f.MimeType != "" {
		return f.MimeType
	}
	if typ := mime.TypeByExtension(filepath.Ext(f.filename())); typ != "" {
		return typ
	}
	return "application/octet-stream"
}

// open returns an io.ReadCloser for the file upload.
func (f FileUpload) open() (io.ReadCloser, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	if f.Reader != nil {
		if rc, ok := f.Reader.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(f.Reader), nil
	}

	// Open file first to avoid TOCTOU race between Stat and Open
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", f.Path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat file %s: %w", f.Path, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("file upload requires a file, got directory: %s", f.Path)
	}
	if info.Size() == 0 {
		file.Close()
		return nil, fmt.Errorf("file %s is empty", f.Path)
	}
	if f.MaxBytes > 0 && info.Size() > f.MaxBytes {
		file.Close()
		return nil, fmt.Errorf("file %s exceeds max size of %d bytes", f.Path, f.MaxBytes)
	}

	return file, nil
}

func (f FileUpload) validate() error {
	switch {
	case f.Reader != nil && f.Path != "":
		return fmt.Errorf("file upload accepts either Path or Reader, not both")
	case f.Reader != nil, f.Path != "":
		return nil
	default:
		return fmt.Errorf("file upload requires Path or Reader")
	}
}
