// Package source reads the measurement document written by an external
// process. The file is copied aside before parsing so a concurrent writer can
// never hand us half a document.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/Hobrus/hobrushealth.git/internal/app/tracker/health"
)

var (
	// ErrNotFound means there is no input document yet.
	ErrNotFound = errors.New("metrics file not found")
	// ErrMalformed means the document is not a JSON object.
	ErrMalformed = errors.New("invalid JSON in metrics file")
)

const snapshotSuffix = ".tmp"

type Reader struct {
	fs   afero.Fs
	path string
}

func NewReader(fs afero.Fs, path string) *Reader {
	return &Reader{fs: fs, path: path}
}

func (r *Reader) Path() string {
	return r.path
}

// Read snapshots the document to <path>.tmp, decodes the copy and removes it.
func (r *Reader) Read() (health.RawRecord, error) {
	tmp := r.path + snapshotSuffix
	if err := r.snapshot(tmp); err != nil {
		return nil, err
	}
	defer func() {
		_ = r.fs.Remove(tmp)
	}()

	data, err := afero.ReadFile(r.fs, tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", tmp, err)
	}

	var raw health.RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformed, r.path, err)
	}
	if raw == nil {
		// "null" decodes without error
		return nil, fmt.Errorf("%w %s: document is null", ErrMalformed, r.path)
	}
	return raw, nil
}

// snapshot copies the document together with its modification time.
func (r *Reader) snapshot(dst string) error {
	src, err := r.fs.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, r.path)
		}
		return fmt.Errorf("failed to open %s: %w", r.path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", r.path, err)
	}

	out, err := r.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = r.fs.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", r.path, err)
	}
	if err := out.Close(); err != nil {
		_ = r.fs.Remove(dst)
		return fmt.Errorf("failed to close snapshot %s: %w", dst, err)
	}

	_ = r.fs.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
