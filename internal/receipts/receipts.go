// Package receipts stores uploaded payment receipt files. A receipt
// belongs to the caller until an order referencing it commits; on any
// abort the coordinator deletes it so no file is ever orphaned.
package receipts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipts dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the upload under a fresh uuid name and returns the opaque
// ref used to address it later.
func (s *Store) Save(r io.Reader, ext string) (string, error) {
	ext = strings.Trim(ext, ".")
	if strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	ref := uuid.NewString()
	if ext != "" {
		ref = ref + "." + ext
	}

	f, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write receipt file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close receipt file: %w", err)
	}

	return ref, nil
}

// Delete removes a stored receipt. A ref that is already gone is not an
// error.
func (s *Store) Delete(ref string) error {
	if ref == "" {
		return nil
	}
	if filepath.Base(ref) != ref {
		return fmt.Errorf("invalid receipt ref %q", ref)
	}

	err := os.Remove(filepath.Join(s.dir, ref))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete receipt: %w", err)
	}
	return nil
}

// Exists reports whether a ref currently points at a stored file.
func (s *Store) Exists(ref string) bool {
	if ref == "" || filepath.Base(ref) != ref {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dir, ref))
	return err == nil
}
