package destruct

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	logger "github.com/glitchlinux/deaddrop/internal/logging"
)

// WriteSyncCloser is the handle a shred pass writes through. Sync matters:
// the overwrite must reach the backing store before the delete.
type WriteSyncCloser interface {
	io.Writer
	Sync() error
	Close() error
}

// FileOps abstracts the filesystem calls the shredder makes, so tests can
// observe that a full-length overwrite happens before every deletion.
type FileOps interface {
	Stat(path string) (os.FileInfo, error)
	OpenWrite(path string) (WriteSyncCloser, error)
	Remove(path string) error
	ReadDir(path string) ([]os.DirEntry, error)
}

// OSFileOps is the real filesystem.
type OSFileOps struct{}

func (OSFileOps) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (OSFileOps) OpenWrite(path string) (WriteSyncCloser, error) {
	// No O_TRUNC: the point is overwriting the existing bytes in place.
	return os.OpenFile(path, os.O_WRONLY, 0)
}

func (OSFileOps) Remove(path string) error { return os.Remove(path) }

func (OSFileOps) ReadDir(path string) ([]os.DirEntry, error) { return os.ReadDir(path) }

// Shredder destroys files by overwriting their full length with
// cryptographically random data before deleting them. Plain deletion is
// never enough: it leaves the ciphertext recoverable on the backing store.
type Shredder struct {
	fs   FileOps
	rand io.Reader
	log  logger.Logger
}

// NewShredder returns a Shredder over the real filesystem and crypto/rand.
func NewShredder(log logger.Logger) *Shredder {
	return &Shredder{fs: OSFileOps{}, rand: rand.Reader, log: log}
}

// NewShredderWithFS returns a Shredder over the given filesystem and
// random source.
func NewShredderWithFS(fs FileOps, random io.Reader, log logger.Logger) *Shredder {
	return &Shredder{fs: fs, rand: random, log: log}
}

// ShredFile overwrites the file at path with one full-length random pass,
// syncs, and deletes it. A missing file is a no-op, not an error.
func (s *Shredder) ShredFile(path string) error {
	info, err := s.fs.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("shred %s: is a directory", path)
	}

	if err := s.overwrite(path, info.Size()); err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	s.log.Debugf("Shredded %s (%d bytes)", path, info.Size())
	return nil
}

// ShredDir overwrites every regular file under dir, recursively. Files are
// destroyed individually before the directory itself is torn down, so even
// a failed unmount leaves no readable content behind. Individual failures
// are logged and the sweep continues: partial destruction beats none.
func (s *Shredder) ShredDir(dir string) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		s.log.Errorf("Reading %s: %v", dir, err)
		return
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			s.ShredDir(path)
			continue
		}
		if err := s.ShredFile(path); err != nil {
			s.log.Errorf("Shredding %s: %v", path, err)
		}
	}
}

func (s *Shredder) overwrite(path string, size int64) error {
	f, err := s.fs.OpenWrite(path)
	if err != nil {
		return fmt.Errorf("opening %s for overwrite: %w", path, err)
	}
	defer f.Close()

	if _, err := io.CopyN(f, s.rand, size); err != nil {
		return fmt.Errorf("overwriting %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	return nil
}
