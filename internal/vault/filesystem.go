package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"plantly/internal/plantly"
)

// snapshotFile is the name of the snapshot inside the snapshot directory.
const snapshotFile = "plants.json"

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores the snapshot and content as files in a directory structure:
//
//	<root>/
//	  snapshot/
//	    plants.json    (current snapshot, replaced atomically)
//	  content/
//	    <checksum>     (content files, named by SHA-256)
type FileSystemVault struct {
	name        string
	root        string
	snapshotDir string
	contentDir  string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	snapshotDir := filepath.Join(root, "snapshot")
	contentDir := filepath.Join(root, "content")

	for _, dir := range []string{snapshotDir, contentDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create vault directory: %w", err)
		}
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		snapshotDir: snapshotDir,
		contentDir:  contentDir,
	}, nil
}

// PutSnapshot atomically replaces the snapshot file.
func (v *FileSystemVault) PutSnapshot(r io.Reader, size int64) error {
	return v.writeFile(v.SnapshotPath(), r, size)
}

// GetSnapshot writes the snapshot file to w.
func (v *FileSystemVault) GetSnapshot(w io.Writer) error {
	f, err := os.Open(v.SnapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			return plantly.ErrNoSnapshot
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// SnapshotPath returns the location of the snapshot file.
func (v *FileSystemVault) SnapshotPath() string {
	return filepath.Join(v.snapshotDir, snapshotFile)
}

// PutContent stores content identified by its checksum.
// The operation is idempotent: storing the same checksum multiple times is safe.
func (v *FileSystemVault) PutContent(checksum string, r io.Reader, size int64) error {
	destPath := v.ContentPath(checksum)

	// If content already exists, skip (idempotent)
	if _, err := os.Stat(destPath); err == nil {
		// Consume the reader to maintain expected behavior
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	return v.writeFile(destPath, r, size)
}

// GetContent retrieves content by checksum and writes it to w.
func (v *FileSystemVault) GetContent(checksum string, w io.Writer) error {
	f, err := os.Open(v.ContentPath(checksum))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("content not found: %s", checksum)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

// ContentPath returns where content with the given checksum lives on disk.
func (v *FileSystemVault) ContentPath(checksum string) string {
	return filepath.Join(v.contentDir, checksum)
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	for _, dir := range []string{v.snapshotDir, v.contentDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}

	return nil
}

// writeFile writes data from r to destPath using atomic write (temp file + rename),
// then syncs the directory. On any failure before the rename the previous file
// at destPath is left untouched.
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if written != expectedSize {
		tmpFile.Close()
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true

	if err := syncDir(dir); err != nil {
		return fmt.Errorf("failed to sync directory: %w", err)
	}
	return nil
}

// syncDir flushes dir's entries so a completed rename survives a crash.
var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Compile-time check that FileSystemVault implements plantly.Vault interface
var _ plantly.Vault = (*FileSystemVault)(nil)
