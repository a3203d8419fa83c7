package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"plantly/internal/plantly"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// Nothing survives the process, making it useful for testing and dry runs.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name     string
	snapshot []byte            // nil until the first PutSnapshot
	content  map[string][]byte // checksum -> content
	puts     int
	mu       sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		content: make(map[string][]byte),
	}
}

// PutSnapshot replaces the stored snapshot. The old snapshot is only
// swapped out once the new one has been read completely.
func (m *MemoryVault) PutSnapshot(r io.Reader, size int64) error {
	data, err := readExactly(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = data
	m.puts++
	return nil
}

// GetSnapshot writes the stored snapshot to w.
func (m *MemoryVault) GetSnapshot(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snapshot == nil {
		return plantly.ErrNoSnapshot
	}
	if _, err := io.Copy(w, bytes.NewReader(m.snapshot)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// SnapshotWrites returns how many snapshots have been stored.
func (m *MemoryVault) SnapshotWrites() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// PutContent stores content identified by its checksum.
func (m *MemoryVault) PutContent(checksum string, r io.Reader, size int64) error {
	data, err := readExactly(r, size)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: storing the same checksum multiple times is safe
	m.content[checksum] = data
	return nil
}

// GetContent retrieves content by checksum.
func (m *MemoryVault) GetContent(checksum string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[checksum]
	if !ok {
		return fmt.Errorf("content not found: %s", checksum)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}

	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

func readExactly(r io.Reader, size int64) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Compile-time check that MemoryVault implements plantly.Vault interface
var _ plantly.Vault = (*MemoryVault)(nil)
