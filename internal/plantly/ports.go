package plantly

import (
	"io"

	"plantly/internal/model"
)

// Logger provides structured logging for the store and its adapters.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger is a Logger that discards all output. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// SnapshotStore durably saves and loads the whole plant collection.
// Implementations hold no copy of the collection between calls.
type SnapshotStore interface {
	// Save replaces the stored snapshot with plants. Either the new snapshot
	// fully replaces the old one or the old one is left intact.
	Save(plants []*model.Plant) error

	// Load returns the most recent snapshot, or an empty collection if none
	// exists. Records that cannot be decoded are skipped individually.
	Load() ([]*model.Plant, error)
}

// Vault is a blob backend for the encoded snapshot and for image content.
type Vault interface {
	// PutSnapshot atomically replaces the stored snapshot with size bytes read from r.
	PutSnapshot(r io.Reader, size int64) error

	// GetSnapshot writes the stored snapshot to w.
	// Returns ErrNoSnapshot if nothing has been stored yet.
	GetSnapshot(w io.Writer) error

	// PutContent stores content identified by its checksum.
	// The operation is idempotent: storing the same checksum multiple times is safe.
	PutContent(checksum string, r io.Reader, size int64) error

	// GetContent retrieves content by checksum and writes it to w.
	GetContent(checksum string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}

// Encryptor handles encryption of the snapshot blob at rest.
// Encryption uses the public key only; decryption requires a passphrase to
// unlock the private key, producing a DecryptionContext for the session.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `plantly config encryption init`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist at configured paths.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory. It is never written to disk.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
