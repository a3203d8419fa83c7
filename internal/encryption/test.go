package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"plantly/internal/plantly"
)

// testHeader marks snapshots sealed by TestEncryptor.
var testHeader = []byte("PLNTENC\x00")

// ErrWrongPassphrase is returned by TestEncryptor.Unlock on a passphrase mismatch.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// TestEncryptor is a deterministic stand-in for AgeEncryptor. It prepends a
// fixed header on encrypt and strips it on decrypt. When Setup has been
// called, Unlock only accepts the same passphrase.
type TestEncryptor struct {
	passphrase  string
	setupCalled bool
}

var _ plantly.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (plantly.DecryptionContext, error) {
	if e.setupCalled && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ plantly.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
