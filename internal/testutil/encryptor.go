package testutil

import (
	"plantly/internal/encryption"
)

// NewTestEncryptor creates a deterministic encryptor for testing.
func NewTestEncryptor() *encryption.TestEncryptor {
	return encryption.NewTestEncryptor()
}
