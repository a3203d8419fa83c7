// Package persistence saves the plant collection as a single encoded
// snapshot in a Vault, optionally encrypted at rest.
package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"plantly/internal/model"
	"plantly/internal/plantly"
	"plantly/internal/snapshot"
)

// PassphraseFunc supplies the passphrase that unlocks the private key.
// It is called at most once per VaultSnapshotStore, on the first encrypted load.
type PassphraseFunc func() (string, error)

// VaultSnapshotStore is a plantly.SnapshotStore over a Vault.
//
// Save encodes the collection, encrypts it when an Encryptor is set, and
// replaces the vault snapshot in one PutSnapshot call. Load reverses that.
// A plaintext snapshot found while encryption is enabled is still read, so
// turning encryption on does not strand existing data; the next Save seals it.
type VaultSnapshotStore struct {
	vault      plantly.Vault
	encryptor  plantly.Encryptor
	passphrase PassphraseFunc
	logger     plantly.Logger

	mu        sync.Mutex
	decrypter plantly.DecryptionContext
}

var _ plantly.SnapshotStore = (*VaultSnapshotStore)(nil)

// NewVaultSnapshotStore creates a store over vault. encryptor may be nil to
// store plaintext; passphrase is only consulted when encryptor is set.
func NewVaultSnapshotStore(vault plantly.Vault, encryptor plantly.Encryptor, passphrase PassphraseFunc, logger plantly.Logger) *VaultSnapshotStore {
	if logger == nil {
		logger = plantly.NewNopLogger()
	}
	return &VaultSnapshotStore{
		vault:      vault,
		encryptor:  encryptor,
		passphrase: passphrase,
		logger:     logger,
	}
}

// Save replaces the stored snapshot with plants.
func (s *VaultSnapshotStore) Save(plants []*model.Plant) error {
	data, err := snapshot.Encode(plants)
	if err != nil {
		return err
	}

	if s.encryptor != nil {
		var sealed bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &sealed); err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
		data = sealed.Bytes()
	}

	if err := s.vault.PutSnapshot(bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}
	s.logger.Debug("snapshot saved", "plants", len(plants), "bytes", len(data), "encrypted", s.encryptor != nil)
	return nil
}

// Load returns the stored collection, or an empty one if nothing was saved yet.
func (s *VaultSnapshotStore) Load() ([]*model.Plant, error) {
	var buf bytes.Buffer
	if err := s.vault.GetSnapshot(&buf); err != nil {
		if errors.Is(err, plantly.ErrNoSnapshot) {
			s.logger.Debug("no snapshot stored, starting empty")
			return []*model.Plant{}, nil
		}
		return nil, fmt.Errorf("fetching snapshot: %w", err)
	}

	data := buf.Bytes()
	if s.encryptor != nil && len(data) > 0 {
		if looksPlaintext(data) {
			s.logger.Warn("snapshot is not encrypted, it will be encrypted on the next save")
		} else {
			plain, err := s.decrypt(data)
			if err != nil {
				return nil, err
			}
			data = plain
		}
	}

	res, err := snapshot.Decode(data, s.logger)
	if err != nil {
		return nil, err
	}
	if res.Skipped > 0 {
		s.logger.Warn("snapshot records skipped", "skipped", res.Skipped, "loaded", len(res.Plants))
	}
	return res.Plants, nil
}

func (s *VaultSnapshotStore) decrypt(data []byte) ([]byte, error) {
	dc, err := s.unlock()
	if err != nil {
		return nil, err
	}

	var plain bytes.Buffer
	if err := dc.Decrypt(bytes.NewReader(data), &plain); err != nil {
		return nil, fmt.Errorf("decrypting snapshot: %w", err)
	}
	return plain.Bytes(), nil
}

func (s *VaultSnapshotStore) unlock() (plantly.DecryptionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.decrypter != nil {
		return s.decrypter, nil
	}
	if s.passphrase == nil {
		return nil, errors.New("snapshot is encrypted and no passphrase source is configured")
	}

	pass, err := s.passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	dc, err := s.encryptor.Unlock(pass)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	s.decrypter = dc
	return dc, nil
}

// looksPlaintext reports whether data is a JSON document rather than ciphertext.
func looksPlaintext(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Close releases nothing; vaults hold no open handles between calls.
func (s *VaultSnapshotStore) Close() error { return nil }
