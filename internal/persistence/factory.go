package persistence

import (
	"fmt"

	"plantly/internal/config"
	"plantly/internal/database"
	"plantly/internal/encryption"
	"plantly/internal/plantly"
	"plantly/internal/vault"
)

// Store is a SnapshotStore that may hold resources until closed.
type Store interface {
	plantly.SnapshotStore
	Close() error
}

// NewStoreFromConfig builds the snapshot store selected by cfg.Storage.
// Vault-backed storage honours cfg.Encryption; SQLite storage does not
// encrypt and logs a warning if encryption is configured.
func NewStoreFromConfig(cfg *config.Config, passphrase PassphraseFunc, logger plantly.Logger) (Store, error) {
	if logger == nil {
		logger = plantly.NewNopLogger()
	}

	if cfg.Storage.Type == "sqlite" {
		if cfg.Encryption.Type != "" && cfg.Encryption.Type != "none" {
			logger.Warn("encryption is not applied to sqlite storage", "encryption", cfg.Encryption.Type)
		}
		db, err := database.NewDatabaseFromConfig(cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		return db, nil
	}

	v, err := vault.NewVaultFromConfig(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(); err != nil {
		return nil, fmt.Errorf("validating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil && !enc.IsConfigured() {
		return nil, fmt.Errorf("encryption is enabled but no keys exist; run 'plantly config encryption init'")
	}

	return NewVaultSnapshotStore(v, enc, passphrase, logger), nil
}
