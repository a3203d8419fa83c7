package app

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"plantly/internal/config"
	"plantly/internal/database"
	"plantly/internal/encryption"
	"plantly/internal/model"
	"plantly/internal/persistence"
	"plantly/internal/plantly"
	"plantly/internal/vault"
)

// PlantlyApp is the application layer between the CLI and PlantStore.
// It constructs all dependencies from config, accepts raw CLI input, and
// releases resources on Close.
type PlantlyApp struct {
	cfg     *config.Config
	persist persistence.Store
	images  *vault.FileSystemVault
	store   *plantly.PlantStore
	clock   plantly.Clock
	logger  plantly.Logger
	op      *Operation
	logFile *os.File
}

// Options carries the runtime inputs NewPlantlyApp cannot read from config.
type Options struct {
	Passphrase persistence.PassphraseFunc // consulted when the snapshot is encrypted
	Console    io.Writer                  // receives warnings and errors; nil for none
	Clock      plantly.Clock              // defaults to plantly.RealClock
	IDs        plantly.IDGenerator        // defaults to plantly.UUIDGenerator
}

// NewPlantlyApp creates a fully wired PlantlyApp from the given config.
// operation identifies the CLI command being run (e.g. "AddPlant").
// The caller must call Close when done.
func NewPlantlyApp(cfg *config.Config, operation, parameters string, opts Options) (*PlantlyApp, error) {
	if opts.Clock == nil {
		opts.Clock = plantly.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = plantly.UUIDGenerator{}
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	op := NewOperation(operation, parameters, opts.Clock.Now())
	sl, logFile, err := newLogger(cfg.LogDir, op.ID, opts.Console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	fail := func(err error) (*PlantlyApp, error) {
		logFile.Close()
		return nil, err
	}

	images, err := vault.NewFileSystemVault("images", cfg.Images.Dir)
	if err != nil {
		return fail(fmt.Errorf("creating image store: %w", err))
	}

	persist, err := persistence.NewStoreFromConfig(cfg, opts.Passphrase, logger)
	if err != nil {
		return fail(err)
	}

	store, err := plantly.Open(persist, plantly.NewScheduler(loc), opts.Clock, opts.IDs, logger)
	if err != nil {
		persist.Close()
		return fail(err)
	}

	logger.Debug("operation started", "operation", op.Name, "parameters", op.Parameters)

	return &PlantlyApp{
		cfg:     cfg,
		persist: persist,
		images:  images,
		store:   store,
		clock:   opts.Clock,
		logger:  logger,
		op:      op,
		logFile: logFile,
	}, nil
}

// AddPlant validates raw input, imports the image if one is given, and adds the plant.
func (a *PlantlyApp) AddPlant(name, frequency, imagePath string) (*model.Plant, error) {
	days, err := plantly.ParseFrequency(frequency)
	if err != nil {
		return nil, a.track(err)
	}

	var uri string
	if imagePath != "" {
		if uri, err = a.ImportImage(imagePath); err != nil {
			return nil, a.track(err)
		}
	}

	p, err := a.store.AddPlant(name, days, uri)
	return p, a.track(err)
}

// WaterPlant marks the plant identified by id (or a unique id prefix) as watered now.
func (a *PlantlyApp) WaterPlant(id string) (*model.Plant, error) {
	full, err := a.ResolveID(id)
	if err != nil {
		return nil, a.track(err)
	}
	p, err := a.store.WaterPlant(full)
	return p, a.track(err)
}

// RemovePlant deletes the plant identified by id (or a unique id prefix).
func (a *PlantlyApp) RemovePlant(id string) error {
	full, err := a.ResolveID(id)
	if err != nil {
		return a.track(err)
	}
	return a.track(a.store.RemovePlant(full))
}

// ShowPlant returns the plant's schedule evaluated now.
func (a *PlantlyApp) ShowPlant(id string) (model.PlantView, error) {
	full, err := a.ResolveID(id)
	if err != nil {
		return model.PlantView{}, a.track(err)
	}
	v, err := a.store.GetPlantView(full, a.clock.Now())
	return v, a.track(err)
}

// ListPlants returns every plant evaluated now, most urgent first.
func (a *PlantlyApp) ListPlants() []model.PlantView {
	return a.store.ListPlants(a.clock.Now())
}

// ResolveID expands a unique id prefix to the full plant id.
func (a *PlantlyApp) ResolveID(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", &plantly.NotFoundError{ID: prefix}
	}
	if _, err := a.store.GetPlant(prefix); err == nil {
		return prefix, nil
	}

	var matches []string
	for _, v := range a.store.ListPlants(a.clock.Now()) {
		if strings.HasPrefix(v.ID, prefix) {
			matches = append(matches, v.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", &plantly.NotFoundError{ID: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %q is ambiguous (%d plants match)", prefix, len(matches))
	}
}

// ImportImage copies the file at path into the image store, addressed by
// its SHA-256, and returns the stored file's path for use as an image URI.
func (a *PlantlyApp) ImportImage(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("image path is a directory: %s", path)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing image: %w", err)
	}
	checksum := hex.EncodeToString(h.Sum(nil))

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding image: %w", err)
	}
	if err := a.images.PutContent(checksum, f, info.Size()); err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}

	a.logger.Info("image imported", "source", path, "checksum", checksum)
	return a.images.ContentPath(checksum), nil
}

// Subscribe registers fn for store events for the lifetime of the app.
func (a *PlantlyApp) Subscribe(fn plantly.Listener) func() {
	return a.store.Subscribe(fn)
}

// Close logs the operation outcome and releases resources.
func (a *PlantlyApp) Close() error {
	var firstErr error
	if err := a.persist.Close(); err != nil {
		firstErr = fmt.Errorf("closing storage: %w", err)
	}

	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status)

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// track records a failed step on the operation. A persistence error still
// counts as a failure even though the change was applied in memory.
func (a *PlantlyApp) track(err error) error {
	if err != nil {
		a.op.Fail()
		a.logger.Debug("operation step failed", "operation", a.op.Name, "error", err)
	}
	return err
}

// InitEncryption generates the key pair configured in cfg. Existing keys
// are never replaced.
func InitEncryption(cfg *config.Config, passphrase string) error {
	if cfg.Encryption.Type == "" || cfg.Encryption.Type == "none" {
		return errors.New("encryption type is \"none\"; set [encryption] type = \"age\" in the config first")
	}
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return err
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up encryption: %w", err)
	}
	return nil
}

// Reseal rewrites the current collection through the configured store.
// After InitEncryption this stores a previously plaintext snapshot encrypted.
func (a *PlantlyApp) Reseal() error {
	return a.track(a.store.Flush())
}

// ValidateStorage checks that the configured snapshot backend is reachable.
// A SQLite store is created on first use; an existing one must already be
// at the latest schema.
func ValidateStorage(cfg *config.Config) error {
	if cfg.Storage.Type == "sqlite" {
		return validateDatabase(cfg.Storage)
	}
	v, err := vault.NewVaultFromConfig(cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	return v.ValidateSetup()
}

func validateDatabase(cfg config.StorageConfig) error {
	db, err := database.OpenDatabaseFromConfig(cfg, nil)
	if errors.Is(err, fs.ErrNotExist) {
		db, err = database.NewDatabaseFromConfig(cfg, nil)
	}
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("checking database schema: %w", err)
	}
	return nil
}
