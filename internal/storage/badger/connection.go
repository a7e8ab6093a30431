package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/peto/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// Badger never garbage-collects value logs on its own. A scheduled swarm
// keeps the process alive for months, so the connection runs GC itself.
const (
	gcInterval     = 10 * time.Minute
	gcDiscardRatio = 0.5
)

// BadgerDB manages the Badger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
	gcStop chan struct{}
	gcDone chan struct{}
}

// NewBadgerDB creates a new Badger database connection
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	// If reset_on_startup is enabled, delete the existing database
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	// Ensure the directory exists
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")

	db := &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
		gcStop: make(chan struct{}),
		gcDone: make(chan struct{}),
	}
	go db.runGC()

	return db, nil
}

// runGC reclaims value log space on a fixed interval until Close.
func (b *BadgerDB) runGC() {
	defer close(b.gcDone)

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.gcStop:
			return
		case <-ticker.C:
			b.collectGarbage()
		}
	}
}

// collectGarbage runs GC cycles until badger reports nothing left to
// rewrite. Each successful cycle reclaims at most one value log file.
func (b *BadgerDB) collectGarbage() {
	for {
		err := b.store.Badger().RunValueLogGC(gcDiscardRatio)
		if err == nil {
			b.logger.Debug().Str("path", b.config.Path).Msg("Badger value log GC reclaimed space")
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			b.logger.Warn().Err(err).Msg("Badger value log GC failed")
		}
		return
	}
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close stops the GC loop and closes the database connection.
// Safe to call more than once.
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}

	close(b.gcStop)
	<-b.gcDone

	store := b.store
	b.store = nil
	return store.Close()
}
