package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

const badgerKeyPrefix = "formsaver/"

// BadgerConfig configures an embedded Badger store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM; useful for tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives Badger's internal log lines. Nil disables them.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns a durable configuration rooted at path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig returns a configuration without disk persistence.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerRecord is the CBOR value stored under each key.
type badgerRecord struct {
	Value     string    `cbor:"value"`
	UpdatedAt time.Time `cbor:"updated_at"`
}

var (
	recordEncMode cbor.EncMode
	recordDecMode cbor.DecMode
)

func init() {
	var err error
	recordEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
	recordDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}
}

// Badger stores entries in an embedded BadgerDB as CBOR records.
type Badger struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadger opens a database described by cfg. The caller must Close it.
func NewBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("%w: badger path is required for a persistent database", ErrInvalidInput)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("storage: create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}
	return &Badger{db: db, now: time.Now}, nil
}

func (b *Badger) Get(_ context.Context, key string) (string, bool, error) {
	record, found, err := b.load(key)
	return record.Value, found, err
}

// UpdatedAt returns when key was last written.
func (b *Badger) UpdatedAt(_ context.Context, key string) (time.Time, bool, error) {
	record, found, err := b.load(key)
	return record.UpdatedAt, found, err
}

func (b *Badger) load(key string) (badgerRecord, bool, error) {
	var record badgerRecord
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return recordDecMode.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return badgerRecord{}, false, fmt.Errorf("storage: badger get %q: %w", key, err)
	}
	return record, found, nil
}

func (b *Badger) Set(_ context.Context, key, value string) error {
	data, err := recordEncMode.Marshal(badgerRecord{Value: value, UpdatedAt: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("storage: encode badger record %q: %w", key, err)
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(key), data)
	}); err != nil {
		return fmt.Errorf("storage: badger set %q: %w", key, err)
	}
	return nil
}

func (b *Badger) Remove(_ context.Context, key string) error {
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(key))
	}); err != nil {
		return fmt.Errorf("storage: badger remove %q: %w", key, err)
	}
	return nil
}

func (b *Badger) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func badgerKey(key string) []byte {
	return []byte(badgerKeyPrefix + key)
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
