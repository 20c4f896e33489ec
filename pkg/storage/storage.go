// Package storage defines the key-value contract the form saver persists
// through, plus the built-in adapters and a DSN registry to open them.
//
// Responsibilities:
//   - Storage only gets, sets and removes one string value per key.
//   - Async wraps any Storage so every call yields a deferred result; the
//     engine never blocks on writes and never observes their errors unless it
//     asks for them.
//   - Open builds adapters from DSNs (memory, file, badger, postgres) and
//     defers to factories registered with RegisterFactory.
//
// Data flow:
//
//	formsaver.Handle -> storage.Async(s).Set(...) -> *Pending -> s.Set(ctx, key, value)
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrInvalidInput reports an empty key or DSN.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrUnsupportedScheme reports a DSN scheme with no built-in or registered factory.
	ErrUnsupportedScheme = errors.New("storage: unsupported scheme")
	// ErrQuotaExceeded is returned by Quota when a write would exceed its limit.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrAdapterPanic reports a store that panicked inside an Async call.
	ErrAdapterPanic = errors.New("storage: adapter panic")
)

// Storage is a string key-value store. Implementations must be safe for
// concurrent use. Get reports ok=false for a missing key without an error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Close releases s when it holds resources. Storages without a Close method
// are left alone.
func Close(s Storage) error {
	if closer, ok := s.(io.Closer); ok && closer != nil {
		return closer.Close()
	}
	return nil
}
