package storage

import (
	"context"
	"fmt"
)

// Quota limits the size of each entry written to the wrapped Storage. The
// size of an entry is len(key)+len(value) in bytes.
type Quota struct {
	Storage
	limit int
}

// NewQuota wraps inner. A non-positive limit disables the check.
func NewQuota(inner Storage, limit int) *Quota {
	return &Quota{Storage: inner, limit: limit}
}

func (q *Quota) Set(ctx context.Context, key, value string) error {
	if size := len(key) + len(value); q.limit > 0 && size > q.limit {
		return fmt.Errorf("%w: entry %q is %d bytes, limit %d", ErrQuotaExceeded, key, size, q.limit)
	}
	return q.Storage.Set(ctx, key, value)
}

// Close closes the wrapped store when it holds resources.
func (q *Quota) Close() error {
	return Close(q.Storage)
}
