package storage

import (
	"context"
	"fmt"
	"sync"
)

// Pending is the deferred outcome of a storage call.
type Pending struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Resolved returns a Pending that is already complete with err.
func Resolved(err error) *Pending {
	p := newPending()
	p.finish(err)
	return p
}

func (p *Pending) finish(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// recoverAdapter turns a panic in the wrapped store into the call error. It
// must be deferred directly by the goroutine running the call.
func (p *Pending) recoverAdapter(op string) {
	if r := recover(); r != nil {
		p.finish(fmt.Errorf("%w: %s: %v", ErrAdapterPanic, op, r))
	}
}

// Done is closed once the call completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the call error. It is nil until Done is closed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the call completes or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result is a Pending that also carries a value.
type Result[T any] struct {
	*Pending
	value T
	ok    bool
}

// Value returns the value and whether it was found. Both are zero until Done
// is closed.
func (r *Result[T]) Value() (T, bool) {
	select {
	case <-r.done:
		return r.value, r.ok
	default:
		var zero T
		return zero, false
	}
}

// Await waits like Wait and then returns the value.
func (r *Result[T]) Await(ctx context.Context) (T, bool, error) {
	if err := r.Wait(ctx); err != nil {
		var zero T
		return zero, false, err
	}
	return r.value, r.ok, nil
}

// Deferred runs every call of the wrapped Storage on its own goroutine. A
// panicking store completes the call with ErrAdapterPanic.
type Deferred struct {
	storage Storage
}

// Async wraps s so that synchronous and asynchronous stores share one
// deferred contract.
func Async(s Storage) Deferred {
	return Deferred{storage: s}
}

// Storage returns the wrapped store.
func (d Deferred) Storage() Storage {
	return d.storage
}

func (d Deferred) Get(ctx context.Context, key string) *Result[string] {
	r := &Result[string]{Pending: newPending()}
	if d.storage == nil {
		r.finish(ErrInvalidInput)
		return r
	}
	go func() {
		defer r.recoverAdapter("get")
		value, ok, err := d.storage.Get(ctx, key)
		r.value, r.ok = value, ok && err == nil
		r.finish(err)
	}()
	return r
}

func (d Deferred) Set(ctx context.Context, key, value string) *Pending {
	if d.storage == nil {
		return Resolved(ErrInvalidInput)
	}
	p := newPending()
	go func() {
		defer p.recoverAdapter("set")
		p.finish(d.storage.Set(ctx, key, value))
	}()
	return p
}

func (d Deferred) Remove(ctx context.Context, key string) *Pending {
	if d.storage == nil {
		return Resolved(ErrInvalidInput)
	}
	p := newPending()
	go func() {
		defer p.recoverAdapter("remove")
		p.finish(d.storage.Remove(ctx, key))
	}()
	return p
}
