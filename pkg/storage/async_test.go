package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-formsaver/pkg/storage"
)

type failingStorage struct {
	err error
}

func (f failingStorage) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingStorage) Set(context.Context, string, string) error        { return f.err }
func (f failingStorage) Remove(context.Context, string) error             { return f.err }

type panickingStorage struct{}

func (panickingStorage) Get(context.Context, string) (string, bool, error) { panic("get exploded") }
func (panickingStorage) Set(context.Context, string, string) error        { panic("quota exploded") }
func (panickingStorage) Remove(context.Context, string) error             { panic("remove exploded") }

type blockingStorage struct {
	storage.Storage
	release chan struct{}
}

func (b blockingStorage) Set(ctx context.Context, key, value string) error {
	<-b.release
	return b.Storage.Set(ctx, key, value)
}

func TestAsyncResolvesSyncStore(t *testing.T) {
	ctx := context.Background()
	async := storage.Async(storage.NewMemory())

	if err := async.Set(ctx, "k", "v").Wait(ctx); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := async.Get(ctx, "k").Await(ctx)
	if err != nil || !ok || value != "v" {
		t.Fatalf("unexpected get result %q ok=%v err=%v", value, ok, err)
	}
	if err := async.Remove(ctx, "k").Wait(ctx); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := async.Get(ctx, "k").Await(ctx); ok {
		t.Fatalf("expected key removed")
	}
}

func TestAsyncCarriesErrors(t *testing.T) {
	boom := errors.New("boom")
	ctx := context.Background()
	async := storage.Async(failingStorage{err: boom})

	p := async.Set(ctx, "k", "v")
	<-p.Done()
	if !errors.Is(p.Err(), boom) {
		t.Fatalf("expected boom, got %v", p.Err())
	}
	if _, ok, err := async.Get(ctx, "k").Await(ctx); !errors.Is(err, boom) || ok {
		t.Fatalf("expected boom from get, got ok=%v err=%v", ok, err)
	}
}

func TestAsyncDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	mem := storage.NewMemory()
	async := storage.Async(blockingStorage{Storage: mem, release: release})

	p := async.Set(context.Background(), "k", "v")
	if p.Err() != nil {
		t.Fatalf("pending call must not report an error yet")
	}
	select {
	case <-p.Done():
		t.Fatalf("set should still be pending")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wait to time out, got %v", err)
	}

	close(release)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := mem.Get(context.Background(), "k"); !ok {
		t.Fatalf("expected write to land after release")
	}
}

func TestAsyncRecoversAdapterPanics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	async := storage.Async(panickingStorage{})

	if err := async.Set(ctx, "k", "v").Wait(ctx); !errors.Is(err, storage.ErrAdapterPanic) {
		t.Fatalf("expected ErrAdapterPanic from set, got %v", err)
	}
	if err := async.Remove(ctx, "k").Wait(ctx); !errors.Is(err, storage.ErrAdapterPanic) {
		t.Fatalf("expected ErrAdapterPanic from remove, got %v", err)
	}
	value, ok, err := async.Get(ctx, "k").Await(ctx)
	if !errors.Is(err, storage.ErrAdapterPanic) || ok || value != "" {
		t.Fatalf("expected ErrAdapterPanic from get, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestAsyncNilStorage(t *testing.T) {
	var async storage.Deferred
	if err := async.Set(context.Background(), "k", "v").Wait(context.Background()); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestQuotaRejectsLargeEntries(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	q := storage.NewQuota(mem, 8)

	if err := q.Set(ctx, "k", "1234567"); err != nil {
		t.Fatalf("entry within quota: %v", err)
	}
	if err := q.Set(ctx, "k", "12345678"); !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if value, _, _ := q.Get(ctx, "k"); value != "1234567" {
		t.Fatalf("rejected write must not replace value, got %q", value)
	}
}
