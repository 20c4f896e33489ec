package storage

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Factory builds a Storage from a DSN.
type Factory func(dsn string) (Storage, error)

var factoryRegistry = struct {
	mu        sync.RWMutex
	factories map[string]Factory
}{
	factories: map[string]Factory{},
}

// RegisterFactory makes scheme available to Open. A registered factory takes
// precedence over the built-in one for the same scheme.
func RegisterFactory(scheme string, factory Factory) {
	scheme = normalizeScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	factoryRegistry.mu.Lock()
	defer factoryRegistry.mu.Unlock()
	factoryRegistry.factories[scheme] = factory
}

func lookupFactory(scheme string) (Factory, bool) {
	scheme = normalizeScheme(scheme)
	factoryRegistry.mu.RLock()
	defer factoryRegistry.mu.RUnlock()
	factory, ok := factoryRegistry.factories[scheme]
	return factory, ok
}

// Open builds a Storage from dsn:
//
//	memory://                 in-process map
//	file:///path/store.json   JSON document (a bare path works too)
//	badger:///path/dir        embedded Badger database
//	badger://memory           in-memory Badger database
//	postgres://...            Postgres table formsaver_entries
func Open(dsn string) (Storage, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: dsn is empty", ErrInvalidInput)
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	scheme := normalizeScheme(parsed.Scheme)
	if factory, ok := lookupFactory(scheme); ok {
		return factory(dsn)
	}
	switch scheme {
	case "", "file":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return NewFile(path)
	case "memory", "mem":
		return NewMemory(), nil
	case "badger":
		if strings.EqualFold(parsed.Host, "memory") && strings.Trim(parsed.Path, "/") == "" {
			return NewBadger(InMemoryBadgerConfig())
		}
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return NewBadger(DefaultBadgerConfig(path))
	case "postgres", "postgresql":
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if strings.TrimSpace(parsed.Scheme) == "" {
		return strings.TrimSpace(raw), nil
	}
	path := strings.TrimSpace(parsed.Path)
	if path == "" {
		path = strings.TrimSpace(parsed.Opaque)
	}
	if path == "" {
		path = strings.TrimSpace(parsed.Host)
	}
	if path == "" {
		return "", fmt.Errorf("%w: no path in %q", ErrInvalidInput, raw)
	}
	return path, nil
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}
