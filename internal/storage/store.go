// Package storage persists the last-configured upstream URLs across restarts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
)

// Fixed keys of the two saved URLs.
const (
	KeyURL1 = "wssUrl1"
	KeyURL2 = "wssUrl2"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

type SavedURLs struct {
	URL1 string `yaml:"wssUrl1,omitempty" json:"wssUrl1,omitempty"`
	URL2 string `yaml:"wssUrl2,omitempty" json:"wssUrl2,omitempty"`
}

func (s SavedURLs) Empty() bool { return s.URL1 == "" && s.URL2 == "" }

func (s *SavedURLs) set(key, url string) {
	switch key {
	case KeyURL1:
		s.URL1 = url
	case KeyURL2:
		s.URL2 = url
	}
}

// KeyFor maps a slot to its storage key.
func KeyFor(slot telemetry.SlotName) string {
	if slot == telemetry.SlotTeam2 {
		return KeyURL2
	}
	return KeyURL1
}

type URLStore interface {
	Load(ctx context.Context) (SavedURLs, error)
	Save(ctx context.Context, slot telemetry.SlotName, url string) error
	Clear(ctx context.Context) error
}

type Options struct {
	Driver string
	Path   string
	DSN    string
}

// Open builds the store selected by opts.Driver. The returned closer releases
// any underlying resources.
func Open(ctx context.Context, opts Options) (URLStore, io.Closer, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), noClose{}, nil
	case DriverFile, "":
		return NewFileStore(opts.Path), noClose{}, nil
	case DriverPostgres:
		st, err := OpenPostgres(ctx, opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

type noClose struct{}

func (noClose) Close() error { return nil }

type MemoryStore struct {
	mu   sync.Mutex
	urls SavedURLs
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (SavedURLs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.urls, nil
}

func (m *MemoryStore) Save(_ context.Context, slot telemetry.SlotName, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls.set(KeyFor(slot), url)
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = SavedURLs{}
	return nil
}
