package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
)

// FileStore keeps the saved URLs in a small YAML file. Writes go through a
// temp file and rename so a crash never leaves a torn file behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (f *FileStore) Load(context.Context) (SavedURLs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStore) Save(_ context.Context, slot telemetry.SlotName, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	urls, err := f.read()
	if err != nil {
		return err
	}
	urls.set(KeyFor(slot), url)
	return f.write(urls)
}

func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear saved urls: %w", err)
	}
	return nil
}

func (f *FileStore) read() (SavedURLs, error) {
	var urls SavedURLs
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return urls, nil
	}
	if err != nil {
		return urls, fmt.Errorf("read saved urls: %w", err)
	}
	if err := yaml.Unmarshal(b, &urls); err != nil {
		return SavedURLs{}, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return urls, nil
}

func (f *FileStore) write(urls SavedURLs) error {
	b, err := yaml.Marshal(urls)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("write saved urls: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".urls-*.yaml")
	if err != nil {
		return fmt.Errorf("write saved urls: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write saved urls: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write saved urls: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("write saved urls: %w", err)
	}
	return nil
}
