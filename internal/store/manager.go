package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lisaec/MappingYourTransit-hosted/internal/gtfs"
)

// Manager maps feed names to their stores. Each feed gets its own
// mutex so concurrent first-time requests for the same feed cannot
// race on the check-then-build sequence, while different feeds build
// in parallel.
type Manager struct {
	feedsDir     string
	databasesDir string

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	stores map[string]*Store
}

// NewManager creates a manager rooted at feedsDir for sources and
// databasesDir for store files.
func NewManager(feedsDir, databasesDir string) *Manager {
	return &Manager{
		feedsDir:     feedsDir,
		databasesDir: databasesDir,
		locks:        map[string]*sync.Mutex{},
		stores:       map[string]*Store{},
	}
}

func (m *Manager) lockFor(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[name] = lock
	}
	return lock
}

// Get returns the store for the named feed under the manager's feeds
// directory, building it on first use.
func (m *Manager) Get(ctx context.Context, name string) (*Store, error) {
	feed, err := gtfs.Open(filepath.Join(m.feedsDir, name))
	if err != nil {
		return nil, err
	}
	return m.OpenOrBuild(ctx, feed)
}

// OpenOrBuild opens the store for feed, building it first if no
// completed load exists. An existing store is reused verbatim; its
// presence is the sole cache-validity signal.
func (m *Manager) OpenOrBuild(ctx context.Context, feed *gtfs.Feed) (*Store, error) {
	lock := m.lockFor(feed.Name())
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	cached := m.stores[feed.Name()]
	m.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	if err := os.MkdirAll(m.databasesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create databases directory: %w", err)
	}

	s, err := Connect(filepath.Join(m.databasesDir, feed.Name()+".db"), feed.Name())
	if err != nil {
		return nil, err
	}
	built, err := s.Built(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	if !built {
		if err := s.Build(ctx, feed); err != nil {
			s.Close()
			return nil, err
		}
	}

	m.mu.Lock()
	m.stores[feed.Name()] = s
	m.mu.Unlock()
	return s, nil
}

// Close closes every open store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for name, s := range m.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.stores, name)
	}
	return firstErr
}
