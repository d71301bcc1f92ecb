package calltimer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Storage persists one snapshot per session
type Storage interface {
	Load(ctx context.Context, sessionID string) (snap Snapshot, found bool, err error)
	Save(ctx context.Context, sessionID string, snap Snapshot) error
}

// StorageKey namespaces a session so timers never collide
func StorageKey(sessionID string) string {
	return "calltimer_" + sessionID
}

// MemoryStorage keeps snapshots in process memory
type MemoryStorage struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{snaps: make(map[string]Snapshot)}
}

func (m *MemoryStorage) Load(_ context.Context, sessionID string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snaps[StorageKey(sessionID)]
	return snap.clone(), ok, nil
}

func (m *MemoryStorage) Save(_ context.Context, sessionID string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snaps[StorageKey(sessionID)] = snap.clone()
	return nil
}

// FileStorage writes each snapshot as a JSON file in Dir
type FileStorage struct {
	Dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("calltimer: create storage dir: %w", err)
	}
	return &FileStorage{Dir: dir}, nil
}

func (f *FileStorage) path(sessionID string) string {
	return filepath.Join(f.Dir, url.PathEscape(StorageKey(sessionID))+".json")
}

func (f *FileStorage) Load(_ context.Context, sessionID string) (Snapshot, bool, error) {
	data, err := os.ReadFile(f.path(sessionID))
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("calltimer: read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("calltimer: decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Save replaces the file atomically so a crash never leaves half a snapshot
func (f *FileStorage) Save(_ context.Context, sessionID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("calltimer: encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(f.Dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("calltimer: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("calltimer: write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("calltimer: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("calltimer: close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(sessionID)); err != nil {
		return fmt.Errorf("calltimer: replace snapshot: %w", err)
	}
	return nil
}
