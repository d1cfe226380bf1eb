package sentflags

import (
	"context"
	"fmt"
	"sync"
)

// Kind namespaces a flag.
type Kind string

const (
	TRFEmail Kind = "trf_email_sent"
	Reminder Kind = "reminder_sent"
)

// Store remembers one-shot notifications that must not be repeated.
type Store interface {
	IsSent(ctx context.Context, kind Kind, key string) (bool, error)
	MarkSent(ctx context.Context, kind Kind, key string) error
	Clear(ctx context.Context, kind Kind, key string) error
}

func TRFKey(userID, scheduleID string) string {
	return fmt.Sprintf("%s:%s", userID, scheduleID)
}

func flagKey(kind Kind, key string) string {
	return fmt.Sprintf("%s:%s", kind, key)
}

type MemoryStore struct {
	mu    sync.RWMutex
	flags map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: make(map[string]struct{})}
}

func (m *MemoryStore) IsSent(_ context.Context, kind Kind, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.flags[flagKey(kind, key)]
	return ok, nil
}

func (m *MemoryStore) MarkSent(_ context.Context, kind Kind, key string) error {
	m.mu.Lock()
	m.flags[flagKey(kind, key)] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, kind Kind, key string) error {
	m.mu.Lock()
	delete(m.flags, flagKey(kind, key))
	m.mu.Unlock()
	return nil
}
