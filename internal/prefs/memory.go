package prefs

import (
	"context"
	"sync"
)

// Memory is a process-local Store, used when no Redis address is configured.
type Memory struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewMemory() *Memory {
	return &Memory{}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Load(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *Memory) Save(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{}
	return nil
}
