// Package store holds the engine.Store implementations: an in-memory store
// used by tests and ephemeral games, and a gorm-backed store for the
// on-device database.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/DoyleJ11/gondi/internal/engine"
)

type Memory struct {
	mu     sync.RWMutex
	tables map[string]engine.Table
	notes  *notifier
}

var _ engine.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]engine.Table),
		notes:  newNotifier(),
	}
}

func (m *Memory) table(sessionID string) (engine.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[sessionID]
	if !ok {
		return engine.Table{}, fmt.Errorf("%w: %s", engine.ErrNoSession, sessionID)
	}
	return t.Clone(), nil
}

func (m *Memory) State(_ context.Context, sessionID string) (engine.GameState, error) {
	t, err := m.table(sessionID)
	return t.State, err
}

func (m *Memory) Players(_ context.Context, sessionID string) ([]engine.Player, error) {
	t, err := m.table(sessionID)
	return t.Players, err
}

func (m *Memory) Votes(_ context.Context, sessionID string) ([]engine.Vote, error) {
	t, err := m.table(sessionID)
	return t.Votes, err
}

func (m *Memory) Create(_ context.Context, t engine.Table) error {
	m.mu.Lock()
	m.tables[t.State.ID] = t.Clone()
	m.mu.Unlock()

	m.notes.notify(t.State.ID)
	return nil
}

func (m *Memory) Update(_ context.Context, sessionID string, fn func(*engine.Table) error) error {
	m.mu.Lock()
	t, ok := m.tables[sessionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", engine.ErrNoSession, sessionID)
	}
	next := t.Clone()
	if err := fn(&next); err != nil {
		m.mu.Unlock()
		return err
	}
	m.tables[sessionID] = next
	m.mu.Unlock()

	m.notes.notify(sessionID)
	return nil
}

func (m *Memory) Reset(_ context.Context, sessionID string) error {
	m.mu.Lock()
	_, existed := m.tables[sessionID]
	delete(m.tables, sessionID)
	m.mu.Unlock()

	if existed {
		m.notes.notify(sessionID)
	}
	return nil
}

func (m *Memory) Watch(ctx context.Context, sessionID string) <-chan struct{} {
	return m.notes.watch(ctx, sessionID)
}
