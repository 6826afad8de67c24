// Package state keeps short-lived per-user conversation state: which free-text
// answer the bot expects next from a user.
package state

import (
	"context"
	"sync"
	"time"

	"partner-bot/internal/models"
)

type Kind string

const (
	AwaitingPayout        Kind = "awaiting_payout"
	AwaitingBroadcastText Kind = "awaiting_broadcast_text"
)

type State struct {
	Kind   Kind                 `json:"kind"`
	Method models.PaymentMethod `json:"method,omitempty"`
}

type Store interface {
	Get(ctx context.Context, userID int64) (State, bool, error)
	Set(ctx context.Context, userID int64, s State) error
	Clear(ctx context.Context, userID int64) error
}

// Deduper remembers keys for a while; MarkOnce reports true only for the
// first caller within the ttl.
type Deduper interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryStore is the in-process Store and Deduper. Entries never expire
// until overwritten or cleared.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]State
	marks  map[string]time.Time
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[int64]State),
		marks:  make(map[string]time.Time),
		now:    time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[userID]
	return s, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, userID int64, s State) error {
	m.mu.Lock()
	m.states[userID] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.states, userID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if until, ok := m.marks[key]; ok && now.Before(until) {
		return false, nil
	}
	m.marks[key] = now.Add(ttl)
	return true, nil
}
