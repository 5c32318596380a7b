package repository

import (
	"context"
	"sync"
	"time"

	"github.com/darkodi/shortlinks/internal/model"
)

// MemoryLinkStore is a map guarded by a single RWMutex
type MemoryLinkStore struct {
	mu    sync.RWMutex
	links map[string]*model.LinkRecord
}

func NewMemoryLinkStore() *MemoryLinkStore {
	return &MemoryLinkStore{
		links: make(map[string]*model.LinkRecord),
	}
}

func (m *MemoryLinkStore) Insert(ctx context.Context, rec *model.LinkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[rec.Shortcode]; exists {
		return ErrDuplicate
	}

	stored := *rec
	m.links[rec.Shortcode] = &stored
	return nil
}

// Get returns a copy so callers can't bypass IncrementClicks
func (m *MemoryLinkStore) Get(ctx context.Context, shortcode string) (*model.LinkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.links[shortcode]
	if !exists {
		return nil, ErrNotFound
	}

	recCopy := *rec
	return &recCopy, nil
}

func (m *MemoryLinkStore) IncrementClicks(ctx context.Context, shortcode string, now time.Time) (*model.LinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.links[shortcode]
	if !exists {
		return nil, ErrNotFound
	}
	if rec.ExpiredAt(now) {
		return nil, ErrExpired
	}

	rec.ClickCount++
	recCopy := *rec
	return &recCopy, nil
}

func (m *MemoryLinkStore) Remove(ctx context.Context, shortcode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.links, shortcode)
	return nil
}

func (m *MemoryLinkStore) DeleteExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for code, rec := range m.links {
		if rec.ExpiresAt.Before(cutoff) {
			delete(m.links, code)
			removed = append(removed, code)
		}
	}
	return removed, nil
}

func (m *MemoryLinkStore) Close() error {
	return nil
}

// MemoryHistoryStore keeps click histories in a map of slices
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	history map[string][]model.ClickEvent
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{
		history: make(map[string][]model.ClickEvent),
	}
}

func (m *MemoryHistoryStore) Init(ctx context.Context, shortcode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[shortcode] = []model.ClickEvent{}
	return nil
}

func (m *MemoryHistoryStore) Append(ctx context.Context, shortcode string, event model.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[shortcode] = append(m.history[shortcode], event)
	return nil
}

func (m *MemoryHistoryStore) List(ctx context.Context, shortcode string) ([]model.ClickEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.history[shortcode]
	out := make([]model.ClickEvent, len(events))
	copy(out, events)
	return out, nil
}

func (m *MemoryHistoryStore) Delete(ctx context.Context, shortcode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.history, shortcode)
	return nil
}

func (m *MemoryHistoryStore) Close() error {
	return nil
}
