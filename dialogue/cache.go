package dialogue

import (
	"context"
	"sync"
)

// StoryCache persists story records between runs. Get returns nil, nil for an unknown story.
// Lock serialises refreshes of one story; the returned func releases it and is safe to call twice.
type StoryCache interface {
	Get(ctx context.Context, storyID int) (*StoryRecord, error)
	Put(ctx context.Context, record *StoryRecord) error
	Lock(ctx context.Context, storyID int) (func(), error)
}

type MemoryStoryCache struct {
	mu      sync.Mutex
	records map[int]StoryRecord
	locks   map[int]chan struct{}
}

var _ StoryCache = (*MemoryStoryCache)(nil)

func NewMemoryStoryCache() *MemoryStoryCache {
	return &MemoryStoryCache{
		records: make(map[int]StoryRecord),
		locks:   make(map[int]chan struct{}),
	}
}

func (m *MemoryStoryCache) Get(_ context.Context, storyID int) (*StoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[storyID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *MemoryStoryCache) Put(_ context.Context, record *StoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.StoryID] = *record
	return nil
}

func (m *MemoryStoryCache) Lock(ctx context.Context, storyID int) (func(), error) {
	m.mu.Lock()
	lock, ok := m.locks[storyID]
	if !ok {
		lock = make(chan struct{}, 1)
		m.locks[storyID] = lock
	}
	m.mu.Unlock()

	select {
	case lock <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-lock }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
