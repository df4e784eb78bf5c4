package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]Draft
}

// NewMemoryStore returns an empty store whose first id is 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, rows: make(map[int64]Draft)}
}

func (s *MemoryStore) Insert(ctx context.Context, draft Draft) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(draft), nil
}

func (s *MemoryStore) InsertAll(ctx context.Context, drafts []Draft) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(drafts))
	for _, d := range drafts {
		ids = append(ids, s.insertLocked(d))
	}
	return ids, nil
}

func (s *MemoryStore) insertLocked(d Draft) int64 {
	id := s.nextID
	s.nextID++
	s.rows[id] = d
	return id
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]Entry, 0, len(s.rows))
	for id, d := range s.rows {
		entries = append(entries, Entry{ID: id, Draft: d})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (s *MemoryStore) UpdateByID(ctx context.Context, patch Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[patch.ID]
	if !ok || patch.Empty() {
		return false, nil
	}
	s.rows[patch.ID] = patch.Apply(row)
	return true, nil
}
