package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

// ResultStore keeps results in process memory.
type ResultStore struct {
	results map[string][]*domain.RecoveryResult // by node, oldest first
	mu      sync.RWMutex
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string][]*domain.RecoveryResult),
	}
}

func (s *ResultStore) Save(ctx context.Context, r *domain.RecoveryResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := r.Clone()
	list := append(s.results[r.NodeID], &cp)
	// Keep completion order even if callers save out of order
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.Before(list[j].Timestamp)
	})
	s.results[r.NodeID] = list
	return nil
}

func (s *ResultStore) Recent(ctx context.Context, nodeID string, limit int) ([]*domain.RecoveryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.results[nodeID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]*domain.RecoveryResult, 0, limit)
	for _, r := range list[len(list)-limit:] {
		cp := r.Clone()
		out = append(out, &cp)
	}
	return out, nil
}

func (s *ResultStore) Count(ctx context.Context, nodeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results[nodeID]), nil
}

func (s *ResultStore) DeleteOlderThan(ctx context.Context, nodeID string, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.results[nodeID]
	kept := list[:0]
	for _, r := range list {
		if !r.Timestamp.Before(before) {
			kept = append(kept, r)
		}
	}
	removed := int64(len(list) - len(kept))
	s.results[nodeID] = kept
	return removed, nil
}
