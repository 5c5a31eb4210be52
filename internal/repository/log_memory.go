package repository

import (
	"context"
	"sync"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
)

// MemoryLogStore is a fixed-capacity ring of audit entries.
type MemoryLogStore struct {
	mu    sync.RWMutex
	buf   []models.LogEntry
	next  int
	count int
}

var _ drepo.LogStore = (*MemoryLogStore)(nil)

func NewMemoryLogStore(capacity int) *MemoryLogStore {
	if capacity < models.MaxRecentLogs {
		capacity = models.MaxRecentLogs
	}
	return &MemoryLogStore{buf: make([]models.LogEntry, capacity)}
}

func (s *MemoryLogStore) Append(_ context.Context, e models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = e
	s.next = (s.next + 1) % len(s.buf)
	if s.count < len(s.buf) {
		s.count++
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *MemoryLogStore) Recent(_ context.Context, n int) ([]models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > s.count {
		n = s.count
	}
	if n <= 0 {
		return []models.LogEntry{}, nil
	}
	out := make([]models.LogEntry, n)
	for i := 0; i < n; i++ {
		idx := (s.next - 1 - i + len(s.buf)) % len(s.buf)
		out[i] = s.buf[idx]
	}
	return out, nil
}

func (s *MemoryLogStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.buf {
		s.buf[i] = models.LogEntry{}
	}
	s.next, s.count = 0, 0
	return nil
}
