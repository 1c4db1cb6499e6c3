package infra

import (
	"context"
	"sync"

	"kvpool/client/redispool/domain"
)

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e para o endpoint /stats do kvhttp.
type MemoryStatsStore struct {
	mu     sync.Mutex
	total  map[domain.EventKind]int64
	bySlot map[int]map[domain.EventKind]int64

	trackSlots bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackSlots(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackSlots = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:  make(map[domain.EventKind]int64),
		bySlot: make(map[int]map[domain.EventKind]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Kind]++
	if !s.trackSlots {
		return nil
	}
	m, ok := s.bySlot[ev.Slot]
	if !ok {
		m = make(map[domain.EventKind]int64)
		s.bySlot[ev.Slot] = m
	}
	m[ev.Kind]++
	return nil
}

func (s *MemoryStatsStore) Count(kind domain.EventKind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total[kind]
}

func (s *MemoryStatsStore) Total() map[domain.EventKind]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.EventKind]int64, len(s.total))
	for k, v := range s.total {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) BySlot() map[int]map[domain.EventKind]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]map[domain.EventKind]int64, len(s.bySlot))
	for slot, m := range s.bySlot {
		c := make(map[domain.EventKind]int64, len(m))
		for k, v := range m {
			c[k] = v
		}
		out[slot] = c
	}
	return out
}
