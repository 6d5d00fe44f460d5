package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used in tests and single-node dev
// setups. Cosine distance, brute force.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if _, exists := s.records[rec.ID]; !exists {
			s.order = append(s.order, rec.ID)
		}
		s.records[rec.ID] = rec
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, filter Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, id := range s.order {
		rec := s.records[id]
		if Matches(filter, rec.Meta) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Match, error) {
	if topK < 1 {
		topK = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Match
	for _, id := range s.order {
		rec := s.records[id]
		if !Matches(filter, rec.Meta) {
			continue
		}
		matches = append(matches, Match{
			Record:   rec,
			Distance: cosineDistance(embedding, rec.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.remove(id)
	}
	return nil
}

func (s *MemoryStore) DeleteWhere(ctx context.Context, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doomed []string
	for _, id := range s.order {
		if Matches(filter, s.records[id].Meta) {
			doomed = append(doomed, id)
		}
	}
	for _, id := range doomed {
		s.remove(id)
	}
	return nil
}

// remove assumes the write lock is held.
func (s *MemoryStore) remove(id string) {
	if _, exists := s.records[id]; !exists {
		return
	}
	delete(s.records, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.MaxFloat64
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return math.MaxFloat64
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
