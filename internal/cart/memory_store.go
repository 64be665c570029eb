package cart

import (
	"context"
	"sync"
)

// MemoryStore implements Store with in-memory storage, one line map per
// session. Sessions are created on first write and destroyed on Clear.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionCart
}

type sessionCart struct {
	lines map[int64]Line
	order []int64 // insertion order of product IDs
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*sessionCart),
	}
}

func (s *MemoryStore) Lines(_ context.Context, sessionID string) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, exists := s.sessions[sessionID]
	if !exists {
		return nil, nil
	}

	result := make([]Line, 0, len(sc.order))
	for _, id := range sc.order {
		result = append(result, sc.lines[id])
	}
	return result, nil
}

func (s *MemoryStore) GetLine(_ context.Context, sessionID string, productID int64) (Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, exists := s.sessions[sessionID]
	if !exists {
		return Line{}, ErrLineNotFound
	}
	line, exists := sc.lines[productID]
	if !exists {
		return Line{}, ErrLineNotFound
	}
	return line, nil
}

func (s *MemoryStore) AddLine(_ context.Context, sessionID string, line Line) error {
	if line.Quantity < 1 {
		return ErrBadQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, exists := s.sessions[sessionID]
	if !exists {
		sc = &sessionCart{lines: make(map[int64]Line)}
		s.sessions[sessionID] = sc
	}
	if _, exists := sc.lines[line.ProductID]; !exists {
		sc.order = append(sc.order, line.ProductID)
	}
	sc.lines[line.ProductID] = line
	return nil
}

func (s *MemoryStore) IncrementQuantity(_ context.Context, sessionID string, productID int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, exists := s.sessions[sessionID]
	if !exists {
		return ErrLineNotFound
	}
	line, exists := sc.lines[productID]
	if !exists {
		return ErrLineNotFound
	}
	line.Quantity += delta
	sc.lines[productID] = line
	return nil
}

func (s *MemoryStore) DecrementQuantity(_ context.Context, sessionID string, productID int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, exists := s.sessions[sessionID]
	if !exists {
		return ErrLineNotFound
	}
	line, exists := sc.lines[productID]
	if !exists {
		return ErrLineNotFound
	}

	line.Quantity -= delta
	if line.Quantity > 0 {
		sc.lines[productID] = line
		return nil
	}
	sc.remove(productID)
	return nil
}

func (s *MemoryStore) RemoveLine(_ context.Context, sessionID string, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, exists := s.sessions[sessionID]; exists {
		sc.remove(productID)
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (sc *sessionCart) remove(productID int64) {
	if _, exists := sc.lines[productID]; !exists {
		return
	}
	delete(sc.lines, productID)
	for i, id := range sc.order {
		if id == productID {
			sc.order = append(sc.order[:i], sc.order[i+1:]...)
			break
		}
	}
}
