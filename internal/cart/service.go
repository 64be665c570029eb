package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
)

// Service fronts a Store with a read cache. Reads go through singleflight
// so concurrent misses for the same session hit the backing store once;
// every mutation writes through and invalidates. Service itself satisfies
// Store, so callers never know whether a cache is present.
type Service struct {
	store Store
	cache Cache
	sfg   singleflight.Group
}

func NewService(store Store, cache Cache) *Service {
	return &Service{
		store: store,
		cache: cache,
	}
}

func (s *Service) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {

		lines, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return lines, nil
		}

		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		lines, errGet := s.store.Lines(ctx, sessionID)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, sessionID, lines); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return lines, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]Line), nil
}

func (s *Service) GetLine(ctx context.Context, sessionID string, productID int64) (Line, error) {
	lines, err := s.Lines(ctx, sessionID)
	if err != nil {
		return Line{}, err
	}
	for _, line := range lines {
		if line.ProductID == productID {
			return line, nil
		}
	}
	return Line{}, ErrLineNotFound
}

func (s *Service) AddLine(ctx context.Context, sessionID string, line Line) error {
	if err := s.store.AddLine(ctx, sessionID, line); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

func (s *Service) IncrementQuantity(ctx context.Context, sessionID string, productID int64, delta int) error {
	if err := s.store.IncrementQuantity(ctx, sessionID, productID, delta); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

func (s *Service) DecrementQuantity(ctx context.Context, sessionID string, productID int64, delta int) error {
	if err := s.store.DecrementQuantity(ctx, sessionID, productID, delta); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

func (s *Service) RemoveLine(ctx context.Context, sessionID string, productID int64) error {
	if err := s.store.RemoveLine(ctx, sessionID, productID); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

func (s *Service) invalidate(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
