package signal

import (
	"context"
	"sort"
	"sync"

	"github.com/wyfcoding/etfarb/internal/apperr"
)

// InMemoryRepository is a Repository used by the backtest driver (which
// needs no durability across process restarts) and by unit tests that want
// to avoid a database.
type InMemoryRepository struct {
	mu      sync.Mutex
	signals []TradingSignal
	nextID  int64
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1}
}

// Insert implements Repository.
func (r *InMemoryRepository) Insert(ctx context.Context, s *TradingSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextID
	r.nextID++
	r.signals = append(r.signals, *s)
	return nil
}

// List implements Repository, returning a point-in-time snapshot newest-first.
func (r *InMemoryRepository) List(ctx context.Context, f Filter) ([]TradingSignal, error) {
	r.mu.Lock()
	snapshot := make([]TradingSignal, len(r.signals))
	copy(snapshot, r.signals)
	r.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID > snapshot[j].ID })

	filtered := make([]TradingSignal, 0, len(snapshot))
	for _, s := range snapshot {
		if !matches(s, f) {
			continue
		}
		filtered = append(filtered, s)
	}
	if f.Offset > 0 {
		if f.Offset >= len(filtered) {
			return []TradingSignal{}, nil
		}
		filtered = filtered[f.Offset:]
	}
	if f.Limit > 0 && len(filtered) > f.Limit {
		filtered = filtered[:f.Limit]
	}
	return filtered, nil
}

// Get implements Repository.
func (r *InMemoryRepository) Get(ctx context.Context, id int64) (*TradingSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.signals {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("signal %d not found", id)
}

// Count implements Repository.
func (r *InMemoryRepository) Count(ctx context.Context, f Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.signals {
		if matches(s, f) {
			n++
		}
	}
	return n, nil
}

func matches(s TradingSignal, f Filter) bool {
	if f.Start != nil && s.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && s.Timestamp.After(*f.End) {
		return false
	}
	if f.StockCode != "" && s.StockCode != f.StockCode {
		return false
	}
	if f.ETFCode != "" && s.ETFCode != f.ETFCode {
		return false
	}
	if f.EventType != "" && s.EventType != f.EventType {
		return false
	}
	return true
}
