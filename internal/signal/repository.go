package signal

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/wyfcoding/etfarb/internal/apperr"
)

// Repository is the append-only signal store contract (§4.F). Insert is
// serialized against a monotonic id; List/Count are point-in-time snapshots.
type Repository interface {
	Insert(ctx context.Context, s *TradingSignal) error
	List(ctx context.Context, f Filter) ([]TradingSignal, error)
	Get(ctx context.Context, id int64) (*TradingSignal, error)
	Count(ctx context.Context, f Filter) (int64, error)
}

// GormRepository is the gorm-backed Repository implementation, the §6
// "Persisted layout" table.
type GormRepository struct {
	db *gorm.DB
	// insertMu serializes inserts so id assignment (and therefore list
	// ordering) is linearizable across concurrent per-security subroutines,
	// independent of the database driver's own locking.
	insertMu sync.Mutex
}

// NewGormRepository wraps db as a Repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates the signals table if it does not exist.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&TradingSignal{})
}

// Insert appends s, assigning it a monotonically increasing id.
func (r *GormRepository) Insert(ctx context.Context, s *TradingSignal) error {
	r.insertMu.Lock()
	defer r.insertMu.Unlock()
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return apperr.Internal(err, "insert signal")
	}
	return nil
}

// List returns signals matching f, newest-first.
func (r *GormRepository) List(ctx context.Context, f Filter) ([]TradingSignal, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&TradingSignal{}), f).Order("id DESC")
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}
	var out []TradingSignal
	if err := query.Find(&out).Error; err != nil {
		return nil, apperr.Internal(err, "list signals")
	}
	return out, nil
}

// Get fetches a single signal by id.
func (r *GormRepository) Get(ctx context.Context, id int64) (*TradingSignal, error) {
	var s TradingSignal
	err := r.db.WithContext(ctx).First(&s, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound("signal %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "get signal")
	}
	return &s, nil
}

// Count returns the number of signals matching f.
func (r *GormRepository) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&TradingSignal{}), f).Count(&n).Error
	if err != nil {
		return 0, apperr.Internal(err, "count signals")
	}
	return n, nil
}

func (r *GormRepository) applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if f.Start != nil {
		q = q.Where("timestamp >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("timestamp <= ?", *f.End)
	}
	if f.StockCode != "" {
		q = q.Where("stock_code = ?", f.StockCode)
	}
	if f.ETFCode != "" {
		q = q.Where("etf_code = ?", f.ETFCode)
	}
	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	return q
}
