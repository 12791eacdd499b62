package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/backtest/domain"
)

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// MemoryRepository is an in-process domain.JobRepository, for tests and for
// deployments that don't need job durability across restarts (§3
// "BacktestJobs persist for the server's lifetime (or in a repository,
// implementation choice)").
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]domain.BacktestJob
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: make(map[string]domain.BacktestJob)}
}

// Save implements domain.JobRepository.
func (r *MemoryRepository) Save(ctx context.Context, job *domain.BacktestJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.JobID] = *job
	return nil
}

// FindByID implements domain.JobRepository.
func (r *MemoryRepository) FindByID(ctx context.Context, jobID string) (*domain.BacktestJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, apperr.NotFound("backtest job %q not found", jobID)
	}
	return &job, nil
}

// List implements domain.JobRepository.
func (r *MemoryRepository) List(ctx context.Context, limit, offset int, status domain.JobStatus) ([]domain.BacktestJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.BacktestJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID > out[j].JobID })

	if offset > 0 {
		if offset >= len(out) {
			return []domain.BacktestJob{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Delete implements domain.JobRepository.
func (r *MemoryRepository) Delete(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
	return nil
}

// Transition implements domain.JobRepository: the map's own mutex already
// serializes load-mutate-store, so this is just those three steps without
// releasing the lock in between.
func (r *MemoryRepository) Transition(ctx context.Context, jobID string, mutate func(*domain.BacktestJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return apperr.NotFound("backtest job %q not found", jobID)
	}
	mutate(&job)
	r.jobs[job.JobID] = job
	return nil
}
