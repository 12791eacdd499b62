package domain

import "context"

// JobRepository persists BacktestJob state across the server's lifetime
// (§3 "BacktestJobs persist for the server's lifetime").
type JobRepository interface {
	Save(ctx context.Context, job *BacktestJob) error
	FindByID(ctx context.Context, jobID string) (*BacktestJob, error)
	List(ctx context.Context, limit, offset int, status JobStatus) ([]BacktestJob, error)
	Delete(ctx context.Context, jobID string) error
	// Transition loads the job, applies mutate, and saves the result as one
	// atomic step, so a progress update racing a status update can't clobber
	// one another with a stale load-then-save.
	Transition(ctx context.Context, jobID string, mutate func(*BacktestJob)) error
}
