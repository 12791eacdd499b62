// Package application implements the Backtest Driver's job-tracking service
// (§4.G "Job tracking"): start/status/result/signals/list/cancel, adapted
// from the teacher's async task-status pattern (PENDING -> COMPLETED/FAILED)
// generalized to the full §3 BacktestJob status set.
package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/backtest/domain"
	"github.com/wyfcoding/etfarb/internal/platform/metrics"
	"github.com/wyfcoding/etfarb/internal/signal"
)

// Service runs backtest jobs asynchronously and tracks their state.
type Service struct {
	driver *domain.Driver
	repo   domain.JobRepository
	logger *slog.Logger

	// Metrics, if set, receives a BacktestJobsTotal increment per terminal
	// status. Left nil by NewService; callers set it after construction.
	Metrics *metrics.Metrics

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService wires a Driver and JobRepository into a job-tracking service.
func NewService(driver *domain.Driver, repo domain.JobRepository, logger *slog.Logger) *Service {
	return &Service{driver: driver, repo: repo, logger: logger, cancels: make(map[string]context.CancelFunc)}
}

// Start validates cfg, enqueues a job, and begins execution asynchronously
// (§4.G "start(config) -> job_id enqueues and begins execution (async)").
func (s *Service) Start(ctx context.Context, cfg domain.BacktestConfig) (string, error) {
	if !cfg.EndDate.After(cfg.StartDate) && !cfg.EndDate.Equal(cfg.StartDate) {
		return "", apperr.Validation("end_date must not precede start_date")
	}

	jobID := uuid.NewString()
	job := &domain.BacktestJob{
		JobID:  jobID,
		Status: domain.StatusQueued,
		Config: cfg,
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return "", apperr.Internal(err, "save backtest job")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()

	go s.run(runCtx, jobID, cfg)

	return jobID, nil
}

func (s *Service) run(ctx context.Context, jobID string, cfg domain.BacktestConfig) {
	defer func() {
		s.mu.Lock()
		delete(s.cancels, jobID)
		s.mu.Unlock()
	}()

	now := time.Now()
	s.transition(ctx, jobID, func(j *domain.BacktestJob) {
		j.Status = domain.StatusRunning
		j.StartedAt = &now
	})

	result, err := s.driver.Run(ctx, cfg, func(progress float64) {
		s.transition(ctx, jobID, func(j *domain.BacktestJob) {
			j.Progress = progress
		})
	})

	finished := time.Now()
	if err != nil {
		if ctx.Err() != nil {
			s.transition(ctx, jobID, func(j *domain.BacktestJob) {
				j.Status = domain.StatusCancelled
				j.FinishedAt = &finished
				j.Message = "cancelled"
			})
			s.recordTerminal(domain.StatusCancelled)
			return
		}
		s.logger.Error("backtest failed", "job_id", jobID, "error", err)
		s.transition(ctx, jobID, func(j *domain.BacktestJob) {
			j.Status = domain.StatusFailed
			j.FinishedAt = &finished
			j.Error = err.Error()
		})
		s.recordTerminal(domain.StatusFailed)
		return
	}

	// Record before the status becomes visible, so a caller that observes
	// "completed" also observes the counter.
	s.recordTerminal(domain.StatusCompleted)
	s.transition(ctx, jobID, func(j *domain.BacktestJob) {
		j.Status = domain.StatusCompleted
		j.Progress = 1
		j.FinishedAt = &finished
		j.Result = result
	})
	s.logger.Info("backtest completed", "job_id", jobID, "signals", len(result.Signals))
}

func (s *Service) transition(ctx context.Context, jobID string, mutate func(*domain.BacktestJob)) {
	if err := s.repo.Transition(ctx, jobID, mutate); err != nil {
		s.logger.Error("backtest job transition failed", "job_id", jobID, "error", err)
	}
}

// recordTerminal increments BacktestJobsTotal for a job reaching status,
// covering both run()'s own terminal transitions and Cancel's direct save
// of a queued job.
func (s *Service) recordTerminal(status domain.JobStatus) {
	if s.Metrics != nil {
		s.Metrics.BacktestJobsTotal.WithLabelValues(string(status)).Inc()
	}
}

// Status returns the current job state.
func (s *Service) Status(ctx context.Context, jobID string) (*domain.BacktestJob, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, apperr.NotFound("backtest job %q not found", jobID)
	}
	return job, nil
}

// Result returns the finished result, or a conflict if the job has not
// completed yet.
func (s *Service) Result(ctx context.Context, jobID string) (*domain.BacktestResult, error) {
	job, err := s.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.StatusCompleted {
		return nil, apperr.Conflict("backtest job %q is %s, not completed", jobID, job.Status)
	}
	return job.Result, nil
}

// Signals returns the finished job's emitted signals.
func (s *Service) Signals(ctx context.Context, jobID string) ([]signal.TradingSignal, error) {
	result, err := s.Result(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return result.Signals, nil
}

// List returns jobs, optionally filtered by status.
func (s *Service) List(ctx context.Context, limit, offset int, status domain.JobStatus) ([]domain.BacktestJob, error) {
	return s.repo.List(ctx, limit, offset, status)
}

// Cancel requests cooperative cancellation of a running job (§4.G "cancel").
// A job with no run in flight whose stored status is still queued or running
// is marked cancelled; any other job (completed, failed, cancelled) is
// deleted outright (§6 DELETE /api/backtest/{id} doubles as cancel-or-delete).
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	cancel, running := s.cancels[jobID]
	s.mu.Unlock()

	if running {
		cancel()
		return nil
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return apperr.NotFound("backtest job %q not found", jobID)
	}
	if job.Status == domain.StatusQueued || job.Status == domain.StatusRunning {
		job.Status = domain.StatusCancelled
		if err := s.repo.Save(ctx, job); err != nil {
			return err
		}
		s.recordTerminal(domain.StatusCancelled)
		return nil
	}
	return s.repo.Delete(ctx, jobID)
}
