package infrastructure

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/backtest/domain"
	"github.com/wyfcoding/etfarb/internal/platform/db"
)

// jobRow is the gorm-mapped persisted shape: BacktestJob's nested Config/
// Result are stored as JSON blobs since their shape (engine config maps,
// signal lists) does not warrant a normalized schema of its own.
type jobRow struct {
	JobID       string `gorm:"primaryKey;size:36"`
	Status      string `gorm:"index"`
	Progress    float64
	Message     string
	ConfigJSON  string `gorm:"type:text"`
	StartedAt   *int64
	FinishedAt  *int64
	ResultJSON  string `gorm:"type:text"`
	Error       string
}

func (jobRow) TableName() string { return "backtest_jobs" }

// GormRepository is the gorm-backed domain.JobRepository implementation.
type GormRepository struct {
	db *db.DB
}

// NewGormRepository wraps database as a domain.JobRepository.
func NewGormRepository(database *db.DB) *GormRepository {
	return &GormRepository{db: database}
}

// Migrate creates the backtest_jobs table if it does not exist.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&jobRow{})
}

func toRow(job *domain.BacktestJob) (*jobRow, error) {
	cfgJSON, err := json.Marshal(job.Config)
	if err != nil {
		return nil, err
	}
	var resultJSON []byte
	if job.Result != nil {
		resultJSON, err = json.Marshal(job.Result)
		if err != nil {
			return nil, err
		}
	}
	row := &jobRow{
		JobID:      job.JobID,
		Status:     string(job.Status),
		Progress:   job.Progress,
		Message:    job.Message,
		ConfigJSON: string(cfgJSON),
		ResultJSON: string(resultJSON),
		Error:      job.Error,
	}
	if job.StartedAt != nil {
		ts := job.StartedAt.UnixMilli()
		row.StartedAt = &ts
	}
	if job.FinishedAt != nil {
		ts := job.FinishedAt.UnixMilli()
		row.FinishedAt = &ts
	}
	return row, nil
}

func fromRow(row *jobRow) (*domain.BacktestJob, error) {
	job := &domain.BacktestJob{
		JobID:    row.JobID,
		Status:   domain.JobStatus(row.Status),
		Progress: row.Progress,
		Message:  row.Message,
		Error:    row.Error,
	}
	if row.ConfigJSON != "" {
		if err := json.Unmarshal([]byte(row.ConfigJSON), &job.Config); err != nil {
			return nil, err
		}
	}
	if row.ResultJSON != "" {
		job.Result = &domain.BacktestResult{}
		if err := json.Unmarshal([]byte(row.ResultJSON), job.Result); err != nil {
			return nil, err
		}
	}
	if row.StartedAt != nil {
		t := msToTime(*row.StartedAt)
		job.StartedAt = &t
	}
	if row.FinishedAt != nil {
		t := msToTime(*row.FinishedAt)
		job.FinishedAt = &t
	}
	return job, nil
}

// jobRowUpdateColumns lists every jobRow column but the primary key, for
// UpsertWithConflict's conflict-update clause.
var jobRowUpdateColumns = []string{
	"status", "progress", "message", "config_json",
	"started_at", "finished_at", "result_json", "error",
}

// Save implements domain.JobRepository. A job_id that already exists is
// overwritten rather than erroring, so Save doubles as create-or-replace
// across the job lifecycle's repeated Save calls.
func (r *GormRepository) Save(ctx context.Context, job *domain.BacktestJob) error {
	row, err := toRow(job)
	if err != nil {
		return apperr.Internal(err, "marshal backtest job")
	}
	if err := r.db.UpsertWithConflict(ctx, row, []string{"job_id"}, jobRowUpdateColumns); err != nil {
		return apperr.Internal(err, "save backtest job")
	}
	return nil
}

// Transition implements domain.JobRepository: find, mutate, and save the
// job inside one transaction, so a progress callback racing the run
// goroutine's own status update can't lose either write.
func (r *GormRepository) Transition(ctx context.Context, jobID string, mutate func(*domain.BacktestJob)) error {
	return r.db.WithTx(ctx, func(tx *gorm.DB) error {
		var row jobRow
		if err := tx.Where("job_id = ?", jobID).First(&row).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("backtest job %q not found", jobID)
			}
			return apperr.Internal(err, "find backtest job")
		}
		job, err := fromRow(&row)
		if err != nil {
			return apperr.Internal(err, "unmarshal backtest job")
		}
		mutate(job)
		newRow, err := toRow(job)
		if err != nil {
			return apperr.Internal(err, "marshal backtest job")
		}
		return tx.Save(newRow).Error
	})
}

// FindByID implements domain.JobRepository.
func (r *GormRepository) FindByID(ctx context.Context, jobID string) (*domain.BacktestJob, error) {
	var row jobRow
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("backtest job %q not found", jobID)
		}
		return nil, apperr.Internal(err, "find backtest job")
	}
	return fromRow(&row)
}

// List implements domain.JobRepository.
func (r *GormRepository) List(ctx context.Context, limit, offset int, status domain.JobStatus) ([]domain.BacktestJob, error) {
	q := r.db.WithContext(ctx).Model(&jobRow{}).Order("job_id DESC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var rows []jobRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err, "list backtest jobs")
	}
	out := make([]domain.BacktestJob, 0, len(rows))
	for i := range rows {
		job, err := fromRow(&rows[i])
		if err != nil {
			return nil, apperr.Internal(err, "unmarshal backtest job")
		}
		out = append(out, *job)
	}
	return out, nil
}

// Delete implements domain.JobRepository.
func (r *GormRepository) Delete(ctx context.Context, jobID string) error {
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Delete(&jobRow{}).Error; err != nil {
		return apperr.Internal(err, "delete backtest job")
	}
	return nil
}
