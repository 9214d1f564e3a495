package session

import (
	"context"
	"time"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// ExportJob tracks one queued admin export (sessions.csv, events.csv and
// per-session AI-index PDFs zipped and uploaded). The worker drives the
// status; the HTTP layer only creates and polls.
type ExportJob struct {
	ID string `gorm:"primaryKey;size:26"` // ULID

	// Optional YYYY-MM-DD bounds the export was requested with.
	FromDate *string `gorm:"type:varchar(10)"`
	ToDate   *string `gorm:"type:varchar(10)"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded: signed URL of the uploaded bundle.
	ResultURL *string `gorm:"type:text"`

	// Filled when failed.
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ExportJob) TableName() string { return "export_jobs" }

func (r *Repo) CreateExportJob(ctx context.Context, j *ExportJob) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *Repo) GetExportJob(ctx context.Context, id string) (*ExportJob, error) {
	var j ExportJob
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) MarkExportRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&ExportJob{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkExportSucceeded(ctx context.Context, id, url string) error {
	return r.db.WithContext(ctx).Model(&ExportJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     JobSucceeded,
			"result_url": url,
			"error":      nil,
		}).Error
}

func (r *Repo) MarkExportFailed(ctx context.Context, id, errMsg string) error {
	return r.db.WithContext(ctx).Model(&ExportJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     JobFailed,
			"error":      errMsg,
			"result_url": nil,
		}).Error
}
