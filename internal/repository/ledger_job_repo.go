package repository

import (
	"time"

	"starktol/internal/models"

	"gorm.io/gorm"
)

type LedgerJobRepository struct {
	db *gorm.DB
}

func NewLedgerJobRepository(db *gorm.DB) *LedgerJobRepository {
	return &LedgerJobRepository{db: db}
}

func (r *LedgerJobRepository) Enqueue(job *models.LedgerJob) error {
	return r.db.Create(job).Error
}

// FindDue returns pending jobs whose backoff window has elapsed.
func (r *LedgerJobRepository) FindDue(now time.Time, limit int) ([]models.LedgerJob, error) {
	var jobs []models.LedgerJob
	err := r.db.Where("status = ? AND next_run_at <= ?", models.JobPending, now).
		Order("next_run_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *LedgerJobRepository) MarkDelivered(id string, at time.Time) error {
	return r.db.Model(&models.LedgerJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.JobDelivered, "delivered_at": at}).Error
}

// Reschedule records a failed attempt and pushes the job back into the
// queue for its next run.
func (r *LedgerJobRepository) Reschedule(id string, attempts int, nextRunAt time.Time, lastError string) error {
	return r.db.Model(&models.LedgerJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{"attempts": attempts, "next_run_at": nextRunAt, "last_error": lastError}).Error
}

// DeadLetter moves an exhausted job out of the queue and into the durable
// dead-letter table, in one transaction so the record cannot be lost
// between the two writes.
func (r *LedgerJobRepository) DeadLetter(job *models.LedgerJob, lastError string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LedgerJob{}).Where("id = ?", job.ID).
			Updates(map[string]interface{}{"status": models.JobDeadLetter, "last_error": lastError}).Error; err != nil {
			return err
		}
		return tx.Create(&models.DeadLetter{
			JobID:     job.ID,
			TxRef:     job.TxRef,
			Event:     job.Event,
			Payload:   job.Payload,
			Attempts:  job.Attempts + 1,
			LastError: lastError,
		}).Error
	})
}
