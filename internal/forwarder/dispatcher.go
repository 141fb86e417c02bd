package forwarder

import (
	"context"
	"log"
	"time"

	"starktol/internal/models"
)

// JobStore is the durable queue the dispatcher drains.
type JobStore interface {
	FindDue(now time.Time, limit int) ([]models.LedgerJob, error)
	MarkDelivered(id string, at time.Time) error
	Reschedule(id string, attempts int, nextRunAt time.Time, lastError string) error
	DeadLetter(job *models.LedgerJob, lastError string) error
}

// Deliverer pushes one event to the system of record.
type Deliverer interface {
	Deliver(ctx context.Context, event string, payload []byte) error
}

// Dispatcher polls due ledger jobs and delivers them with exponential
// backoff. It runs off the webhook request path entirely: the handler
// only enqueues, so the gateway gets its 200 no matter how the ledger
// behaves.
type Dispatcher struct {
	Jobs         JobStore
	Ledger       Deliverer
	PollInterval time.Duration
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	BatchSize    int

	now func() time.Time
}

func NewDispatcher(jobs JobStore, ledger Deliverer, pollInterval, baseDelay, maxDelay time.Duration, maxAttempts, batchSize int) *Dispatcher {
	return &Dispatcher{
		Jobs:         jobs,
		Ledger:       ledger,
		PollInterval: pollInterval,
		BaseDelay:    baseDelay,
		MaxDelay:     maxDelay,
		MaxAttempts:  maxAttempts,
		BatchSize:    batchSize,
		now:          time.Now,
	}
}

// Run polls until the context is cancelled. Start it as a goroutine from
// main; cancelling the context is the stop signal.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()
	log.Printf("[Forwarder] dispatcher started (poll=%s, max_attempts=%d)", d.PollInterval, d.MaxAttempts)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Forwarder] dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce drains one batch of due jobs.
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	jobs, err := d.Jobs.FindDue(d.now(), d.BatchSize)
	if err != nil {
		log.Printf("[Forwarder] find due jobs: %v", err)
		return
	}
	for i := range jobs {
		d.deliver(ctx, &jobs[i])
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job *models.LedgerJob) {
	err := d.Ledger.Deliver(ctx, job.Event, job.Payload)
	if err == nil {
		if err := d.Jobs.MarkDelivered(job.ID, d.now()); err != nil {
			log.Printf("[Forwarder] mark delivered %s: %v", job.ID, err)
		}
		log.Printf("[Forwarder] delivered job=%s tx_ref=%s attempt=%d", job.ID, job.TxRef, job.Attempts+1)
		return
	}

	attempts := job.Attempts + 1
	if attempts >= d.MaxAttempts {
		if dlErr := d.Jobs.DeadLetter(job, err.Error()); dlErr != nil {
			log.Printf("[Forwarder] dead-letter job=%s: %v", job.ID, dlErr)
			return
		}
		log.Printf("[Forwarder] job=%s tx_ref=%s dead-lettered after %d attempts: %v", job.ID, job.TxRef, attempts, err)
		return
	}

	delay := d.Backoff(attempts)
	if rsErr := d.Jobs.Reschedule(job.ID, attempts, d.now().Add(delay), err.Error()); rsErr != nil {
		log.Printf("[Forwarder] reschedule job=%s: %v", job.ID, rsErr)
		return
	}
	log.Printf("[Forwarder] job=%s tx_ref=%s attempt=%d failed, retrying in %s: %v", job.ID, job.TxRef, attempts, delay, err)
}

// Backoff returns the delay before the given retry attempt: base doubled
// per attempt, capped.
func (d *Dispatcher) Backoff(attempt int) time.Duration {
	delay := d.BaseDelay << (attempt - 1)
	if delay > d.MaxDelay || delay <= 0 {
		return d.MaxDelay
	}
	return delay
}
