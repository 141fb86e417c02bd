package forwarder_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"starktol/internal/forwarder"
	"starktol/internal/models"
)

type fakeJobStore struct {
	jobs        map[string]*models.LedgerJob
	deadLetters []*models.DeadLetter
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*models.LedgerJob)}
}

func (s *fakeJobStore) add(id, txRef string) *models.LedgerJob {
	j := &models.LedgerJob{ID: id, TxRef: txRef, Event: "wallet.credit", Payload: []byte(`{}`), Status: models.JobPending, NextRunAt: time.Now().Add(-time.Second)}
	s.jobs[id] = j
	return j
}

func (s *fakeJobStore) FindDue(now time.Time, limit int) ([]models.LedgerJob, error) {
	var due []models.LedgerJob
	for _, j := range s.jobs {
		if j.Status == models.JobPending && !j.NextRunAt.After(now) {
			due = append(due, *j)
			if len(due) >= limit {
				break
			}
		}
	}
	return due, nil
}

func (s *fakeJobStore) MarkDelivered(id string, at time.Time) error {
	s.jobs[id].Status = models.JobDelivered
	s.jobs[id].DeliveredAt = &at
	return nil
}

func (s *fakeJobStore) Reschedule(id string, attempts int, nextRunAt time.Time, lastError string) error {
	j := s.jobs[id]
	j.Attempts = attempts
	j.NextRunAt = nextRunAt
	j.LastError = lastError
	return nil
}

func (s *fakeJobStore) DeadLetter(job *models.LedgerJob, lastError string) error {
	s.jobs[job.ID].Status = models.JobDeadLetter
	s.deadLetters = append(s.deadLetters, &models.DeadLetter{JobID: job.ID, TxRef: job.TxRef, Attempts: job.Attempts + 1, LastError: lastError})
	return nil
}

type fakeLedger struct {
	calls    int
	failures int // fail this many calls before succeeding
}

func (f *fakeLedger) Deliver(_ context.Context, event string, payload []byte) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("ledger down")
	}
	return nil
}

func newDispatcher(jobs forwarder.JobStore, ledger forwarder.Deliverer) *forwarder.Dispatcher {
	return forwarder.NewDispatcher(jobs, ledger, time.Millisecond, time.Second, 60*time.Second, 5, 10)
}

func TestDispatcher_DeliversAndMarks(t *testing.T) {
	store := newFakeJobStore()
	store.add("job-1", "tx-1")
	ledger := &fakeLedger{}

	newDispatcher(store, ledger).DispatchOnce(context.Background())

	if ledger.calls != 1 {
		t.Fatalf("ledger calls = %d", ledger.calls)
	}
	if store.jobs["job-1"].Status != models.JobDelivered {
		t.Fatalf("job status = %s", store.jobs["job-1"].Status)
	}
}

func TestDispatcher_ReschedulesWithBackoff(t *testing.T) {
	store := newFakeJobStore()
	store.add("job-1", "tx-1")
	ledger := &fakeLedger{failures: 100}
	d := newDispatcher(store, ledger)

	before := time.Now()
	d.DispatchOnce(context.Background())

	j := store.jobs["job-1"]
	if j.Status != models.JobPending {
		t.Fatalf("job status = %s, want still pending", j.Status)
	}
	if j.Attempts != 1 {
		t.Fatalf("attempts = %d", j.Attempts)
	}
	if j.NextRunAt.Before(before.Add(500 * time.Millisecond)) {
		t.Fatalf("next run %v not pushed back by backoff", j.NextRunAt)
	}
	if j.LastError == "" {
		t.Fatal("last error not recorded")
	}
}

func TestDispatcher_DeadLettersAfterMaxAttempts(t *testing.T) {
	store := newFakeJobStore()
	j := store.add("job-1", "tx-1")
	ledger := &fakeLedger{failures: 100}
	d := newDispatcher(store, ledger)

	// Drive through all attempts; rewind NextRunAt so each pass is due.
	for i := 0; i < 5; i++ {
		j.NextRunAt = time.Now().Add(-time.Second)
		d.DispatchOnce(context.Background())
	}

	if j.Status != models.JobDeadLetter {
		t.Fatalf("job status = %s, want dead-lettered", j.Status)
	}
	if len(store.deadLetters) != 1 {
		t.Fatalf("dead letters = %d", len(store.deadLetters))
	}
	if store.deadLetters[0].Attempts != 5 {
		t.Errorf("dead letter attempts = %d", store.deadLetters[0].Attempts)
	}
	if ledger.calls != 5 {
		t.Errorf("ledger calls = %d", ledger.calls)
	}
}

func TestDispatcher_Backoff(t *testing.T) {
	d := forwarder.NewDispatcher(nil, nil, time.Second, time.Second, 60*time.Second, 5, 10)
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 32 * time.Second},
		{7, 60 * time.Second},  // capped
		{20, 60 * time.Second}, // shift overflow also capped
	}
	for _, tc := range cases {
		if got := d.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	store := newFakeJobStore()
	d := newDispatcher(store, &fakeLedger{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop on context cancel")
	}
}
