package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"starktol/internal/domain"
	"starktol/internal/models"
	"starktol/internal/reconcile"
	"starktol/pkg/flutterwave"
)

// fakeStore mirrors the transactional semantics of the gorm store: the
// idempotency map is the serialization point, a claimed tx_ref makes
// ApplyOutcome a no-op, and TransitionIntent only lands while the intent
// is still in one of the from states. beforeTransition lets a test
// interleave a concurrent delivery between the engine's read and its
// conditional write.
type fakeStore struct {
	intents          map[string]*models.PaymentIntent
	idempotency      map[string]*models.IdempotencyRecord
	jobs             []*models.LedgerJob
	credits          []int64
	beforeTransition func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		intents:     make(map[string]*models.PaymentIntent),
		idempotency: make(map[string]*models.IdempotencyRecord),
	}
}

func (s *fakeStore) IntentByTxRef(_ context.Context, txRef string) (*models.PaymentIntent, error) {
	p, ok := s.intents[txRef]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) ApplyOutcome(_ context.Context, rec *models.IdempotencyRecord, intent *models.PaymentIntent, job *models.LedgerJob) (bool, error) {
	if _, dup := s.idempotency[rec.TxRef]; dup {
		return false, nil
	}
	s.idempotency[rec.TxRef] = rec
	cp := *intent
	s.intents[intent.TxRef] = &cp
	if rec.Outcome == domain.IntentSettled {
		s.credits = append(s.credits, intent.AmountKobo)
	}
	if job != nil {
		s.jobs = append(s.jobs, job)
	}
	return true, nil
}

func (s *fakeStore) TransitionIntent(_ context.Context, txRef, to string, from ...string) (bool, error) {
	if s.beforeTransition != nil {
		s.beforeTransition()
	}
	p, ok := s.intents[txRef]
	if !ok {
		return false, nil
	}
	eligible := false
	for _, f := range from {
		if p.Status == f {
			eligible = true
			break
		}
	}
	if !eligible {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (s *fakeStore) seed(txRef string, amountKobo int64) {
	s.intents[txRef] = &models.PaymentIntent{
		UserID:     7,
		TxRef:      txRef,
		AmountKobo: amountKobo,
		Currency:   "NGN",
		Status:     domain.IntentAwaitingGateway,
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}
}

func successEvent(txRef string, amountKobo int64) *flutterwave.WebhookEvent {
	return &flutterwave.WebhookEvent{
		Event:      "charge.completed",
		TxRef:      txRef,
		GatewayRef: "285959875",
		Status:     flutterwave.StatusSuccessful,
		AmountKobo: amountKobo,
		Currency:   "NGN",
		ReceivedAt: time.Now(),
	}
}

func TestEngine_SettlesOnceAndDeduplicates(t *testing.T) {
	store := newFakeStore()
	store.seed("starktol_1000_1", 50000) // 500 NGN intent
	engine := reconcile.New(store)

	evt := successEvent("starktol_1000_1", 50000)
	out, err := engine.Process(context.Background(), evt)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Applied || out.Status != domain.IntentSettled {
		t.Fatalf("first delivery: applied=%v status=%s", out.Applied, out.Status)
	}

	// N-1 redeliveries are acknowledged no-ops.
	for i := 0; i < 4; i++ {
		out, err := engine.Process(context.Background(), evt)
		if err != nil {
			t.Fatal(err)
		}
		if out.Applied {
			t.Fatalf("redelivery %d applied a second effect", i)
		}
		if out.Status != domain.IntentSettled {
			t.Fatalf("redelivery %d status = %s", i, out.Status)
		}
	}

	if len(store.credits) != 1 || store.credits[0] != 50000 {
		t.Fatalf("credits = %v, want exactly one of 50000", store.credits)
	}
	if len(store.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(store.jobs))
	}
	if store.jobs[0].Event != "wallet.credit" {
		t.Errorf("job event = %q", store.jobs[0].Event)
	}
}

func TestEngine_AmountMismatchNeverCredits(t *testing.T) {
	store := newFakeStore()
	store.seed("tx-mismatch", 100000) // intent: 1000 NGN
	engine := reconcile.New(store)

	out, err := engine.Process(context.Background(), successEvent("tx-mismatch", 200000)) // gateway claims 2000 NGN
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.IntentFailed || !out.Flagged {
		t.Fatalf("got status=%s flagged=%v, want FAILED flagged", out.Status, out.Flagged)
	}
	if len(store.credits) != 0 {
		t.Fatalf("mismatched amount produced credits: %v", store.credits)
	}
	if len(store.jobs) != 0 {
		t.Fatal("mismatched amount enqueued a ledger job")
	}
	if !store.intents["tx-mismatch"].Flagged {
		t.Fatal("intent not flagged for review")
	}
}

func TestEngine_CurrencyMismatchNeverCredits(t *testing.T) {
	store := newFakeStore()
	store.seed("tx-currency", 50000)
	engine := reconcile.New(store)

	evt := successEvent("tx-currency", 50000)
	evt.Currency = "USD"
	out, err := engine.Process(context.Background(), evt)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.IntentFailed || !out.Flagged {
		t.Fatalf("got status=%s flagged=%v", out.Status, out.Flagged)
	}
	if len(store.credits) != 0 {
		t.Fatal("currency mismatch produced a credit")
	}
}

func TestEngine_TerminalStateIsImmutable(t *testing.T) {
	store := newFakeStore()
	store.seed("starktol_1000_1", 50000)
	engine := reconcile.New(store)

	cancelEvt := successEvent("starktol_1000_1", 50000)
	cancelEvt.Status = flutterwave.StatusCancelled
	out, err := engine.Process(context.Background(), cancelEvt)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.IntentFailed {
		t.Fatalf("cancelled event: status = %s", out.Status)
	}

	// A later duplicate "successful" webhook must not resurrect it.
	out, err = engine.Process(context.Background(), successEvent("starktol_1000_1", 50000))
	if err != nil {
		t.Fatal(err)
	}
	if out.Applied || out.Status != domain.IntentFailed {
		t.Fatalf("terminal intent changed: applied=%v status=%s", out.Applied, out.Status)
	}
	if len(store.credits) != 0 {
		t.Fatal("credit issued after terminal failure")
	}
}

func TestEngine_CommutativeAcrossChannels(t *testing.T) {
	webhookEvt := successEvent("tx-comm", 50000)
	pollEvt := successEvent("tx-comm", 50000)
	pollEvt.Event = "transaction.verify" // poll responses carry no event id

	orders := map[string][]*flutterwave.WebhookEvent{
		"webhook first": {webhookEvt, pollEvt},
		"poll first":    {pollEvt, webhookEvt},
	}
	for name, evts := range orders {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			store.seed("tx-comm", 50000)
			engine := reconcile.New(store)
			for _, evt := range evts {
				if _, err := engine.Process(context.Background(), evt); err != nil {
					t.Fatal(err)
				}
			}
			if got := store.intents["tx-comm"].Status; got != domain.IntentSettled {
				t.Fatalf("final status = %s", got)
			}
			if len(store.credits) != 1 {
				t.Fatalf("credits = %d, want 1", len(store.credits))
			}
		})
	}
}

func pendingEvent(txRef string, amountKobo int64) *flutterwave.WebhookEvent {
	evt := successEvent(txRef, amountKobo)
	evt.Status = flutterwave.StatusPending
	return evt
}

func TestEngine_PendingBeforeExpiryHolds(t *testing.T) {
	store := newFakeStore()
	store.seed("tx-pending", 50000)
	clock := store.intents["tx-pending"].ExpiresAt.Add(-time.Minute)
	engine := reconcile.NewWithClock(store, func() time.Time { return clock })

	out, err := engine.Process(context.Background(), pendingEvent("tx-pending", 50000))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.IntentAwaitingGateway {
		t.Fatalf("status = %s, want AWAITING_GATEWAY", out.Status)
	}
	if len(store.idempotency) != 0 {
		t.Fatal("pending event consumed the idempotency slot")
	}
}

func TestEngine_FirstPendingReportArmsGateway(t *testing.T) {
	store := newFakeStore()
	store.seed("tx-arm", 50000)
	store.intents["tx-arm"].Status = domain.IntentCreated
	engine := reconcile.New(store)

	out, err := engine.Process(context.Background(), pendingEvent("tx-arm", 50000))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.IntentAwaitingGateway {
		t.Fatalf("status = %s, want AWAITING_GATEWAY", out.Status)
	}
	if got := store.intents["tx-arm"].Status; got != domain.IntentAwaitingGateway {
		t.Fatalf("stored status = %s", got)
	}
}

func TestEngine_PendingAfterExpiryExpires(t *testing.T) {
	store := newFakeStore()
	store.seed("tx-expire", 50000)
	clock := store.intents["tx-expire"].ExpiresAt.Add(time.Minute)
	engine := reconcile.NewWithClock(store, func() time.Time { return clock })

	out, err := engine.Process(context.Background(), pendingEvent("tx-expire", 50000))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.IntentExpired {
		t.Fatalf("status = %s, want EXPIRED", out.Status)
	}
	if got := store.intents["tx-expire"].Status; got != domain.IntentExpired {
		t.Fatalf("stored status = %s", got)
	}
}

func TestEngine_ExpiryYieldsToConcurrentSettlement(t *testing.T) {
	store := newFakeStore()
	store.seed("tx-exp-race", 50000)
	clock := store.intents["tx-exp-race"].ExpiresAt.Add(time.Minute)
	engine := reconcile.NewWithClock(store, func() time.Time { return clock })

	// A webhook settles the intent between this handler's read and its
	// expiry write. The conditional transition must lose, not overwrite.
	winner := reconcile.New(store)
	store.beforeTransition = func() {
		store.beforeTransition = nil
		if _, err := winner.Process(context.Background(), successEvent("tx-exp-race", 50000)); err != nil {
			t.Fatal(err)
		}
	}

	out, err := engine.Process(context.Background(), pendingEvent("tx-exp-race", 50000))
	if err != nil {
		t.Fatal(err)
	}
	if out.Applied {
		t.Fatal("expiry applied despite losing the race")
	}
	if out.Status != domain.IntentSettled {
		t.Fatalf("outcome status = %s, want the winner's SETTLED", out.Status)
	}
	if got := store.intents["tx-exp-race"].Status; got != domain.IntentSettled {
		t.Fatalf("final status = %s: settlement overwritten", got)
	}
	if len(store.credits) != 1 {
		t.Fatalf("credits = %v, want exactly one", store.credits)
	}
}

func TestEngine_UnknownTxRef(t *testing.T) {
	engine := reconcile.New(newFakeStore())
	_, err := engine.Process(context.Background(), successEvent("never-issued", 50000))
	if !errors.Is(err, reconcile.ErrUnknownIntent) {
		t.Fatalf("expected ErrUnknownIntent, got %v", err)
	}
}

func TestEngine_LostRaceReturnsWinnersOutcome(t *testing.T) {
	store := newFakeStore()
	store.seed("tx-race", 50000)
	engine := reconcile.New(store)

	// A concurrent delivery already claimed the tx_ref and settled it.
	store.idempotency["tx-race"] = &models.IdempotencyRecord{TxRef: "tx-race", Outcome: domain.IntentSettled}
	store.intents["tx-race"].Status = domain.IntentAwaitingGateway // stale read in this handler

	out, err := engine.Process(context.Background(), successEvent("tx-race", 50000))
	if err != nil {
		t.Fatal(err)
	}
	if out.Applied {
		t.Fatal("loser of the race applied an effect")
	}
	if len(store.credits) != 0 {
		t.Fatal("loser of the race credited the wallet")
	}
}
