package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"starktol/internal/domain"
	"starktol/internal/models"
	"starktol/pkg/flutterwave"

	"github.com/google/uuid"
)

// ErrUnknownIntent means the event references a tx_ref we never issued.
// The webhook is still acknowledged; there is nothing to reconcile.
var ErrUnknownIntent = errors.New("no payment intent for tx_ref")

// Store is the persistence seam the engine drives. ApplyOutcome must be
// atomic: the conditional idempotency insert, the intent transition, the
// wallet credit and the ledger-job enqueue commit together or not at all.
// applied=false means another delivery already claimed the tx_ref.
// TransitionIntent moves an intent between states only while it is still
// in one of the from states; applied=false means a concurrent delivery
// moved it first and the caller must re-read. A terminal state never
// appears in from, so terminal writes stay write-once.
type Store interface {
	IntentByTxRef(ctx context.Context, txRef string) (*models.PaymentIntent, error)
	ApplyOutcome(ctx context.Context, rec *models.IdempotencyRecord, intent *models.PaymentIntent, job *models.LedgerJob) (applied bool, err error)
	TransitionIntent(ctx context.Context, txRef, to string, from ...string) (applied bool, err error)
}

// Outcome is what one processed event amounted to.
type Outcome struct {
	TxRef      string
	UserID     uint
	Status     string // intent status after processing
	AmountKobo int64
	Applied    bool // this event performed the terminal transition
	Flagged    bool
}

// CreditPayload is the ledger instruction forwarded on settlement.
type CreditPayload struct {
	TxRef      string `json:"tx_ref"`
	UserID     uint   `json:"user_id"`
	GatewayRef string `json:"gateway_ref"`
	AmountKobo int64  `json:"amount_kobo"`
	Currency   string `json:"currency"`
	SettledAt  string `json:"settled_at"`
}

// Engine is the per-tx_ref state machine. Webhook deliveries and poll
// verifications both feed it; the idempotency insert inside ApplyOutcome
// makes the two channels commutative.
type Engine struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// NewWithClock is for tests that need to control expiry.
func NewWithClock(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// Process reconciles one verified gateway event against the local intent.
// Signature and parse failures never reach here. The returned error is
// for storage faults only; business rejections (mismatch, duplicates) are
// regular outcomes.
func (e *Engine) Process(ctx context.Context, evt *flutterwave.WebhookEvent) (*Outcome, error) {
	intent, err := e.store.IntentByTxRef(ctx, evt.TxRef)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, ErrUnknownIntent
	}

	// Terminal states are write-once. Later events for the same tx_ref,
	// successful or not, are acknowledged without effect.
	if domain.IsTerminalIntent(intent.Status) {
		return &Outcome{TxRef: intent.TxRef, UserID: intent.UserID, Status: intent.Status, AmountKobo: intent.AmountKobo, Flagged: intent.Flagged}, nil
	}

	switch evt.Status {
	case flutterwave.StatusSuccessful:
		if evt.AmountKobo != intent.AmountKobo || evt.Currency != intent.Currency {
			return e.failFlagged(ctx, intent, evt)
		}
		return e.settle(ctx, intent, evt)
	case flutterwave.StatusFailed, flutterwave.StatusCancelled:
		return e.fail(ctx, intent, evt)
	default: // pending
		if e.now().After(intent.ExpiresAt) {
			return e.expire(ctx, intent)
		}
		return e.hold(ctx, intent)
	}
}

func (e *Engine) settle(ctx context.Context, intent *models.PaymentIntent, evt *flutterwave.WebhookEvent) (*Outcome, error) {
	now := e.now()
	rec := &models.IdempotencyRecord{
		TxRef:          intent.TxRef,
		GatewayRef:     evt.GatewayRef,
		Outcome:        domain.IntentSettled,
		RawPayloadHash: evt.RawPayloadHash,
	}
	next := *intent
	next.Status = domain.IntentSettled
	next.GatewayRef = evt.GatewayRef
	next.SettledAt = &now

	payload, err := json.Marshal(CreditPayload{
		TxRef:      intent.TxRef,
		UserID:     intent.UserID,
		GatewayRef: evt.GatewayRef,
		AmountKobo: intent.AmountKobo,
		Currency:   intent.Currency,
		SettledAt:  now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	job := &models.LedgerJob{
		ID:        uuid.New().String(),
		TxRef:     intent.TxRef,
		Event:     "wallet.credit",
		Payload:   payload,
		Status:    models.JobPending,
		NextRunAt: now,
	}

	applied, err := e.store.ApplyOutcome(ctx, rec, &next, job)
	if err != nil {
		return nil, err
	}
	if !applied {
		return e.lostRace(ctx, intent)
	}
	log.Printf("[Reconcile] tx_ref=%s settled, %d kobo credit queued (gateway_ref=%s)", intent.TxRef, intent.AmountKobo, evt.GatewayRef)
	return &Outcome{TxRef: intent.TxRef, UserID: intent.UserID, Status: domain.IntentSettled, AmountKobo: intent.AmountKobo, Applied: true}, nil
}

func (e *Engine) fail(ctx context.Context, intent *models.PaymentIntent, evt *flutterwave.WebhookEvent) (*Outcome, error) {
	rec := &models.IdempotencyRecord{
		TxRef:          intent.TxRef,
		GatewayRef:     evt.GatewayRef,
		Outcome:        domain.IntentFailed,
		RawPayloadHash: evt.RawPayloadHash,
	}
	next := *intent
	next.Status = domain.IntentFailed
	next.GatewayRef = evt.GatewayRef

	applied, err := e.store.ApplyOutcome(ctx, rec, &next, nil)
	if err != nil {
		return nil, err
	}
	if !applied {
		return e.lostRace(ctx, intent)
	}
	log.Printf("[Reconcile] tx_ref=%s failed (gateway status=%s)", intent.TxRef, evt.Status)
	return &Outcome{TxRef: intent.TxRef, UserID: intent.UserID, Status: domain.IntentFailed, AmountKobo: intent.AmountKobo, Applied: true}, nil
}

// failFlagged handles a validly signed success report whose amount or
// currency disagrees with the intent. Never credit: a signed-but-wrong
// amount is a forgery vector even when the signature checks out.
func (e *Engine) failFlagged(ctx context.Context, intent *models.PaymentIntent, evt *flutterwave.WebhookEvent) (*Outcome, error) {
	rec := &models.IdempotencyRecord{
		TxRef:          intent.TxRef,
		GatewayRef:     evt.GatewayRef,
		Outcome:        domain.IntentFailed,
		RawPayloadHash: evt.RawPayloadHash,
	}
	next := *intent
	next.Status = domain.IntentFailed
	next.GatewayRef = evt.GatewayRef
	next.Flagged = true
	next.FlagReason = fmt.Sprintf("gateway reported %d %s, intent is %d %s", evt.AmountKobo, evt.Currency, intent.AmountKobo, intent.Currency)

	applied, err := e.store.ApplyOutcome(ctx, rec, &next, nil)
	if err != nil {
		return nil, err
	}
	if !applied {
		return e.lostRace(ctx, intent)
	}
	log.Printf("[Reconcile] tx_ref=%s FLAGGED for review: %s", intent.TxRef, next.FlagReason)
	return &Outcome{TxRef: intent.TxRef, UserID: intent.UserID, Status: domain.IntentFailed, AmountKobo: intent.AmountKobo, Applied: true, Flagged: true}, nil
}

// hold re-arms an in-flight intent for later reports. The first gateway
// contact promotes CREATED to AWAITING_GATEWAY.
func (e *Engine) hold(ctx context.Context, intent *models.PaymentIntent) (*Outcome, error) {
	if intent.Status != domain.IntentCreated {
		return &Outcome{TxRef: intent.TxRef, UserID: intent.UserID, Status: intent.Status, AmountKobo: intent.AmountKobo}, nil
	}
	applied, err := e.store.TransitionIntent(ctx, intent.TxRef, domain.IntentAwaitingGateway, domain.IntentCreated)
	if err != nil {
		return nil, err
	}
	if !applied {
		return e.lostRace(ctx, intent)
	}
	return &Outcome{TxRef: intent.TxRef, UserID: intent.UserID, Status: domain.IntentAwaitingGateway, AmountKobo: intent.AmountKobo}, nil
}

// expire is guarded the same way as the settling transitions: the write
// lands only if the intent is still non-terminal, so a webhook that
// settles between this handler's read and write wins and stays won.
func (e *Engine) expire(ctx context.Context, intent *models.PaymentIntent) (*Outcome, error) {
	applied, err := e.store.TransitionIntent(ctx, intent.TxRef, domain.IntentExpired,
		domain.IntentCreated, domain.IntentAwaitingGateway, domain.IntentVerifying)
	if err != nil {
		return nil, err
	}
	if !applied {
		return e.lostRace(ctx, intent)
	}
	log.Printf("[Reconcile] tx_ref=%s expired without a terminal gateway report", intent.TxRef)
	return &Outcome{TxRef: intent.TxRef, UserID: intent.UserID, Status: domain.IntentExpired, AmountKobo: intent.AmountKobo}, nil
}

// lostRace re-reads the intent after a duplicate insert: a concurrent
// delivery for the same tx_ref committed first and its outcome stands.
func (e *Engine) lostRace(ctx context.Context, intent *models.PaymentIntent) (*Outcome, error) {
	current, err := e.store.IntentByTxRef(ctx, intent.TxRef)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrUnknownIntent
	}
	return &Outcome{TxRef: current.TxRef, UserID: current.UserID, Status: current.Status, AmountKobo: current.AmountKobo, Flagged: current.Flagged}, nil
}
